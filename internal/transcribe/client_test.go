package transcribe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/calliope-bot/calliope/internal/transcribe"
	"github.com/calliope-bot/calliope/internal/transcribe/mock"
)

func errTransient() error {
	return &transcribe.ServiceError{Kind: transcribe.KindUnavailable, Err: errors.New("overloaded")}
}

func errPermanent() error {
	return &transcribe.ServiceError{Kind: transcribe.KindInvalidInput, Err: errors.New("bad request")}
}

func repeat(err error, n int) []error {
	out := make([]error, n)
	for i := range out {
		out[i] = err
	}
	return out
}

func newTestClient(svc *mock.Service, opts ...transcribe.Option) *transcribe.Client {
	base := []transcribe.Option{
		transcribe.WithInitialBackoff(time.Millisecond),
		transcribe.WithAttemptTimeout(time.Second),
	}
	return transcribe.NewClient(svc, append(base, opts...)...)
}

func TestTranscribeSuccess(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{
		UploadResult:   transcribe.RemoteRef{Name: "files/abc", URI: "uri://abc", MIMEType: "audio/wav"},
		GenerateResult: "hello world",
	}
	c := newTestClient(svc)

	text, err := c.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello world" {
		t.Fatalf("Transcribe() = %q, want %q", text, "hello world")
	}

	upload, generate, _, del := svc.Counts()
	if upload != 1 || generate != 1 {
		t.Errorf("upload=%d generate=%d, want 1/1", upload, generate)
	}
	if del != 1 {
		t.Errorf("delete count = %d, want 1 (uploaded file must be cleaned up)", del)
	}
}

func TestTranscribeRetriesTransientUntilExhausted(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{
		UploadErrs: repeat(errTransient(), 10),
	}
	c := newTestClient(svc, transcribe.WithMaxRetries(5))

	_, err := c.Transcribe(context.Background(), []byte{1}, "audio/wav")
	if err == nil {
		t.Fatal("Transcribe() error = nil, want failure")
	}
	if upload, _, _, _ := svc.Counts(); upload != 5 {
		t.Errorf("upload attempts = %d, want 5", upload)
	}
}

func TestTranscribeRecoversMidway(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{
		UploadErrs:     []error{errTransient(), errTransient()},
		GenerateResult: "recovered",
	}
	c := newTestClient(svc, transcribe.WithMaxRetries(5))

	text, err := c.Transcribe(context.Background(), []byte{1}, "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "recovered" {
		t.Fatalf("Transcribe() = %q, want %q", text, "recovered")
	}
	if upload, _, _, _ := svc.Counts(); upload != 3 {
		t.Errorf("upload attempts = %d, want 3", upload)
	}
}

func TestTranscribePermanentErrorAbortsImmediately(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{
		UploadErrs: repeat(errPermanent(), 10),
	}
	c := newTestClient(svc, transcribe.WithMaxRetries(5))

	_, err := c.Transcribe(context.Background(), []byte{1}, "audio/wav")
	if err == nil {
		t.Fatal("Transcribe() error = nil, want failure")
	}
	var se *transcribe.ServiceError
	if !errors.As(err, &se) || se.Kind != transcribe.KindInvalidInput {
		t.Fatalf("error = %v, want invalid-input ServiceError", err)
	}
	if upload, _, _, _ := svc.Counts(); upload != 1 {
		t.Errorf("upload attempts = %d, want 1", upload)
	}
}

func TestTranscribeDeletesUploadEvenWhenGenerationFails(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{
		UploadResult: transcribe.RemoteRef{Name: "files/abc"},
		GenerateErrs: repeat(errPermanent(), 1),
	}
	c := newTestClient(svc)

	if _, err := c.Transcribe(context.Background(), []byte{1}, "audio/wav"); err == nil {
		t.Fatal("Transcribe() error = nil, want failure")
	}
	if _, _, _, del := svc.Counts(); del != 1 {
		t.Errorf("delete count = %d, want 1", del)
	}
}

func TestTranscribeBoundsConcurrency(t *testing.T) {
	t.Parallel()
	block := make(chan struct{})
	svc := &mock.Service{
		GenerateResult: "ok",
		Block:          block,
	}
	c := newTestClient(svc, transcribe.WithMaxConcurrent(3))

	const calls = 8
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Transcribe(context.Background(), []byte{1}, "audio/wav")
		}()
	}

	// Let the first wave park inside Upload, then release everyone.
	time.Sleep(100 * time.Millisecond)
	close(block)
	wg.Wait()

	if svc.MaxConcurrent > 3 {
		t.Errorf("max concurrent uploads = %d, want <= 3", svc.MaxConcurrent)
	}
	if upload, _, _, _ := svc.Counts(); upload != calls {
		t.Errorf("upload count = %d, want %d", upload, calls)
	}
}

func TestTranscribeHonorsContextCancellation(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{
		UploadErrs: repeat(errTransient(), 10),
	}
	c := transcribe.NewClient(svc,
		transcribe.WithMaxRetries(5),
		transcribe.WithInitialBackoff(time.Hour),
		transcribe.WithAttemptTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Transcribe(ctx, []byte{1}, "audio/wav")
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Transcribe did not return after cancellation")
	}
}

func TestEnhanceReturnsOriginalOnFailure(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{
		GenerateTextErr: errPermanent(),
	}
	c := newTestClient(svc)

	const raw = "raw transcript"
	if got := c.Enhance(context.Background(), raw); got != raw {
		t.Fatalf("Enhance() = %q, want original text back", got)
	}
}

func TestEnhanceReturnsImprovedText(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{
		GenerateTextResult: "Improved transcript.",
	}
	c := newTestClient(svc)

	if got := c.Enhance(context.Background(), "raw"); got != "Improved transcript." {
		t.Fatalf("Enhance() = %q, want improved text", got)
	}
}

func TestEnhanceEmptyTextIsNoop(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{}
	c := newTestClient(svc)

	if got := c.Enhance(context.Background(), ""); got != "" {
		t.Fatalf("Enhance(\"\") = %q, want empty", got)
	}
	if _, _, generateText, _ := svc.Counts(); generateText != 0 {
		t.Errorf("GenerateText called %d times, want 0", generateText)
	}
}

func TestTestConnection(t *testing.T) {
	t.Parallel()
	svc := &mock.Service{GenerateTextResult: "pong"}
	c := newTestClient(svc)
	if err := c.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection() error = %v", err)
	}

	failing := &mock.Service{GenerateTextErr: errPermanent()}
	c = newTestClient(failing)
	if err := c.TestConnection(context.Background()); err == nil {
		t.Fatal("TestConnection() error = nil, want failure")
	}
}
