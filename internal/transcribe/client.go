package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"

	"github.com/calliope-bot/calliope/internal/observe"
)

// Default tuning values for [Client].
const (
	DefaultMaxConcurrent  = 3
	DefaultMaxRetries     = 5
	DefaultInitialBackoff = 2 * time.Second
	DefaultAttemptTimeout = 4 * time.Minute
)

// transcribePrompt instructs the model how to render the recorded
// conversation.
const transcribePrompt = `Transcribe this audio recording of a voice conversation.
Produce a readable transcript. Distinguish speakers where possible, label them
Speaker 1, Speaker 2 and so on, and put each utterance on its own line.
Output only the transcript, no commentary.`

// enhancePrompt instructs the model to clean up a raw transcript.
const enhancePrompt = `Improve the following voice conversation transcript.
Fix obvious transcription mistakes, punctuation and capitalization while keeping
the wording and speaker labels intact. Output only the improved transcript.

`

// Client bounds and retries calls against a transcription [Service].
//
// At most a fixed number of API calls run concurrently across all sessions;
// further calls wait on the semaphore. Failed calls are retried with
// exponential backoff as long as their classified [Kind] is transient.
type Client struct {
	svc Service
	sem *semaphore.Weighted

	maxRetries     int
	initialBackoff time.Duration
	attemptTimeout time.Duration

	metrics *observe.Metrics
}

// Option configures a [Client].
type Option func(*Client)

// WithMaxConcurrent bounds the number of in-flight API calls.
func WithMaxConcurrent(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithMaxRetries sets the total number of attempts per call.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialBackoff sets the delay after the first failed attempt.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

// WithAttemptTimeout bounds each individual attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithMetrics sets the metrics instruments used by the client.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient wraps svc with concurrency bounding and retries.
func NewClient(svc Service, opts ...Option) *Client {
	c := &Client{
		svc:            svc,
		sem:            semaphore.NewWeighted(DefaultMaxConcurrent),
		maxRetries:     DefaultMaxRetries,
		initialBackoff: DefaultInitialBackoff,
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Transcribe uploads the audio and generates a transcript for it. The call
// holds one semaphore slot for its whole duration, including retries. The
// uploaded file is deleted from the service on a best-effort basis once the
// transcript has been produced or all attempts are exhausted.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquiring transcription slot: %w", err)
	}
	defer c.sem.Release(1)

	start := time.Now()
	text, err := c.retry(ctx, "transcribe", func(ctx context.Context) (string, error) {
		return c.transcribeOnce(ctx, audio, mimeType)
	})
	c.metrics.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return text, nil
}

// transcribeOnce performs a single upload-and-generate attempt.
func (c *Client) transcribeOnce(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ref, err := c.svc.Upload(ctx, bytes.NewReader(audio), mimeType)
	if err != nil {
		return "", fmt.Errorf("uploading audio: %w", err)
	}
	defer c.deleteRemote(ref)

	text, err := c.svc.GenerateFromFile(ctx, ref, transcribePrompt)
	if err != nil {
		return "", fmt.Errorf("generating transcript: %w", err)
	}
	return text, nil
}

// deleteRemote removes an uploaded file, logging failures instead of
// propagating them.
func (c *Client) deleteRemote(ref RemoteRef) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.svc.DeleteRemote(ctx, ref); err != nil {
		slog.Warn("transcribe: failed to delete uploaded file", "name", ref.Name, "error", err)
	}
}

// Enhance asks the service to clean up a transcript. Enhancement is strictly
// best-effort: on any failure the original text is returned unchanged.
func (c *Client) Enhance(ctx context.Context, text string) string {
	if text == "" {
		return text
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return text
	}
	defer c.sem.Release(1)

	improved, err := c.retry(ctx, "enhance", func(ctx context.Context) (string, error) {
		return c.svc.GenerateText(ctx, enhancePrompt+text)
	})
	if err != nil || improved == "" {
		slog.Warn("transcribe: enhancement failed, keeping raw transcript", "error", err)
		return text
	}
	return improved
}

// TestConnection probes the service with a trivial generation request. Used
// once at startup to surface credential or connectivity problems early.
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()
	if _, err := c.svc.GenerateText(ctx, "ping"); err != nil {
		return fmt.Errorf("probing transcription service: %w", err)
	}
	return nil
}

// retry runs fn up to maxRetries times, backing off exponentially between
// attempts. Permanent failures abort immediately.
func (c *Client) retry(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.TranscribeRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		text, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return text, nil
		}
		lastErr = err

		kind := classify(err)
		c.metrics.TranscribeErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("kind", kind.String()),
		))
		if !kind.Transient() {
			slog.Error("transcribe: permanent failure", "operation", op, "kind", kind.String(), "error", err)
			return "", err
		}
		if attempt == c.maxRetries-1 {
			break
		}

		delay := Backoff(c.initialBackoff, attempt)
		slog.Warn("transcribe: transient failure, retrying",
			"operation", op, "kind", kind.String(), "attempt", attempt+1, "backoff", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("%s failed after %d attempts: %w", op, c.maxRetries, lastErr)
}
