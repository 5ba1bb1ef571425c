// Package mock provides a configurable test double for the transcribe
// Service interface.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/calliope-bot/calliope/internal/transcribe"
)

// Compile-time interface assertion.
var _ transcribe.Service = (*Service)(nil)

// Service is a mock transcribe.Service. Configure the Result and Err fields
// before use and inspect the CallCount fields afterwards. The zero value
// succeeds on every call.
type Service struct {
	mu sync.Mutex

	// UploadResult is returned by Upload on success.
	UploadResult transcribe.RemoteRef
	// UploadErrs are returned by successive Upload calls; once exhausted,
	// Upload succeeds. A nil entry means success for that call.
	UploadErrs []error

	// GenerateResult is returned by GenerateFromFile on success.
	GenerateResult string
	// GenerateErrs are returned by successive GenerateFromFile calls; once
	// exhausted, GenerateFromFile succeeds.
	GenerateErrs []error

	// GenerateTextResult is returned by GenerateText on success.
	GenerateTextResult string
	// GenerateTextErr, when set, is returned by every GenerateText call.
	GenerateTextErr error

	// DeleteErr, when set, is returned by every DeleteRemote call.
	DeleteErr error

	// Block, when set, makes Upload wait until the channel is closed or the
	// context is cancelled.
	Block chan struct{}

	CallCountUpload       int
	CallCountGenerate     int
	CallCountGenerateText int
	CallCountDelete       int

	// MaxConcurrent records the highest number of simultaneous Upload calls
	// observed.
	MaxConcurrent int
	inFlight      int
}

func (s *Service) Upload(ctx context.Context, r io.Reader, mimeType string) (transcribe.RemoteRef, error) {
	s.mu.Lock()
	n := s.CallCountUpload
	s.CallCountUpload++
	s.inFlight++
	if s.inFlight > s.MaxConcurrent {
		s.MaxConcurrent = s.inFlight
	}
	block := s.Block
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return transcribe.RemoteRef{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n < len(s.UploadErrs) && s.UploadErrs[n] != nil {
		return transcribe.RemoteRef{}, s.UploadErrs[n]
	}
	return s.UploadResult, nil
}

func (s *Service) GenerateFromFile(ctx context.Context, ref transcribe.RemoteRef, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.CallCountGenerate
	s.CallCountGenerate++
	if n < len(s.GenerateErrs) && s.GenerateErrs[n] != nil {
		return "", s.GenerateErrs[n]
	}
	return s.GenerateResult, nil
}

func (s *Service) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountGenerateText++
	if s.GenerateTextErr != nil {
		return "", s.GenerateTextErr
	}
	return s.GenerateTextResult, nil
}

func (s *Service) DeleteRemote(ctx context.Context, ref transcribe.RemoteRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountDelete++
	return s.DeleteErr
}

// Counts returns the call counters under the mock's lock.
func (s *Service) Counts() (upload, generate, generateText, del int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountUpload, s.CallCountGenerate, s.CallCountGenerateText, s.CallCountDelete
}
