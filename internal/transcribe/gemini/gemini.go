// Package gemini adapts the Google Gemini API to the transcribe.Service
// interface. It handles file upload with readiness polling, generation
// requests, and classification of API failures into transcribe error kinds.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/genai"

	"github.com/calliope-bot/calliope/internal/transcribe"
)

// Compile-time interface assertion.
var _ transcribe.Service = (*Service)(nil)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// filePollInterval is how often an uploaded file's state is polled until it
// becomes active.
const filePollInterval = 400 * time.Millisecond

// Config holds the settings for a Gemini-backed transcription service.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model is the model name. Default: [DefaultModel].
	Model string

	// ThinkingBudget optionally bounds the model's internal reasoning token
	// budget. Nil leaves the service default in place; -1 means dynamic.
	ThinkingBudget *int32
}

// Service implements transcribe.Service on top of the Gemini API.
type Service struct {
	client *genai.Client
	model  string

	genConfig *genai.GenerateContentConfig
}

// New creates a Gemini-backed service.
func New(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	var genConfig *genai.GenerateContentConfig
	if cfg.ThinkingBudget != nil {
		genConfig = &genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{
				ThinkingBudget: genai.Ptr(*cfg.ThinkingBudget),
			},
		}
	}

	return &Service{
		client:    client,
		model:     cfg.Model,
		genConfig: genConfig,
	}, nil
}

// Upload transfers audio to the Gemini file API and polls until the file is
// active. Files that never become active are reported as internal errors.
func (s *Service) Upload(ctx context.Context, r io.Reader, mimeType string) (transcribe.RemoteRef, error) {
	file, err := s.client.Files.Upload(ctx, r, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return transcribe.RemoteRef{}, classify("upload", err)
	}

	for file.State != genai.FileStateActive {
		if file.State == genai.FileStateFailed {
			return transcribe.RemoteRef{}, &transcribe.ServiceError{
				Kind: transcribe.KindInternal,
				Err:  fmt.Errorf("uploaded file %q entered failed state", file.Name),
			}
		}
		select {
		case <-time.After(filePollInterval):
		case <-ctx.Done():
			return transcribe.RemoteRef{}, classify("upload", ctx.Err())
		}
		file, err = s.client.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return transcribe.RemoteRef{}, classify("upload", err)
		}
	}

	return transcribe.RemoteRef{
		Name:     file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
	}, nil
}

// GenerateFromFile runs a generation request referencing an uploaded file.
func (s *Service) GenerateFromFile(ctx context.Context, ref transcribe.RemoteRef, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(ref.URI, ref.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	return s.generate(ctx, contents)
}

// GenerateText runs a text-only generation request.
func (s *Service) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	return s.generate(ctx, contents)
}

func (s *Service) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, s.genConfig)
	if err != nil {
		return "", classify("generate", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &transcribe.ServiceError{
			Kind: transcribe.KindSafetyBlocked,
			Err:  fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", &transcribe.ServiceError{
			Kind: transcribe.KindSafetyBlocked,
			Err:  errors.New("response blocked by safety filter"),
		}
	}

	text := resp.Text()
	if text == "" {
		return "", &transcribe.ServiceError{
			Kind: transcribe.KindInternal,
			Err:  errors.New("model returned empty response"),
		}
	}
	return text, nil
}

// DeleteRemote removes an uploaded file.
func (s *Service) DeleteRemote(ctx context.Context, ref transcribe.RemoteRef) error {
	if ref.Name == "" {
		return nil
	}
	if _, err := s.client.Files.Delete(ctx, ref.Name, nil); err != nil {
		return classify("delete", err)
	}
	return nil
}

// classify maps a Gemini API error to a transcribe.ServiceError.
func classify(op string, err error) error {
	wrapped := fmt.Errorf("gemini %s: %w", op, err)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &transcribe.ServiceError{Kind: transcribe.KindDeadline, Err: wrapped}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &transcribe.ServiceError{Kind: kindForStatus(apiErr.Code), Err: wrapped}
	}
	return &transcribe.ServiceError{Kind: transcribe.KindUnknown, Err: wrapped}
}

// kindForStatus maps an HTTP status code to an error kind.
func kindForStatus(code int) transcribe.Kind {
	switch code {
	case 429:
		return transcribe.KindRateLimited
	case 503:
		return transcribe.KindUnavailable
	case 500, 502:
		return transcribe.KindInternal
	case 504:
		return transcribe.KindDeadline
	case 413:
		return transcribe.KindTooLarge
	case 400, 404, 422:
		return transcribe.KindInvalidInput
	default:
		if code >= 500 {
			return transcribe.KindInternal
		}
		if code >= 400 {
			return transcribe.KindInvalidInput
		}
		return transcribe.KindUnknown
	}
}
