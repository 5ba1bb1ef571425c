package transcribe

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a transcription service failure. The classification decides
// whether the client retries and which user-facing message is produced.
type Kind int

const (
	// KindUnknown covers failures the service adapter could not classify.
	// Treated as transient.
	KindUnknown Kind = iota

	// KindRateLimited means the service rejected the call due to quota or
	// rate limits.
	KindRateLimited

	// KindUnavailable means the service is temporarily unreachable or
	// overloaded.
	KindUnavailable

	// KindInternal means the service reported an internal error.
	KindInternal

	// KindDeadline means the attempt ran past its deadline.
	KindDeadline

	// KindSafetyBlocked means the service refused to produce output for the
	// given content. Never retried.
	KindSafetyBlocked

	// KindTooLarge means the audio exceeds the service's size limits. Never
	// retried.
	KindTooLarge

	// KindInvalidInput means the request itself was malformed or rejected.
	// Never retried.
	KindInvalidInput
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate-limited"
	case KindUnavailable:
		return "unavailable"
	case KindInternal:
		return "internal"
	case KindDeadline:
		return "deadline"
	case KindSafetyBlocked:
		return "safety-blocked"
	case KindTooLarge:
		return "too-large"
	case KindInvalidInput:
		return "invalid-input"
	default:
		return "unknown"
	}
}

// Transient reports whether a failure of this kind is worth retrying.
func (k Kind) Transient() bool {
	switch k {
	case KindRateLimited, KindUnavailable, KindInternal, KindDeadline, KindUnknown:
		return true
	default:
		return false
	}
}

// ServiceError is a classified failure from a [Service] implementation.
type ServiceError struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error { return e.Err }

// classify extracts the failure kind from err. Context cancellation maps to
// KindDeadline, anything unclassified to KindUnknown.
func classify(err error) Kind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindDeadline
	}
	return KindUnknown
}

// UserMessage maps any transcription failure to a message suitable for
// posting back to the channel that requested the recording. It is total:
// every error, classified or not, produces a message.
func UserMessage(err error) string {
	switch classify(err) {
	case KindRateLimited:
		return "The transcription service is currently rate-limited. Please try again in a few minutes."
	case KindUnavailable:
		return "The transcription service is temporarily unavailable. Please try again later."
	case KindSafetyBlocked:
		return "The transcription was skipped because the service flagged the audio content."
	case KindTooLarge:
		return "The recording is too large for the transcription service. Try recording shorter sessions."
	case KindInvalidInput:
		return "The recording could not be processed by the transcription service."
	case KindDeadline:
		return "The transcription timed out. Please try again later."
	default:
		return "Transcription failed due to an unexpected error. Please try again later."
	}
}
