// Package transcribe turns recorded audio into text through a remote
// generative API, bounding concurrency and retrying transient failures.
//
// The central type is [Client], which wraps a [Service] implementation with a
// weighted semaphore limiting in-flight API calls and a retry loop with
// exponential backoff. Errors are classified by [Kind] so callers can
// distinguish transient from permanent failures and map any failure to a
// user-facing message with [UserMessage].
package transcribe

import (
	"context"
	"io"
)

// RemoteRef identifies a file that has been uploaded to the remote service
// and is ready to be referenced in a generation request.
type RemoteRef struct {
	// Name is the service-side resource name, used for deletion.
	Name string
	// URI is the reference passed into generation requests.
	URI string
	// MIMEType is the declared content type of the upload.
	MIMEType string
}

// Service is the remote generative API surface the client depends on.
// Implementations classify their failures by returning a [*ServiceError].
type Service interface {
	// Upload transfers audio to the service and blocks until the remote file
	// is ready for use in generation requests.
	Upload(ctx context.Context, r io.Reader, mimeType string) (RemoteRef, error)

	// GenerateFromFile runs a generation request over a previously uploaded
	// file and returns the produced text.
	GenerateFromFile(ctx context.Context, ref RemoteRef, prompt string) (string, error)

	// GenerateText runs a text-only generation request.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// DeleteRemote removes an uploaded file from the service.
	DeleteRemote(ctx context.Context, ref RemoteRef) error
}
