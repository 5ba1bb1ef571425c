// Package voice defines the interfaces for voice-channel connectivity and
// audio capture within Calliope.
//
// The two primary abstractions are:
//
//   - [Platform] — connects to a voice channel and returns a [Connection].
//   - [Connection] — represents an active capture session on that channel,
//     feeding per-speaker audio into an attached [CaptureSink] until capture
//     is stopped.
//
// Implementations are provided by platform-specific adapter packages
// (e.g. voice/discord). The interfaces are intentionally narrow so the
// recording orchestrator stays decoupled from provider details.
//
// This package lives under pkg/ because external code (third-party platform
// adapters) is expected to implement [Platform] and [Connection].
package voice

import "context"

// CaptureSink receives decoded audio from a [Connection].
//
// Append is invoked on the audio-delivery path, potentially once per speaker
// per frame interval, and must not block for more than a bounded, small
// duration. Implementations must be safe for concurrent use.
type CaptureSink interface {
	// Append records one decoded PCM chunk for the given speaker.
	// Chunks for the same speaker arrive in order.
	Append(speakerID string, chunk []byte)
}

// Connection represents an active capture session on a voice channel.
//
// A Connection is obtained from [Platform.Connect] and remains valid until
// [Connection.Disconnect] is called. Implementations must be safe for
// concurrent use.
type Connection interface {
	// AttachSink wires sink into the connection's audio pipeline. Decoded
	// audio chunks are delivered to the sink until StopCapture is called.
	// Only one sink may be attached; subsequent calls replace it.
	AttachSink(sink CaptureSink)

	// StopCapture asynchronously stops feeding audio into the attached sink.
	// The platform keeps delivering already-buffered audio for a short drain
	// window; the callback registered via OnCaptureComplete fires once that
	// buffered audio has been fully delivered. Safe to call more than once.
	StopCapture()

	// OnCaptureComplete registers cb to be invoked exactly once, after
	// capture has stopped and all buffered audio has been delivered to the
	// sink. The callback runs on an internal goroutine — callers must not
	// block. Only one callback may be registered; subsequent calls replace
	// the previous registration.
	OnCaptureComplete(cb func())

	// Disconnect tears down the voice connection. Capture completion and
	// disconnect completion are independent: a pending OnCaptureComplete
	// callback still fires after Disconnect. Safe to call more than once;
	// subsequent calls are no-ops and return nil.
	Disconnect() error
}

// Platform is the entry point for a voice-channel provider.
// Implementations wrap provider-specific SDKs and expose a uniform
// [Connection] abstraction.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins the voice channel identified by channelID within the
	// given community and returns an active [Connection]. The supplied ctx
	// governs the connection attempt only; once connected, the Connection
	// remains alive until [Connection.Disconnect] is called.
	Connect(ctx context.Context, communityID, channelID string) (Connection, error)

	// HasLiveConnection reports whether the underlying provider already has
	// a live voice connection for the community, regardless of whether this
	// process created it. Used as a defensive check against orphaned
	// connections left behind by a prior crash.
	HasLiveConnection(communityID string) bool
}
