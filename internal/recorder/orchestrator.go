// Package recorder contains the per-community recording session state
// machine. It consumes presence events, owns the voice connection and audio
// sink for each live session, and drives captured audio through transcription
// to the community's result channel.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/calliope-bot/calliope/internal/capture"
	"github.com/calliope-bot/calliope/internal/observe"
	"github.com/calliope-bot/calliope/internal/settings"
	"github.com/calliope-bot/calliope/internal/transcribe"
	"github.com/calliope-bot/calliope/pkg/voice"
)

// Transcriber turns captured audio into text. Implemented by
// [transcribe.Client].
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	Enhance(ctx context.Context, text string) string
}

// Transcript is a finished transcription ready for publishing.
type Transcript struct {
	// ChannelName is the display name of the recorded voice channel.
	ChannelName string
	// StartedAt is when recording began.
	StartedAt time.Time
	// Speakers is the number of distinct speakers heard.
	Speakers int
	// Text is the transcript body.
	Text string
}

// Publisher delivers results to the community's configured result channel.
type Publisher interface {
	// PublishTranscript posts a finished transcript.
	PublishTranscript(ctx context.Context, channelID string, t Transcript) error

	// PublishFailure posts a user-facing failure message.
	PublishFailure(ctx context.Context, channelID, message string) error
}

// session is one recording episode for one community. It is registered in
// the orchestrator's session map from reservation until finalizing completes,
// which is what enforces the at-most-one-session-per-community invariant.
type session struct {
	mu sync.Mutex

	communityID   string
	targetChannel string
	state         State
	conn          voice.Connection
	sink          *capture.Sink
	startedAt     time.Time
}

// Orchestrator runs the recording state machine for every community this
// process serves. All state transitions for one community are serialized;
// different communities proceed independently.
type Orchestrator struct {
	platform    voice.Platform
	store       settings.Store
	transcriber Transcriber
	publisher   Publisher
	directory   ChannelDirectory
	metrics     *observe.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*session

	// finalizeWG tracks in-flight finalizations so Close can wait for them.
	finalizeWG sync.WaitGroup
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMetrics sets the metrics instruments used by the orchestrator.
func WithMetrics(m *observe.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an Orchestrator. The given context bounds all
// background work; cancelling it (or calling [Orchestrator.Close]) stops
// in-flight finalizations.
func NewOrchestrator(
	ctx context.Context,
	platform voice.Platform,
	store settings.Store,
	transcriber Transcriber,
	publisher Publisher,
	directory ChannelDirectory,
	opts ...OrchestratorOption,
) *Orchestrator {
	octx, cancel := context.WithCancel(ctx)
	o := &Orchestrator{
		platform:    platform,
		store:       store,
		transcriber: transcriber,
		publisher:   publisher,
		directory:   directory,
		ctx:         octx,
		cancel:      cancel,
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	return o
}

// HandlePresence routes one presence event. Safe to call concurrently;
// callers typically invoke it from the platform's event-handler goroutines.
func (o *Orchestrator) HandlePresence(ev PresenceEvent) {
	gs, ok, err := o.store.Get(o.ctx, ev.CommunityID)
	if err != nil {
		slog.Error("recorder: settings lookup failed", "community_id", ev.CommunityID, "error", err)
		return
	}
	if !ok {
		return
	}

	switch d, target := decide(ev, gs.VoiceCategoryID, o.directory); d {
	case decideStart:
		o.HandleStart(ev.CommunityID, target)
	case decideStop:
		o.HandleStop(ev.CommunityID)
	}
}

// HandleStart begins a recording session for the community. It is a logged
// no-op when a session already exists in any non-idle state, or when the
// platform still holds a voice connection this process is not tracking.
func (o *Orchestrator) HandleStart(communityID, targetChannel string) {
	o.mu.Lock()
	if _, exists := o.sessions[communityID]; exists {
		o.mu.Unlock()
		slog.Info("recorder: session already active, ignoring start", "community_id", communityID)
		return
	}
	if o.platform.HasLiveConnection(communityID) {
		o.mu.Unlock()
		slog.Warn("recorder: untracked live voice connection, refusing to start", "community_id", communityID)
		return
	}
	sess := &session{
		communityID:   communityID,
		targetChannel: targetChannel,
		state:         StateConnecting,
	}
	o.sessions[communityID] = sess
	o.mu.Unlock()

	slog.Info("recorder: starting session", "community_id", communityID, "channel_id", targetChannel)

	conn, err := o.platform.Connect(o.ctx, communityID, targetChannel)
	if err != nil {
		o.remove(communityID)
		slog.Error("recorder: voice connect failed", "community_id", communityID, "channel_id", targetChannel, "error", err)
		return
	}

	sess.mu.Lock()
	sess.conn = conn
	sess.sink = capture.NewSink()
	sess.startedAt = time.Now()
	sess.state = StateRecording
	conn.AttachSink(sess.sink)
	conn.OnCaptureComplete(func() { o.onCaptureComplete(communityID) })
	sess.mu.Unlock()

	o.metrics.ActiveSessions.Add(o.ctx, 1)
	slog.Info("recorder: recording", "community_id", communityID, "channel_id", targetChannel)
}

// HandleStop ends the capture phase for the community's session. It is a
// no-op unless the session is currently recording. Capture stops
// asynchronously; finalizing continues when the capture-complete callback
// fires.
func (o *Orchestrator) HandleStop(communityID string) {
	o.mu.Lock()
	sess := o.sessions[communityID]
	o.mu.Unlock()
	if sess == nil {
		return
	}

	sess.mu.Lock()
	if sess.state != StateRecording {
		sess.mu.Unlock()
		return
	}
	sess.state = StateFinalizing
	conn := sess.conn
	sess.conn = nil
	sess.mu.Unlock()

	slog.Info("recorder: stopping capture", "community_id", communityID)
	conn.StopCapture()
	if err := conn.Disconnect(); err != nil {
		slog.Warn("recorder: voice disconnect error", "community_id", communityID, "error", err)
	}
}

// RequestManualStop ends the community's session on explicit user request.
func (o *Orchestrator) RequestManualStop(communityID string) {
	o.HandleStop(communityID)
}

// SessionState reports the current state for a community. Communities with
// no session are idle.
func (o *Orchestrator) SessionState(communityID string) State {
	o.mu.Lock()
	sess := o.sessions[communityID]
	o.mu.Unlock()
	if sess == nil {
		return StateIdle
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// onCaptureComplete finishes a session once the platform confirms all
// buffered audio has been delivered: drain, transcribe, publish, reset to
// idle. Runs on the platform's callback goroutine.
func (o *Orchestrator) onCaptureComplete(communityID string) {
	o.mu.Lock()
	sess := o.sessions[communityID]
	o.mu.Unlock()
	if sess == nil {
		return
	}

	sess.mu.Lock()
	// Capture can also end without an explicit stop, e.g. when the voice
	// connection drops. Treat that as a stop.
	if sess.state == StateRecording || sess.state == StateConnecting {
		sess.state = StateFinalizing
		if sess.conn != nil {
			if err := sess.conn.Disconnect(); err != nil {
				slog.Warn("recorder: voice disconnect error", "community_id", communityID, "error", err)
			}
			sess.conn = nil
		}
	}
	sink := sess.sink
	sess.mu.Unlock()

	o.finalizeWG.Add(1)
	defer o.finalizeWG.Done()
	defer func() {
		o.remove(communityID)
		o.metrics.ActiveSessions.Add(o.ctx, -1)
	}()

	var merged []byte
	var speakers int
	if sink != nil {
		speakers = len(sink.Speakers())
		merged = sink.Drain()
	}
	if len(merged) == 0 {
		slog.Info("recorder: no audio captured, discarding session", "community_id", communityID)
		return
	}
	o.metrics.CapturedBytes.Add(o.ctx, int64(len(merged)))

	gs, ok, err := o.store.Get(o.ctx, communityID)
	if err != nil || !ok || gs.ResultChannelID == "" {
		slog.Error("recorder: no result channel configured, dropping transcript",
			"community_id", communityID, "error", err)
		return
	}

	o.finalize(sess, gs.ResultChannelID, merged, speakers)
}

// finalize transcribes the merged audio and publishes the outcome. Any
// failure is surfaced to the result channel as a user-facing message; a
// publish failure itself is only logged.
func (o *Orchestrator) finalize(sess *session, resultChannelID string, merged []byte, speakers int) {
	communityID := sess.communityID

	wav, err := capture.WAV(merged)
	if err != nil {
		slog.Error("recorder: packaging audio failed", "community_id", communityID, "error", err)
		o.publishFailure(resultChannelID, communityID, transcribe.UserMessage(err))
		return
	}

	slog.Info("recorder: transcribing", "community_id", communityID, "audio_bytes", len(wav), "speakers", speakers)
	text, err := o.transcriber.Transcribe(o.ctx, wav, "audio/wav")
	if err != nil {
		slog.Error("recorder: transcription failed", "community_id", communityID, "error", err)
		o.publishFailure(resultChannelID, communityID, transcribe.UserMessage(err))
		return
	}
	text = o.transcriber.Enhance(o.ctx, text)

	t := Transcript{
		ChannelName: o.directory.ChannelName(communityID, sess.targetChannel),
		StartedAt:   sess.startedAt,
		Speakers:    speakers,
		Text:        text,
	}
	if err := o.publisher.PublishTranscript(o.ctx, resultChannelID, t); err != nil {
		slog.Error("recorder: publishing transcript failed", "community_id", communityID, "error", err)
		o.metrics.RecordPublishFailure(o.ctx, communityID)
	}
}

// publishFailure posts a failure message, logging delivery problems.
func (o *Orchestrator) publishFailure(resultChannelID, communityID, message string) {
	if err := o.publisher.PublishFailure(o.ctx, resultChannelID, message); err != nil {
		slog.Error("recorder: publishing failure message failed", "community_id", communityID, "error", err)
		o.metrics.RecordPublishFailure(o.ctx, communityID)
	}
}

// remove clears the community's session slot, returning it to idle.
func (o *Orchestrator) remove(communityID string) {
	o.mu.Lock()
	delete(o.sessions, communityID)
	o.mu.Unlock()
}

// Close disconnects all live sessions and waits briefly for in-flight
// finalizations. Audio not yet transcribed when the context is cancelled is
// lost.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	var conns []voice.Connection
	for _, sess := range o.sessions {
		sess.mu.Lock()
		if sess.conn != nil {
			conns = append(conns, sess.conn)
			sess.conn = nil
		}
		sess.mu.Unlock()
	}
	o.mu.Unlock()

	for _, conn := range conns {
		conn.StopCapture()
		if err := conn.Disconnect(); err != nil {
			slog.Warn("recorder: disconnect during shutdown", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		o.finalizeWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		slog.Warn("recorder: shutdown timed out waiting for finalizations")
	}
	o.cancel()
}
