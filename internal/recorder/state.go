package recorder

// State is the lifecycle phase of a community's recording session.
type State int

const (
	// StateIdle means no session exists for the community.
	StateIdle State = iota

	// StateConnecting means a session has been reserved and the voice
	// connection is being established.
	StateConnecting

	// StateRecording means audio is being captured into the session's sink.
	StateRecording

	// StateFinalizing covers everything after capture stops: draining the
	// sink, transcription and publishing. The session slot stays reserved
	// until finalizing completes.
	StateFinalizing
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}
