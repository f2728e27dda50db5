// Package playback owns the single live audio resource and its playback state.
package playback

// State represents the playback status.
type State int

const (
	StateIdle    State = iota // No resource attached
	StateLoading              // Resource attached, waiting for readiness
	StatePlaying              // Resource is sounding
	StatePaused               // Resource is paused
	StateEnded                // Track played to completion
	StateError                // Resource failed to load or play
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
