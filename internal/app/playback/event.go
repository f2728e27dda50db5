package playback

import "github.com/osa030/playdeck/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTimeUpdate   EventType = iota // Position advanced
	EventEnded                         // Track finished, once per load
	EventError                         // Load or playback failure
	EventStateChanged                  // Status changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTimeUpdate:
		return "time_update"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type       EventType
	Generation uint64       // Load generation the event belongs to
	Track      *track.Track // Loaded track (nil when idle)
	State      State        // Status after the event
	Position   float64      // Seconds
	Err        error        // Set for EventError
}
