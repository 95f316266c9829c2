package player

import "github.com/evhagen/spindle/internal/app/playback"

// EventType represents a player lifecycle event type.
type EventType int

const (
	// EventDone reports that the current track played to its natural end.
	EventDone EventType = iota
	// EventStreamError reports that the current track failed mid-stream.
	EventStreamError
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventDone:
		return "done"
	case EventStreamError:
		return "stream_error"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification sent to the control loop. State is
// the handle of the stream the event belongs to; the control loop compares
// it against its current handle to discard events that raced a track
// switch.
type Event struct {
	Type  EventType
	Err   error // set for EventStreamError
	State *playback.StreamState
}
