package playback

import "sync"

// Status is the lifecycle state of one prepared stream.
type Status int

const (
	// StatusPaused is the initial state of every prepared stream.
	StatusPaused Status = iota
	// StatusPlaying means the decode loop is feeding the device.
	StatusPlaying
	// StatusStopped is set by the control loop to abandon the stream.
	StatusStopped
	// StatusFinished is set by the engine when input is exhausted.
	StatusFinished
)

// String returns the state name.
func (s Status) String() string {
	switch s {
	case StatusPaused:
		return "paused"
	case StatusPlaying:
		return "playing"
	case StatusStopped:
		return "stopped"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stream can make no further progress.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusFinished
}

// StreamState is the shared status cell of one prepared stream. The control
// loop flips Playing/Paused and forces Stopped; the engine sets Finished on
// natural end of input. Waiters park on Changed instead of polling.
type StreamState struct {
	mu      sync.Mutex
	status  Status
	changed chan struct{}
}

// NewStreamState creates a cell seeded Paused.
func NewStreamState() *StreamState {
	return &StreamState{status: StatusPaused, changed: make(chan struct{})}
}

// Status returns the current state.
func (s *StreamState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Changed returns a channel closed at the next transition. Grab the channel
// before reading Status to avoid missing a wake.
func (s *StreamState) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Play moves a Paused stream to Playing and reports whether the stream is
// playing afterwards. Terminal states are left untouched.
func (s *StreamState) Play() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusPaused {
		s.transitionLocked(StatusPlaying)
	}
	return s.status == StatusPlaying
}

// Toggle flips between Playing and Paused and returns the resulting state.
// Terminal states are left untouched.
func (s *StreamState) Toggle() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusPlaying:
		s.transitionLocked(StatusPaused)
	case StatusPaused:
		s.transitionLocked(StatusPlaying)
	}
	return s.status
}

// Stop abandons the stream from any state. The engine observes the change
// and winds down.
func (s *StreamState) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionLocked(StatusStopped)
}

// finish marks natural end of input. A stream stopped in the meantime stays
// stopped; the engine checks the result to decide whether the track counts
// as completed.
func (s *StreamState) finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusPlaying || s.status == StatusPaused {
		s.transitionLocked(StatusFinished)
		return true
	}
	return false
}

func (s *StreamState) transitionLocked(st Status) {
	if s.status == st {
		return
	}
	s.status = st
	close(s.changed)
	s.changed = make(chan struct{})
}
