// Package playlist provides the playback queue domain entity.
package playlist

import (
	"github.com/cockroachdb/errors"

	"github.com/evhagen/spindle/internal/domain/track"
)

// ErrIndexOutOfRange is returned by SetIndex for positions outside the queue.
var ErrIndexOutOfRange = errors.New("queue index out of range")

// Queue is an ordered list of tracks with a cursor and a loop flag.
// The cursor may rest one position past the last track, meaning nothing is
// currently selected. Not safe for concurrent use; the control loop owning
// the queue performs all mutation.
type Queue struct {
	tracks []track.Track
	index  int
	loop   bool
}

// New creates a queue over tracks with the cursor on the first entry.
func New(tracks []track.Track, loop bool) *Queue {
	return &Queue{tracks: tracks, loop: loop}
}

// Current returns the track under the cursor, or nil when the cursor rests
// past the end.
func (q *Queue) Current() *track.Track {
	return q.at(q.index)
}

// Next advances the cursor and returns the newly selected track.
// With looping enabled the cursor wraps back to the first track; otherwise
// it stops one past the last track and stays there, returning nil.
func (q *Queue) Next() *track.Track {
	if len(q.tracks) == 0 {
		return nil
	}
	if q.loop {
		q.index++
		if q.index >= len(q.tracks) {
			q.index = 0
		}
		return q.at(q.index)
	}
	if q.index < len(q.tracks) {
		q.index++
	}
	return q.at(q.index)
}

// Previous moves the cursor back and returns the newly selected track.
// With looping enabled the cursor wraps from the start to the last track;
// otherwise it stays at zero and returns nil.
func (q *Queue) Previous() *track.Track {
	if len(q.tracks) == 0 {
		return nil
	}
	if q.loop {
		if q.index == 0 {
			q.index = len(q.tracks)
		}
		q.index--
		return q.at(q.index)
	}
	if q.index == 0 {
		return nil
	}
	q.index--
	return q.at(q.index)
}

// At returns the track at position i, or nil when i is out of range.
func (q *Queue) At(i int) *track.Track {
	return q.at(i)
}

// SetIndex moves the cursor onto an existing track.
func (q *Queue) SetIndex(i int) error {
	if i < 0 || i >= len(q.tracks) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, length %d", i, len(q.tracks))
	}
	q.index = i
	return nil
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Index returns the cursor position. A value equal to Len() means nothing
// is selected.
func (q *Queue) Index() int {
	return q.index
}

// Looping reports whether navigation wraps around the queue ends.
func (q *Queue) Looping() bool {
	return q.loop
}

// SetLooping changes the wrap behavior for future navigation.
func (q *Queue) SetLooping(loop bool) {
	q.loop = loop
}

func (q *Queue) at(i int) *track.Track {
	if i < 0 || i >= len(q.tracks) {
		return nil
	}
	return &q.tracks[i]
}
