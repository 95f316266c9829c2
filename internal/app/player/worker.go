// Package player provides the single-goroutine actor that owns the live
// playback engine. Requests are served strictly in order, and playing a
// track occupies the actor until the stream finishes or its state is
// driven to stopped.
package player

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/evhagen/spindle/internal/app/playback"
)

// eventBuffer absorbs events that race a track switch; the control loop
// drops the stale ones by their state handle.
const eventBuffer = 10

var (
	// ErrNoStream is replied to Prepare when no freshly loaded engine
	// exists.
	ErrNoStream = errors.New("no stream loaded")

	// ErrClosed is returned by client calls after the worker stopped.
	ErrClosed = errors.New("player worker stopped")
)

// EngineBuilder assembles one playback engine per track.
type EngineBuilder interface {
	Prepare(path string) (*playback.Engine, error)
}

type loadRequest struct {
	path  string
	reply chan<- error
}

type prepareReply struct {
	state *playback.StreamState
	err   error
}

type prepareRequest struct {
	reply chan<- prepareReply
}

// Worker serializes Load/Prepare requests against at most one live engine
// and emits lifecycle events once a stream ends.
type Worker struct {
	builder  EngineBuilder
	requests chan any
	events   chan Event
	stopped  chan struct{}

	// Owned by Run's goroutine.
	engine *playback.Engine
	ran    bool
}

// New creates a worker and the client issuing requests to it. The request
// channel between them is unbuffered, so a client call blocks until the
// worker is free to serve it.
func New(builder EngineBuilder) (*Worker, *Client) {
	w := &Worker{
		builder:  builder,
		requests: make(chan any),
		events:   make(chan Event, eventBuffer),
		stopped:  make(chan struct{}),
	}
	return w, &Client{requests: w.requests, stopped: w.stopped}
}

// Events returns the lifecycle event channel. It is closed when the worker
// stops.
func (w *Worker) Events() <-chan Event {
	return w.events
}

// Run serves requests on the calling goroutine until ctx is cancelled.
// Replies never block: every reply channel carries one slot, allocated by
// the client.
func (w *Worker) Run(ctx context.Context) {
	defer w.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			switch r := req.(type) {
			case loadRequest:
				r.reply <- w.load(r.path)
			case prepareRequest:
				w.prepare(r.reply)
			}
		}
	}
}

// load replaces the current engine with a fresh one for path. A build
// failure is replied to the caller and leaves the worker serving.
func (w *Worker) load(path string) error {
	w.discardEngine()
	engine, err := w.builder.Prepare(path)
	if err != nil {
		zlog.Debug().Msgf("player: load %s failed: %v", path, err)
		return err
	}
	w.engine = engine
	w.ran = false
	zlog.Debug().Msgf("player: loaded %s", path)
	return nil
}

// prepare hands the stream-state handle to the caller first, so the
// control loop can flip playing/paused while the stream runs, then drives
// the engine on this goroutine, blocking the worker for the whole track.
func (w *Worker) prepare(reply chan<- prepareReply) {
	if w.engine == nil || w.ran {
		reply <- prepareReply{err: ErrNoStream}
		return
	}
	w.ran = true
	state := w.engine.State()
	reply <- prepareReply{state: state}

	if err := w.engine.Run(); err != nil {
		zlog.Debug().Msgf("player: stream failed: %v", err)
		w.emit(Event{Type: EventStreamError, Err: err, State: state})
		return
	}
	if state.Status() == playback.StatusFinished {
		w.emit(Event{Type: EventDone, State: state})
	}
}

// emit delivers e without parking the actor. The buffer absorbs events in
// flight across a track switch; a full buffer means the control loop is
// gone or hopelessly behind, and the event describes a stream it has
// already abandoned.
func (w *Worker) emit(e Event) {
	select {
	case w.events <- e:
	default:
		zlog.Warn().Msgf("player: event buffer full, dropping %s", e.Type)
	}
}

// discardEngine releases the current engine after its run loop has
// provably exited. Run executes on this goroutine, so a started loop has
// already returned by the time the next request is served; the receive
// makes that explicit instead of assumed.
func (w *Worker) discardEngine() {
	if w.engine == nil {
		return
	}
	if w.ran {
		<-w.engine.Done()
	}
	if err := w.engine.Close(); err != nil {
		zlog.Warn().Msgf("player: close engine: %v", err)
	}
	w.engine = nil
	w.ran = false
}

func (w *Worker) shutdown() {
	w.discardEngine()
	close(w.events)
	close(w.stopped)
	zlog.Debug().Msg("player: worker stopped")
}
