// Package jukebox runs the control loop tying user commands, player worker
// events, and the playlist queue together.
package jukebox

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/evhagen/spindle/internal/app/playback"
	"github.com/evhagen/spindle/internal/app/player"
	"github.com/evhagen/spindle/internal/domain/command"
	"github.com/evhagen/spindle/internal/domain/playlist"
	"github.com/evhagen/spindle/internal/domain/track"
)

// ErrQueueEmpty is returned by Run when there is nothing to play.
var ErrQueueEmpty = errors.New("playlist queue is empty")

// ErrorPolicy decides how Run reacts to a mid-stream decoder failure.
type ErrorPolicy string

const (
	// ErrorPolicyFatal ends the control loop with the stream error.
	ErrorPolicyFatal ErrorPolicy = "fatal"
	// ErrorPolicySkip logs the failure and advances to the next track.
	ErrorPolicySkip ErrorPolicy = "skip"
)

// Config holds the runtime flags owned by the control loop.
type Config struct {
	Autoplay      bool        // Start the next track playing after a natural finish
	ShowState     bool        // Render the queue window after each load
	Window        int         // Entries shown before and after the cursor
	OnStreamError ErrorPolicy // fatal or skip
}

// Player is the worker client surface the control loop drives.
type Player interface {
	Load(ctx context.Context, path string) error
	Prepare(ctx context.Context) (*playback.StreamState, error)
}

// Jukebox owns the playlist queue and reacts to commands and player events.
// All fields are confined to the Run goroutine.
type Jukebox struct {
	queue    *playlist.Queue
	cfg      Config
	worker   Player
	events   <-chan player.Event
	commands <-chan command.Command
	render   *Renderer
	state    *playback.StreamState
}

// New assembles a control loop over an already-built queue and worker client.
func New(queue *playlist.Queue, cfg Config, worker Player, events <-chan player.Event,
	commands <-chan command.Command, out io.Writer) *Jukebox {
	return &Jukebox{
		queue:    queue,
		cfg:      cfg,
		worker:   worker,
		events:   events,
		commands: commands,
		render:   NewRenderer(out, cfg.Window),
	}
}

// Run loads the queue's current track and serves commands and events until a
// quit, an input close, a fatal stream error, or context cancellation. The
// current stream is stopped on the way out so the worker can wind down.
func (j *Jukebox) Run(ctx context.Context) error {
	cur := j.queue.Current()
	if cur == nil {
		return ErrQueueEmpty
	}
	defer j.stopCurrent()

	if err := j.loadTrack(ctx, cur); err != nil {
		return err
	}
	if j.cfg.Autoplay {
		j.state.Play()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-j.commands:
			if !ok {
				zlog.Debug().Msg("jukebox: input closed")
				return nil
			}
			quit, err := j.handleCommand(ctx, cmd)
			if err != nil || quit {
				return err
			}
		case ev, ok := <-j.events:
			if !ok {
				zlog.Debug().Msg("jukebox: player events closed")
				return nil
			}
			if err := j.handleEvent(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (j *Jukebox) handleCommand(ctx context.Context, cmd command.Command) (quit bool, err error) {
	zlog.Debug().Msgf("jukebox: command %s", cmd)
	switch cmd {
	case command.Quit:
		return true, nil
	case command.Next:
		return false, j.skipTo(ctx, j.queue.Next())
	case command.Previous:
		return false, j.skipTo(ctx, j.queue.Previous())
	case command.Restart:
		return false, j.restart(ctx)
	case command.TogglePlay:
		j.togglePlay()
	case command.ToggleLoop:
		j.queue.SetLooping(!j.queue.Looping())
		zlog.Info().Msgf("jukebox: loop %s", onOff(j.queue.Looping()))
	case command.ToggleAutoplay:
		j.cfg.Autoplay = !j.cfg.Autoplay
		zlog.Info().Msgf("jukebox: autoplay %s", onOff(j.cfg.Autoplay))
	case command.ToggleShowState:
		j.cfg.ShowState = !j.cfg.ShowState
		if j.cfg.ShowState {
			j.render.Render(j.queue, j.cfg.Autoplay)
		}
	}
	return false, nil
}

// handleEvent reacts to worker events for the current stream. Events tagged
// with an older state handle belong to a stream this loop already replaced or
// dropped; acting on them would advance the queue twice.
func (j *Jukebox) handleEvent(ctx context.Context, ev player.Event) error {
	if ev.State != j.state {
		zlog.Debug().Msgf("jukebox: dropping stale %s event", ev.Type)
		return nil
	}
	switch ev.Type {
	case player.EventDone:
		zlog.Debug().Msg("jukebox: track finished")
		return j.advance(ctx)
	case player.EventStreamError:
		if j.cfg.OnStreamError == ErrorPolicySkip {
			zlog.Warn().Err(ev.Err).Msg("jukebox: stream failed, skipping to the next track")
			return j.advance(ctx)
		}
		return errors.Wrap(ev.Err, "stream failed")
	}
	return nil
}

// skipTo switches to t and starts it regardless of the previous pause state.
// A nil track means navigation hit the end of a non-looping queue; the
// current stream keeps going.
func (j *Jukebox) skipTo(ctx context.Context, t *track.Track) error {
	if t == nil {
		zlog.Info().Msg("jukebox: nothing further in the queue")
		return nil
	}
	if err := j.loadTrack(ctx, t); err != nil {
		return err
	}
	j.state.Play()
	return nil
}

// advance moves on after the current track ended. At the end of a non-looping
// queue the handle is dropped and the loop keeps serving commands.
func (j *Jukebox) advance(ctx context.Context) error {
	next := j.queue.Next()
	if next == nil {
		zlog.Info().Msg("jukebox: end of playlist")
		j.state = nil
		return nil
	}
	if err := j.loadTrack(ctx, next); err != nil {
		return err
	}
	if j.cfg.Autoplay {
		j.state.Play()
	}
	return nil
}

// restart reloads the current track from the top, resuming only if it was
// playing.
func (j *Jukebox) restart(ctx context.Context) error {
	cur := j.queue.Current()
	if cur == nil {
		return nil
	}
	wasPlaying := j.state != nil && j.state.Status() == playback.StatusPlaying
	if err := j.loadTrack(ctx, cur); err != nil {
		return err
	}
	if wasPlaying {
		j.state.Play()
	}
	return nil
}

func (j *Jukebox) togglePlay() {
	if j.state == nil {
		zlog.Debug().Msg("jukebox: nothing loaded, toggle ignored")
		return
	}
	zlog.Info().Msgf("jukebox: %s", j.state.Toggle())
}

// loadTrack swaps the worker over to t: stop the old stream so its run loop
// unparks, hand the path to the worker, keep the fresh state handle. Failures
// here are process-fatal to the loop.
func (j *Jukebox) loadTrack(ctx context.Context, t *track.Track) error {
	j.stopCurrent()
	if err := j.worker.Load(ctx, t.Path); err != nil {
		return errors.Wrapf(err, "load %s", t.Path)
	}
	state, err := j.worker.Prepare(ctx)
	if err != nil {
		return errors.Wrapf(err, "prepare %s", t.Path)
	}
	j.state = state
	zlog.Info().Msgf("jukebox: loaded %s", t.DisplayName())
	if j.cfg.ShowState {
		j.render.Render(j.queue, j.cfg.Autoplay)
	}
	return nil
}

func (j *Jukebox) stopCurrent() {
	if j.state != nil {
		j.state.Stop()
	}
}
