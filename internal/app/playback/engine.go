// Package playback provides the streaming pipeline for one open track:
// decode, resample, ring buffer, device stream, and the shared stream
// state coordinating it with the control loop.
package playback

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/evhagen/spindle/internal/infra/audio"
)

// SampleSource yields interleaved stereo samples already resampled to the
// output format.
type SampleSource interface {
	// ReadBlock fills dst with up to len(dst) samples and reports whether
	// more input remains.
	ReadBlock(dst []float32) (int, bool)
	// Err returns the decoder failure, if any, once ReadBlock reported
	// exhaustion.
	Err() error
	Close() error
}

// OpenSourceFunc opens a track and prepares it for the target format.
type OpenSourceFunc func(path string, target audio.Format) (SampleSource, error)

// OutputDevice produces streams pulling samples in the device format.
type OutputDevice interface {
	Format() audio.Format
	OpenStream(src io.Reader) (audio.OutputStream, error)
}

var (
	_ SampleSource = (*audio.Source)(nil)
	_ OutputDevice = (*audio.Device)(nil)
)

// OpenAudioSource adapts audio.OpenSource to the engine interface.
func OpenAudioSource(path string, target audio.Format) (SampleSource, error) {
	src, err := audio.OpenSource(path, target)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Config sizes the pipeline between decoder and device.
type Config struct {
	BufferSize int // Ring capacity in samples
	BlockSize  int // Samples pushed per atomic block
}

// Builder prepares playback engines against one output device.
type Builder struct {
	device OutputDevice
	open   OpenSourceFunc
	cfg    Config
}

// NewBuilder creates an engine builder. The ring must hold at least one
// whole block or the pipeline could never make progress.
func NewBuilder(device OutputDevice, open OpenSourceFunc, cfg Config) (*Builder, error) {
	if cfg.BlockSize <= 0 || cfg.BufferSize < cfg.BlockSize {
		return nil, errors.Newf("invalid pipeline sizes: block %d, buffer %d", cfg.BlockSize, cfg.BufferSize)
	}
	return &Builder{device: device, open: open, cfg: cfg}, nil
}

// Prepare opens path and assembles its full pipeline: a decoder and
// resampler matched to the device format, the ring buffer, a device stream
// pulling from the ring's consumer side, and a fresh state seeded Paused.
// Nothing is decoded and no device output starts until Run.
func (b *Builder) Prepare(path string) (*Engine, error) {
	src, err := b.open(path, b.device.Format())
	if err != nil {
		return nil, err
	}
	ring := audio.NewRing(b.cfg.BufferSize)
	out, err := b.device.OpenStream(audio.NewRingReader(ring))
	if err != nil {
		_ = src.Close()
		return nil, errors.Wrap(err, "open device stream")
	}
	e := &Engine{
		id:    uuid.New().String(),
		src:   src,
		ring:  ring,
		out:   out,
		state: NewStreamState(),
		block: make([]float32, b.cfg.BlockSize),
		done:  make(chan struct{}),
	}
	zlog.Debug().Msgf("playback: engine %s prepared for %s", e.id, path)
	return e, nil
}

// Engine streams one prepared track from its decoder into the device.
type Engine struct {
	id    string
	src   SampleSource
	ring  *audio.Ring
	out   audio.OutputStream
	state *StreamState
	block []float32
	done  chan struct{}
}

// State returns the shared stream state handle.
func (e *Engine) State() *StreamState {
	return e.state
}

// Done is closed once Run has returned. Whoever replaces the engine waits
// on it so the old loop has provably exited before resources are released.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Run executes the decode loop on the calling goroutine until the track
// ends, the state is stopped, or decoding fails. The state is consulted
// before every block: Stopped abandons the remaining input, Paused suspends
// the device stream and parks until the next transition.
func (e *Engine) Run() error {
	defer close(e.done)

	if err := e.out.Play(); err != nil {
		return errors.Wrap(err, "start output stream")
	}
	zlog.Debug().Msgf("playback: engine %s streaming", e.id)

	for {
		switch e.state.Status() {
		case StatusStopped:
			zlog.Debug().Msgf("playback: engine %s stopped", e.id)
			return nil
		case StatusPaused:
			if err := e.parkWhilePaused(); err != nil {
				return err
			}
			continue
		}

		n, ok := e.src.ReadBlock(e.block)
		if n > 0 && !e.pushBlock(e.block[:n]) {
			zlog.Debug().Msgf("playback: engine %s stopped while waiting for buffer space", e.id)
			return nil
		}
		if !ok {
			if err := e.src.Err(); err != nil {
				return err
			}
			if e.state.finish() {
				zlog.Debug().Msgf("playback: engine %s finished", e.id)
			}
			return nil
		}
	}
}

// parkWhilePaused suspends the device stream and blocks until the state
// leaves Paused. The caller re-dispatches on the new state.
func (e *Engine) parkWhilePaused() error {
	if err := e.out.Pause(); err != nil {
		return errors.Wrap(err, "suspend output stream")
	}
	zlog.Debug().Msgf("playback: engine %s paused", e.id)
	for {
		ch := e.state.Changed()
		switch e.state.Status() {
		case StatusPlaying:
			zlog.Debug().Msgf("playback: engine %s resumed", e.id)
			return errors.Wrap(e.out.Play(), "resume output stream")
		case StatusPaused:
			<-ch
		default:
			return nil
		}
	}
}

// pushBlock inserts block whole, parking while the ring lacks space for
// it. It returns false when the state was stopped while waiting.
func (e *Engine) pushBlock(block []float32) bool {
	for !e.ring.TryPush(block) {
		ch := e.state.Changed()
		if e.state.Status() == StatusStopped {
			return false
		}
		select {
		case <-e.ring.Freed():
		case <-ch:
		}
	}
	return true
}

// Close releases the source and the device stream. The engine must not be
// running.
func (e *Engine) Close() error {
	err := e.src.Close()
	if cerr := e.out.Close(); err == nil {
		err = cerr
	}
	zlog.Debug().Msgf("playback: engine %s closed", e.id)
	return err
}
