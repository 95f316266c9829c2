// Package audio provides the audio data plane: stream decoding and
// resampling via beep, the output device via oto, and the ring buffer
// connecting producer and device callback.
package audio

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/oto/v3"
)

// OutputStream is one live stream on the output device. Pausing suspends
// the device pull; closing releases the stream.
type OutputStream interface {
	Play() error
	Pause() error
	Close() error
}

// DeviceConfig controls output device negotiation.
type DeviceConfig struct {
	SampleRate int
}

// Device wraps the process-wide output device context. The device pulls
// interleaved stereo float32 samples from the reader given to OpenStream.
type Device struct {
	ctx    *oto.Context
	format Format
}

// OpenDevice initializes the output device and waits until it is ready.
// Only one device context may exist per process.
func OpenDevice(cfg DeviceConfig) (*Device, error) {
	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, errors.Wrap(err, "initialize output device")
	}
	<-ready
	return &Device{ctx: ctx, format: Format{SampleRate: cfg.SampleRate, Channels: 2}}, nil
}

// Format returns the negotiated output format.
func (d *Device) Format() Format {
	return d.format
}

// OpenStream registers src as the pull source of a new device stream.
// The stream starts suspended; Play begins pulling.
func (d *Device) OpenStream(src io.Reader) (OutputStream, error) {
	return &otoStream{player: d.ctx.NewPlayer(src)}, nil
}

type otoStream struct {
	player *oto.Player
}

func (s *otoStream) Play() error {
	s.player.Play()
	return nil
}

func (s *otoStream) Pause() error {
	s.player.Pause()
	return nil
}

func (s *otoStream) Close() error {
	return errors.Wrap(s.player.Close(), "close output stream")
}
