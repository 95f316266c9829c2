package audio

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const resampleQuality = 4

var (
	// ErrNoAudioStream indicates the file carries no decodable audio stream.
	ErrNoAudioStream = errors.New("no audio stream found")

	// ErrResamplerInit indicates the source cannot be converted to the
	// requested output format.
	ErrResamplerInit = errors.New("resampler initialization failed")
)

// Source is one open track: the decoder for its audio stream plus a
// resampler matched to the output device. Samples are drained as
// interleaved stereo blocks.
type Source struct {
	f       *os.File
	decoder beep.StreamSeekCloser
	stream  beep.Streamer
	format  beep.Format
	scratch [][2]float64
}

// OpenSource opens path, selects its audio stream, and builds a decoder and
// resampler producing interleaved samples in the target format, seeked to
// the start of the track.
func OpenSource(path string, target Format) (*Source, error) {
	if target.SampleRate <= 0 || target.Channels != 2 {
		return nil, errors.Wrapf(ErrResamplerInit, "unsupported target format %dHz/%dch", target.SampleRate, target.Channels)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open track %s", path)
	}
	decoder, format, err := decode(f, path)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(ErrNoAudioStream, "%s: %v", path, err)
	}
	if err := decoder.Seek(0); err != nil {
		_ = decoder.Close()
		_ = f.Close()
		return nil, errors.Wrapf(err, "seek to start of %s", path)
	}
	var stream beep.Streamer = decoder
	if int(format.SampleRate) != target.SampleRate {
		stream = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(target.SampleRate), decoder)
	}
	return &Source{f: f, decoder: decoder, stream: stream, format: format}, nil
}

func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".flac":
		return flac.Decode(f)
	case ".ogg", ".oga":
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, errors.Newf("unsupported container %q", filepath.Ext(path))
	}
}

// ReadBlock fills dst with up to len(dst) interleaved stereo samples and
// reports whether the stream still has input. A false return with a nil
// Err means the track ended naturally.
func (s *Source) ReadBlock(dst []float32) (int, bool) {
	frames := len(dst) / 2
	if cap(s.scratch) < frames {
		s.scratch = make([][2]float64, frames)
	}
	buf := s.scratch[:frames]
	n, ok := s.stream.Stream(buf)
	for i := 0; i < n; i++ {
		dst[2*i] = float32(buf[i][0])
		dst[2*i+1] = float32(buf[i][1])
	}
	return 2 * n, ok
}

// Err returns the first failure encountered while decoding.
func (s *Source) Err() error {
	return errors.Wrap(s.stream.Err(), "decode")
}

// Format returns the native format of the source stream.
func (s *Source) Format() Format {
	return Format{SampleRate: int(s.format.SampleRate), Channels: s.format.NumChannels}
}

// Close releases the decoder and the underlying file.
func (s *Source) Close() error {
	err := s.decoder.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return errors.Wrap(err, "close source")
}

// Info describes the audio stream found by Probe.
type Info struct {
	Format   Format
	Duration time.Duration
}

// Probe reports whether path contains a decodable audio stream, without
// keeping the file open.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, errors.Wrapf(err, "open track %s", path)
	}
	defer func() { _ = f.Close() }()

	decoder, format, err := decode(f, path)
	if err != nil {
		return Info{}, errors.Wrapf(ErrNoAudioStream, "%s: %v", path, err)
	}
	defer func() { _ = decoder.Close() }()

	var duration time.Duration
	if n := decoder.Len(); n > 0 {
		duration = format.SampleRate.D(n)
	}
	return Info{
		Format:   Format{SampleRate: int(format.SampleRate), Channels: format.NumChannels},
		Duration: duration,
	}, nil
}
