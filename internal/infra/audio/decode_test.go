package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a PCM16 stereo fixture carrying a sample ramp: frame i
// holds i on the left channel and -i on the right.
func writeWAV(t *testing.T, path string, rate, frames int) {
	t.Helper()
	const blockAlign = 4 // 2 channels, 16-bit
	dataSize := frames * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	le(t, &buf, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	le(t, &buf, uint32(16))
	le(t, &buf, uint16(1)) // PCM
	le(t, &buf, uint16(2))
	le(t, &buf, uint32(rate))
	le(t, &buf, uint32(rate*blockAlign))
	le(t, &buf, uint16(blockAlign))
	le(t, &buf, uint16(16))
	buf.WriteString("data")
	le(t, &buf, uint32(dataSize))
	for i := 0; i < frames; i++ {
		le(t, &buf, int16(i))
		le(t, &buf, int16(-i))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func le(t *testing.T, buf *bytes.Buffer, v any) {
	t.Helper()
	require.NoError(t, binary.Write(buf, binary.LittleEndian, v))
}

func TestProbe_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 44100, 4410)

	info, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, Format{SampleRate: 44100, Channels: 2}, info.Format)
	assert.Equal(t, 100*time.Millisecond, info.Duration)
}

func TestProbe_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("not audio"), 0o644))
	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("RIFFxxxx"), 0o644))

	tests := []struct {
		name string
		path string
		want error
	}{
		{name: "unsupported container", path: txt, want: ErrNoAudioStream},
		{name: "corrupt stream", path: garbage, want: ErrNoAudioStream},
		{name: "missing file", path: filepath.Join(dir, "gone.wav")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Probe(tt.path)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestOpenSource_ReadsInterleavedBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.wav")
	const frames = 192
	writeWAV(t, path, 44100, frames)

	src, err := OpenSource(path, Format{SampleRate: 44100, Channels: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	assert.Equal(t, Format{SampleRate: 44100, Channels: 2}, src.Format())

	var got []float32
	dst := make([]float32, 64)
	for {
		n, ok := src.ReadBlock(dst)
		got = append(got, dst[:n]...)
		if !ok {
			break
		}
	}
	require.NoError(t, src.Err())
	require.Len(t, got, 2*frames)
	for i := 0; i < frames; i++ {
		assert.InDelta(t, float64(i)/32768, float64(got[2*i]), 1e-4)
		assert.InDelta(t, -float64(i)/32768, float64(got[2*i+1]), 1e-4)
	}
}

func TestOpenSource_ResamplesToTargetRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ramp.wav")
	const frames = 4410
	writeWAV(t, path, 44100, frames)

	src, err := OpenSource(path, Format{SampleRate: 22050, Channels: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	var total int
	dst := make([]float32, 512)
	for {
		n, ok := src.ReadBlock(dst)
		total += n
		if !ok {
			break
		}
	}
	require.NoError(t, src.Err())
	// Halving the rate halves the frame count, and each frame carries
	// two interleaved samples.
	assert.InDelta(t, frames, total, 64)
}

func TestOpenSource_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("not audio"), 0o644))
	tone := filepath.Join(dir, "tone.wav")
	writeWAV(t, tone, 44100, 64)

	tests := []struct {
		name   string
		path   string
		target Format
		want   error
	}{
		{
			name:   "unsupported container",
			path:   txt,
			target: Format{SampleRate: 44100, Channels: 2},
			want:   ErrNoAudioStream,
		},
		{
			name:   "missing file",
			path:   filepath.Join(dir, "gone.wav"),
			target: Format{SampleRate: 44100, Channels: 2},
		},
		{
			name:   "mono target",
			path:   tone,
			target: Format{SampleRate: 44100, Channels: 1},
			want:   ErrResamplerInit,
		},
		{
			name:   "zero rate target",
			path:   tone,
			target: Format{SampleRate: 0, Channels: 2},
			want:   ErrResamplerInit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenSource(tt.path, tt.target)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
