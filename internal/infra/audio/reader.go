package audio

import (
	"encoding/binary"
	"math"
)

const sampleBytes = 4 // float32 little-endian

// RingReader adapts the consumer side of a Ring to the io.Reader the output
// device pulls from. Shortfall is filled with silence so the device never
// starves or sees EOF. A sample split across two reads is carried over to
// keep the byte stream aligned.
type RingReader struct {
	ring     *Ring
	scratch  []float32
	carry    [sampleBytes]byte
	carryOff int
	carryLen int
}

// NewRingReader creates a reader draining ring.
func NewRingReader(ring *Ring) *RingReader {
	return &RingReader{ring: ring}
}

// Read fills p completely with little-endian float32 samples, substituting
// zero samples when the ring runs dry. It never returns an error.
func (r *RingReader) Read(p []byte) (int, error) {
	n := 0
	for r.carryLen > 0 && n < len(p) {
		p[n] = r.carry[r.carryOff]
		r.carryOff++
		r.carryLen--
		n++
	}

	whole := (len(p) - n) / sampleBytes
	if whole > 0 {
		if cap(r.scratch) < whole {
			r.scratch = make([]float32, whole)
		}
		buf := r.scratch[:whole]
		got := r.ring.Pop(buf)
		for i := 0; i < whole; i++ {
			var v float32
			if i < got {
				v = buf[i]
			}
			binary.LittleEndian.PutUint32(p[n:], math.Float32bits(v))
			n += sampleBytes
		}
	}

	if rest := len(p) - n; rest > 0 {
		var one [1]float32
		r.ring.Pop(one[:])
		binary.LittleEndian.PutUint32(r.carry[:], math.Float32bits(one[0]))
		copy(p[n:], r.carry[:rest])
		r.carryOff = rest
		r.carryLen = sampleBytes - rest
		n += rest
	}
	return n, nil
}
