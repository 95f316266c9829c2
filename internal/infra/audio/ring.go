package audio

import "sync"

// Ring is a fixed-capacity single-producer/single-consumer sample buffer.
// Blocks are pushed whole or not at all, so the consumer never observes a
// torn block. A capacity-1 token channel signals freed space, letting a
// stalled producer park instead of polling.
type Ring struct {
	mu    sync.Mutex
	buf   []float32
	head  int // next sample to pop
	count int // samples currently buffered
	freed chan struct{}
}

// NewRing creates a ring buffer holding up to capacity samples.
func NewRing(capacity int) *Ring {
	return &Ring{
		buf:   make([]float32, capacity),
		freed: make(chan struct{}, 1),
	}
}

// TryPush appends the whole block in push order. It returns false without
// writing anything when free space is smaller than the block.
func (r *Ring) TryPush(block []float32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(block) > len(r.buf)-r.count {
		return false
	}
	tail := (r.head + r.count) % len(r.buf)
	n := copy(r.buf[tail:], block)
	copy(r.buf, block[n:])
	r.count += len(block)
	return true
}

// Pop moves up to len(dst) samples into dst in push order and returns how
// many were copied.
func (r *Ring) Pop(dst []float32) int {
	r.mu.Lock()
	n := min(r.count, len(dst))
	if n > 0 {
		first := copy(dst[:n], r.buf[r.head:min(r.head+n, len(r.buf))])
		copy(dst[first:n], r.buf[:n-first])
		r.head = (r.head + n) % len(r.buf)
		r.count -= n
	}
	r.mu.Unlock()

	if n > 0 {
		select {
		case r.freed <- struct{}{}:
		default:
		}
	}
	return n
}

// Freed returns a channel receiving a token after the consumer makes space.
// Tokens coalesce; a waiter must retry its push after every wake.
func (r *Ring) Freed() <-chan struct{} {
	return r.freed
}

// Len returns the number of buffered samples.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity in samples.
func (r *Ring) Cap() int {
	return len(r.buf)
}
