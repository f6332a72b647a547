// Package ingress is the bounded hand-off between the network goroutine
// and the controller loop.
//
// Ring is a single-producer single-consumer queue of fixed-size slots.
// Exactly one goroutine may call Push and exactly one may call Pop; head
// and tail are published with atomic stores, so no locks are taken.
package ingress

import (
	"errors"
	"sync/atomic"
)

// Default sizing.
const (
	DefaultCapacity = 8
	MaxFrameSize    = 512
)

var (
	// ErrFull is returned when the ring has no free slot. The frame is dropped.
	ErrFull = errors.New("ingress: queue full")

	// ErrOversize is returned for a frame longer than the slot size.
	ErrOversize = errors.New("ingress: frame too large")
)

// Frame is one inbound text message and the client that sent it.
type Frame struct {
	ClientID string
	Data     []byte
}

type slot struct {
	clientID string
	n        int
	buf      [MaxFrameSize]byte
}

// Ring is a fixed-capacity SPSC queue of frames.
//
// Thread Safety:
//   - Exactly one goroutine may call Push (the hub forwarder) and exactly
//     one may call Pop or Drain (the controller loop).
//   - Len and Dropped may be called from anywhere.
type Ring struct {
	slots []slot
	mask  uint64

	// head is written only by the consumer, tail only by the producer.
	head atomic.Uint64
	tail atomic.Uint64

	dropped atomic.Uint64
}

// NewRing returns a ring with room for capacity frames. capacity is
// rounded up to a power of two; values below 1 select DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring{slots: make([]slot, size), mask: uint64(size - 1)}
}

// Cap returns the number of slots.
func (r *Ring) Cap() int { return len(r.slots) }

// Len returns the number of queued frames.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Dropped returns how many frames Push has rejected.
func (r *Ring) Dropped() uint64 { return r.dropped.Load() }

// Push copies data into the next free slot. On a full ring or an oversize
// frame the new frame is dropped and an error returned.
func (r *Ring) Push(clientID string, data []byte) error {
	if len(data) > MaxFrameSize {
		r.dropped.Add(1)
		return ErrOversize
	}
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.slots)) {
		r.dropped.Add(1)
		return ErrFull
	}

	s := &r.slots[tail&r.mask]
	s.clientID = clientID
	s.n = copy(s.buf[:], data)
	r.tail.Store(tail + 1)
	return nil
}

// Pop removes the oldest frame. The returned Data is a fresh copy.
func (r *Ring) Pop() (Frame, bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return Frame{}, false
	}

	s := &r.slots[head&r.mask]
	f := Frame{ClientID: s.clientID, Data: append([]byte(nil), s.buf[:s.n]...)}
	s.clientID = ""
	r.head.Store(head + 1)
	return f, true
}

// Drain pops every queued frame, calling fn for each in FIFO order, and
// returns how many were handled.
func (r *Ring) Drain(fn func(Frame)) int {
	n := 0
	for {
		f, ok := r.Pop()
		if !ok {
			return n
		}
		fn(f)
		n++
	}
}
