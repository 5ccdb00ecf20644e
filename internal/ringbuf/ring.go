// Package ringbuf provides a fixed-capacity single-producer/single-consumer
// byte ring.
//
// One slot is always left empty so that head == tail means empty and
// (head+1) mod N == tail means full. Usable capacity is therefore N-1.
//
// The producer is the only writer of head, the consumer the only writer of
// tail. Each operation writes the data slot first and publishes the cursor
// last with an atomic store, so the other side never observes an index that
// points at unwritten data.
package ringbuf

import (
	"fmt"
	"sync/atomic"
)

type Ring struct {
	buf  []byte
	size uint32

	head atomic.Uint32 // next write index, owned by the producer
	tail atomic.Uint32 // next read index, owned by the consumer

	dropped atomic.Uint64
}

func New(size int) (*Ring, error) {
	if size < 2 {
		return nil, fmt.Errorf("ring size must be >= 2, got %d", size)
	}
	if uint64(size) > 1<<31 {
		return nil, fmt.Errorf("ring size too large: %d", size)
	}
	return &Ring{buf: make([]byte, size), size: uint32(size)}, nil
}

// Push stores b. If the ring is full the byte is dropped, the overflow
// counter is incremented and false is returned. Producer side only.
func (r *Ring) Push(b byte) bool {
	head := r.head.Load()
	next := (head + 1) % r.size
	if next == r.tail.Load() {
		r.dropped.Add(1)
		return false
	}
	r.buf[head] = b
	r.head.Store(next)
	return true
}

// Pull removes and returns the oldest byte. Consumer side only.
func (r *Ring) Pull() (byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	b := r.buf[tail]
	r.tail.Store((tail + 1) % r.size)
	return b, true
}

// Peek returns the oldest byte without consuming it. Consumer side only.
func (r *Ring) Peek() (byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	return r.buf[tail], true
}

// Available reports the number of unread bytes.
func (r *Ring) Available() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int((r.size + head - tail) % r.size)
}

func (r *Ring) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

func (r *Ring) Full() bool {
	return (r.head.Load()+1)%r.size == r.tail.Load()
}

// Size is the number of slots, Cap the number of usable slots.
func (r *Ring) Size() int { return int(r.size) }
func (r *Ring) Cap() int  { return int(r.size) - 1 }

// Dropped reports how many bytes Push has discarded because the ring was full.
func (r *Ring) Dropped() uint64 {
	return r.dropped.Load()
}

// Reset zero-fills the storage and rewinds both cursors. It touches both
// cursors, so neither side may be operating on the ring while it runs.
func (r *Ring) Reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.tail.Store(0)
	r.head.Store(0)
}
