package trace

import "sync/atomic"

const ringSlots = 256

// Ring is a fixed-size single-producer, single-consumer queue. The producer
// never blocks: a push into a full ring is counted and dropped.
type Ring[T any] struct {
	_       [0]func() // prevent accidental copying.
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint64
	slots   [ringSlots]T
}

// TryPush enqueues v, returning false if the ring is full.
func (r *Ring[T]) TryPush(v T) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= ringSlots {
		r.dropped.Add(1)
		return false
	}
	r.slots[head%ringSlots] = v
	r.head.Store(head + 1)
	return true
}

// TryPop dequeues one value, returning false if the ring is empty.
func (r *Ring[T]) TryPop() (T, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		var zero T
		return zero, false
	}
	v := r.slots[tail%ringSlots]
	r.tail.Store(tail + 1)
	return v, true
}

// Drain pops everything currently queued and passes it to fn.
func (r *Ring[T]) Drain(fn func(T)) int {
	n := 0
	for {
		v, ok := r.TryPop()
		if !ok {
			return n
		}
		fn(v)
		n++
	}
}

// Len returns the number of queued values.
func (r *Ring[T]) Len() int { return int(r.head.Load() - r.tail.Load()) }

// Dropped returns the number of values lost to a full ring.
func (r *Ring[T]) Dropped() uint64 { return r.dropped.Load() }
