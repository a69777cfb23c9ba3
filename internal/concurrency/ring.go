// File: internal/concurrency/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingBuffer is a bounded circular buffer with atomic head/tail,
// padded to prevent false sharing.

package concurrency

import (
	"sync/atomic"
)

// RingBuffer is a lock-free ring buffer (single-producer, single-consumer safe).
// Multiple producers must serialize Enqueue themselves.
type RingBuffer[T any] struct {
	data []T
	mask uint64
	head atomic.Uint64
	_    [64]byte
	tail atomic.Uint64
	_    [64]byte
}

// NewRingBuffer allocates a ring of the next power of two at or above size.
func NewRingBuffer[T any](size uint64) *RingBuffer[T] {
	size = nextPowerOfTwo(size)
	return &RingBuffer[T]{
		data: make([]T, size),
		mask: size - 1,
	}
}

// Enqueue adds item; returns false if full.
func (r *RingBuffer[T]) Enqueue(item T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if tail-head >= uint64(len(r.data)) {
		return false
	}
	r.data[tail&r.mask] = item
	r.tail.Store(tail + 1)
	return true
}

// Dequeue removes and returns item; ok false if empty.
func (r *RingBuffer[T]) Dequeue() (T, bool) {
	var zero T
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return zero, false
	}
	item := r.data[head&r.mask]
	r.data[head&r.mask] = zero
	r.head.Store(head + 1)
	return item, true
}

// Len returns number of items currently in buffer.
func (r *RingBuffer[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns fixed buffer capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}

func nextPowerOfTwo(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}
