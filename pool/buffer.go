// File: pool/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Growable, single-owner byte buffer recycled through a BufferPool.

package pool

import (
	"sync/atomic"

	"github.com/momentics/levee/api"
)

var _ api.Buffer = (*Buffer)(nil)

// maxRetained caps the capacity a buffer may keep when returned to its pool.
const maxRetained = 1 << 20

// BufferPool hands out Buffers with at least a given initial capacity.
type BufferPool struct {
	pool    *SyncPool[*Buffer]
	size    int
	inUse   atomic.Int64
	retired atomic.Int64
}

// NewBufferPool creates a pool whose fresh buffers start with size bytes of capacity.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = 4096
	}
	bp := &BufferPool{size: size}
	bp.pool = NewSyncPool(func() *Buffer {
		return &Buffer{data: make([]byte, 0, size)}
	})
	return bp
}

// Get returns an empty buffer owned by the caller.
func (bp *BufferPool) Get() *Buffer {
	b := bp.pool.Get()
	b.data = b.data[:0]
	b.owner = bp
	b.released.Store(false)
	bp.inUse.Add(1)
	return b
}

// InUse reports how many buffers are checked out and not yet released.
func (bp *BufferPool) InUse() int64 {
	return bp.inUse.Load()
}

// Allocated reports how many buffers the pool has created.
func (bp *BufferPool) Allocated() int64 {
	return bp.pool.Created()
}

// Retired reports how many oversized buffers were dropped instead of pooled.
func (bp *BufferPool) Retired() int64 {
	return bp.retired.Load()
}

func (bp *BufferPool) put(b *Buffer) {
	bp.inUse.Add(-1)
	if cap(b.data) > maxRetained {
		bp.retired.Add(1)
		return
	}
	bp.pool.Put(b)
}

// Buffer is a growable byte region. Not safe for concurrent use; it has
// exactly one owner at a time.
type Buffer struct {
	data     []byte
	owner    *BufferPool
	released atomic.Bool
}

// NewBuffer wraps b in an unpooled Buffer. Release is a no-op besides marking it dead.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte { return b.data }

// Len reports the number of bytes held.
func (b *Buffer) Len() int { return len(b.data) }

// Write appends p, growing as needed. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// Extend grows the buffer by n bytes and returns the new tail for the caller to fill.
func (b *Buffer) Extend(n int) []byte {
	l := len(b.data)
	if cap(b.data)-l < n {
		grown := make([]byte, l, 2*cap(b.data)+n)
		copy(grown, b.data)
		b.data = grown
	}
	b.data = b.data[:l+n]
	return b.data[l:]
}

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() { b.data = b.data[:0] }

// Release returns the buffer to its pool. Calling it twice is harmless.
func (b *Buffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	if b.owner != nil {
		owner := b.owner
		b.owner = nil
		owner.put(b)
		return
	}
	b.data = nil
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.released.Load() }
