//go:build linux
// +build linux

// File: reactor/eventfd_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventFD is the loop descriptor of a Channel: every Notify bumps an eventfd(2)
// counter, so any epoll-based loop can wait on it next to sockets.

package reactor

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/levee/api"
)

var _ api.Notifier = (*EventFD)(nil)

// EventFD wraps a non-blocking eventfd. Close waits for in-flight Notify
// and Drain calls, so none of them touches the descriptor number after it
// was released.
type EventFD struct {
	mu       sync.RWMutex
	fd       int
	closed   bool
	sawClose atomic.Bool
}

// NewEventFD creates a non-blocking, close-on-exec eventfd.
func NewEventFD() (*EventFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &EventFD{fd: fd}, nil
}

// Notify adds one to the counter. A saturated counter already reads as
// ready, so EAGAIN is ignored.
func (e *EventFD) Notify(_ uint64, ev api.ChanEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	if ev == api.ChanClosed {
		e.sawClose.Store(true)
	}
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	_, _ = unix.Write(e.fd, b[:])
}

// Fd is the descriptor to register with a reactor.
func (e *EventFD) Fd() uintptr { return uintptr(e.fd) }

// Drain reads and resets the counter. It returns 0 when nothing was signalled.
func (e *EventFD) Drain() (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return 0, ErrClosed
	}
	var b [8]byte
	_, err := unix.Read(e.fd, b[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, err
	}
	return binary.NativeEndian.Uint64(b[:]), nil
}

// SawClose reports whether a ChanClosed signal has been delivered.
func (e *EventFD) SawClose() bool { return e.sawClose.Load() }

// Close releases the descriptor. Later Notify calls are dropped and Drain
// reports ErrClosed.
func (e *EventFD) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return unix.Close(e.fd)
}
