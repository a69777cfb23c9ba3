//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based reactor implementation and factory.

package reactor

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// linuxReactor is an epoll-based event reactor.
type linuxReactor struct {
	epfd   int
	mu     sync.RWMutex
	udata  map[int32]uintptr
	closed bool
}

// NewReactor constructs a new platform-specific EventReactor for Linux.
func NewReactor() (EventReactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &linuxReactor{epfd: epfd, udata: make(map[int32]uintptr)}, nil
}

// Register adds file descriptor to epoll.
func (r *linuxReactor) Register(fd uintptr, udata uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	event := &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, int(fd), event); err != nil {
		return err
	}
	r.udata[int32(fd)] = udata
	return nil
}

// Unregister removes file descriptor from epoll.
func (r *linuxReactor) Unregister(fd uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	delete(r.udata, int32(fd))
	return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, int(fd), nil)
}

// Wait waits for epoll events and fills the result into events slice.
func (r *linuxReactor) Wait(events []Event, timeoutMs int) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	rawEvents := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(r.epfd, rawEvents, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil // interrupted by signal
		}
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := 0; i < n; i++ {
		events[i] = Event{
			Fd:       uintptr(rawEvents[i].Fd),
			UserData: r.udata[rawEvents[i].Fd],
		}
	}
	return n, nil
}

// Close closes the epoll instance.
func (r *linuxReactor) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return unix.Close(r.epfd)
}
