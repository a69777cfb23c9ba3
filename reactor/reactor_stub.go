//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"fmt"

	"github.com/momentics/levee/api"
)

var errUnsupported = fmt.Errorf("reactor: epoll on this platform: %w", api.ErrNotSupported)

// NewReactor returns an error for unsupported platforms.
func NewReactor() (EventReactor, error) {
	return nil, errUnsupported
}

// EventFD is unavailable off Linux.
type EventFD struct{}

var _ api.Notifier = (*EventFD)(nil)

// NewEventFD returns an error for unsupported platforms.
func NewEventFD() (*EventFD, error) { return nil, errUnsupported }

func (e *EventFD) Notify(uint64, api.ChanEvent) {}
func (e *EventFD) Fd() uintptr { return 0 }
func (e *EventFD) Drain() (uint64, error) { return 0, errUnsupported }
func (e *EventFD) SawClose() bool { return false }
func (e *EventFD) Close() error { return nil }
