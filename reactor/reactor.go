// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event reactor interface for IO multiplexing.

package reactor

import "errors"

// ErrClosed is returned by operations on a closed reactor or notifier.
var ErrClosed = errors.New("reactor: closed")

// EventReactor defines basic reactor operations.
type EventReactor interface {
	// Register an FD for read readiness, tagged with userData.
	Register(fd uintptr, userData uintptr) error

	// Unregister stops watching fd.
	Unregister(fd uintptr) error

	// Wait blocks up to timeoutMs (-1 = forever) until events are available
	// and writes them into the output slice. Returns number of events written.
	Wait(events []Event, timeoutMs int) (n int, err error)

	// Close cleans up resources.
	Close() error
}

// Event contains event information returned by Wait call.
type Event struct {
	Fd       uintptr // File descriptor.
	UserData uintptr // User-provided data.
}
