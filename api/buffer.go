// Package api
// Author: momentics
//
// Owned byte regions carried by channel messages.

package api

// Buffer describes a growable memory region with a single owner.
// Ownership moves with the value: whoever holds it last calls Release.
type Buffer interface {
	// Bytes returns the current buffer contents.
	Bytes() []byte

	// Len reports the number of bytes held.
	Len() int

	// Release returns the underlying region to its pool.
	// After Release, buffer must not be used.
	Release()
}
