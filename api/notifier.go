// File: api/notifier.go
// Author: momentics <momentics@gmail.com>
//
// Event-loop integration contract. A channel owns no wakeup mechanism of its own;
// it calls a Notifier injected at construction.

package api

// ChanEvent tells the loop why a channel signalled.
type ChanEvent uint8

const (
	// ChanReadable means at least one message was appended.
	ChanReadable ChanEvent = iota + 1
	// ChanClosed means the channel became terminal.
	ChanClosed
)

func (e ChanEvent) String() string {
	switch e {
	case ChanReadable:
		return "readable"
	case ChanClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is what a loop observes after a Notify: the identity of the channel
// (its event id) and the reason.
type Event struct {
	ID   uint64
	Kind ChanEvent
}

// Notifier is the single "signal" capability of the external loop.
// Implementations must be safe for concurrent use and must not block.
type Notifier interface {
	Notify(id uint64, ev ChanEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(id uint64, ev ChanEvent)

// Notify calls f(id, ev).
func (f NotifierFunc) Notify(id uint64, ev ChanEvent) { f(id, ev) }

// NopNotifier drops every signal. Used when the consumer polls.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(uint64, ChanEvent) {}
