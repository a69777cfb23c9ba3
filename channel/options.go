// File: channel/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options and observation hooks for Channel.

package channel

import "github.com/momentics/levee/api"

// Observer receives channel activity. Implementations must be cheap and
// safe for concurrent use; they are called outside the channel lock.
type Observer interface {
	// Queued is called after a node of kind k was appended.
	Queued(k Kind)
	// Delivered is called when Recv or RecvNext hands a node to the consumer.
	Delivered(k Kind)
	// Discarded is called for every undelivered node released at teardown
	// and for payloads released because a send failed.
	Discarded(k Kind)
	// Rejected is called when a send, close or connect fails.
	Rejected(err error)
}

type nopObserver struct{}

func (nopObserver) Queued(Kind)    {}
func (nopObserver) Delivered(Kind) {}
func (nopObserver) Discarded(Kind) {}
func (nopObserver) Rejected(error) {}

// Option customizes channel construction.
type Option func(*Channel)

// WithObserver installs an activity observer.
func WithObserver(o Observer) Option {
	return func(c *Channel) {
		if o != nil {
			c.obs = o
		}
	}
}

// WithNotifier replaces the notifier passed to New.
func WithNotifier(n api.Notifier) Option {
	return func(c *Channel) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithFirstRecvID starts routing identifiers at id instead of zero.
func WithFirstRecvID(id int64) Option {
	return func(c *Channel) {
		c.recvID = id
	}
}
