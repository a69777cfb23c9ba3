// File: channel/channel.go
// Package channel implements a reference-counted, multiplexed message channel.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Many Senders append typed Nodes to one Channel; a single consumer, woken by
// an external loop through an api.Notifier, drains them in arrival order.
// The channel never blocks: Recv returns nil when nothing is queued.

package channel

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/momentics/levee/api"
)

var chanIDs atomic.Uint64

// Channel owns the message queue and the set of registered senders.
type Channel struct {
	mu      sync.Mutex
	q       *queue.Queue // *Node, FIFO
	cursor  *Node        // next undelivered node of the detached batch
	senders map[*Sender]struct{}
	recvID  int64
	closed  bool

	id       uint64
	refs     atomic.Int64
	notifier api.Notifier
	obs      Observer
}

// New creates a channel holding one reference. n is signalled on every send
// and on close; nil means nobody is listening.
func New(n api.Notifier, opts ...Option) *Channel {
	if n == nil {
		n = api.NopNotifier{}
	}
	c := &Channel{
		q:        queue.New(),
		senders:  make(map[*Sender]struct{}),
		id:       chanIDs.Add(1),
		notifier: n,
		obs:      nopObserver{},
	}
	c.refs.Store(1)
	for _, o := range opts {
		o(c)
	}
	return c
}

// Ref acquires a reference. It returns nil once the channel is destroyed.
func (c *Channel) Ref() *Channel {
	for {
		r := c.refs.Load()
		if r <= 0 {
			return nil
		}
		if c.refs.CompareAndSwap(r, r+1) {
			return c
		}
	}
}

// Unref drops a reference. Dropping the last one releases every queued node
// and forgets the sender set.
func (c *Channel) Unref() {
	for {
		r := c.refs.Load()
		if r <= 0 {
			return
		}
		if c.refs.CompareAndSwap(r, r-1) {
			if r == 1 {
				c.destroy()
			}
			return
		}
	}
}

// Refs reports the current reference count; zero means destroyed.
func (c *Channel) Refs() int64 { return c.refs.Load() }

// EventID is the stable identity a loop uses to tell channels apart.
func (c *Channel) EventID() uint64 { return c.id }

// NextRecvID returns a fresh routing identifier.
func (c *Channel) NextRecvID() int64 {
	c.mu.Lock()
	id := c.recvID
	c.recvID++
	c.mu.Unlock()
	return id
}

// Close marks the channel terminal. Every registered sender that has not sent
// its EOF gets one, then a routing-agnostic EOF (RecvID == NoRecvID) closes the
// stream. Later sends and NewSender calls fail with api.ErrChannelClosed.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true

	open := make([]*Sender, 0, len(c.senders))
	for s := range c.senders {
		open = append(open, s)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].recvID.Load() < open[j].recvID.Load() })
	queued := 0
	for _, s := range open {
		if s.eof.CompareAndSwap(false, true) {
			c.q.Add(&Node{RecvID: s.recvID.Load(), Kind: KindEOF})
			queued++
		}
	}
	c.q.Add(&Node{RecvID: NoRecvID, Kind: KindEOF})
	queued++
	c.mu.Unlock()

	for i := 0; i < queued; i++ {
		c.obs.Queued(KindEOF)
	}
	c.notifier.Notify(c.id, api.ChanClosed)
}

// Closed reports whether Close was called or the channel was destroyed.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len reports how many nodes are waiting to be delivered.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.q.Length()
	for p := c.cursor; p != nil; p = p.next {
		n++
	}
	return n
}

// Recv removes and returns the oldest undelivered node, or nil when none is
// queued. When the detached batch is exhausted, Recv takes everything queued
// at that moment as the next batch; RecvNext walks it.
func (c *Channel) Recv() *Node {
	c.mu.Lock()
	if c.cursor == nil {
		c.cursor = c.detachLocked()
	}
	n := c.cursor
	if n != nil {
		c.cursor = n.next
	}
	c.mu.Unlock()

	if n != nil {
		c.obs.Delivered(n.Kind)
	}
	return n
}

// RecvNext returns the node that arrived right after n within the batch n was
// delivered from, without looking at the queue. It returns nil at the end of
// the batch, or when that node was already handed out by Recv.
func (c *Channel) RecvNext(n *Node) *Node {
	if n == nil {
		return nil
	}
	next := n.next
	if next == nil {
		return nil
	}
	c.mu.Lock()
	if c.cursor != next {
		c.mu.Unlock()
		return nil
	}
	c.cursor = next.next
	c.mu.Unlock()

	n.next = nil
	c.obs.Delivered(next.Kind)
	return next
}

// detachLocked moves every queued node into a linked batch and returns its head.
func (c *Channel) detachLocked() *Node {
	var head, tail *Node
	for c.q.Length() > 0 {
		n := c.q.Remove().(*Node)
		if head == nil {
			head = n
		} else {
			tail.next = n
		}
		tail = n
	}
	return head
}

// push appends a node on behalf of s. It fails if either side is closed.
func (c *Channel) push(s *Sender, n *Node) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return api.ErrChannelClosed
	case s.eof.Load():
		c.mu.Unlock()
		return api.ErrSenderClosed
	}
	n.RecvID = s.recvID.Load()
	c.q.Add(n)
	c.mu.Unlock()

	c.obs.Queued(n.Kind)
	c.notifier.Notify(c.id, api.ChanReadable)
	return nil
}

// pushEOF emits the sender's single EOF. It reports false if the EOF was
// already emitted, and fails once the channel is closed (Close has emitted
// the EOF on the sender's behalf by then).
func (c *Channel) pushEOF(s *Sender) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, api.ErrChannelClosed
	}
	if !s.eof.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return false, nil
	}
	c.q.Add(&Node{RecvID: s.recvID.Load(), Kind: KindEOF})
	c.mu.Unlock()

	c.obs.Queued(KindEOF)
	c.notifier.Notify(c.id, api.ChanReadable)
	return true, nil
}

// register adds s to the sender set. With fresh set, it also allocates the
// routing identifier s will use from now on.
func (c *Channel) register(s *Sender, fresh bool) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, api.ErrChannelClosed
	}
	id := s.recvID.Load()
	if fresh {
		id = c.recvID
		c.recvID++
		s.recvID.Store(id)
	}
	c.senders[s] = struct{}{}
	return id, nil
}

// detach removes s from the sender set ahead of a rebind. It fails when c
// has already closed or s already emitted its EOF.
func (c *Channel) detach(s *Sender) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || s.eof.Load() {
		return api.ErrSenderClosed
	}
	delete(c.senders, s)
	return nil
}

// reattach undoes detach after a failed rebind. If c closed in between, the
// EOF Close would have emitted for s is queued now.
func (c *Channel) reattach(s *Sender) {
	c.mu.Lock()
	if !c.closed {
		c.senders[s] = struct{}{}
		c.mu.Unlock()
		return
	}
	queued := s.eof.CompareAndSwap(false, true)
	if queued {
		c.q.Add(&Node{RecvID: s.recvID.Load(), Kind: KindEOF})
	}
	c.mu.Unlock()
	if queued {
		c.obs.Queued(KindEOF)
		c.notifier.Notify(c.id, api.ChanReadable)
	}
}

// reject reports err to the observer and tags it with the channel identity.
func (c *Channel) reject(err error) error {
	c.obs.Rejected(err)
	return api.Wrap(err, map[string]any{"chan": c.id})
}

func (c *Channel) unregister(s *Sender) {
	c.mu.Lock()
	delete(c.senders, s)
	c.mu.Unlock()
}

func (c *Channel) destroy() {
	c.mu.Lock()
	c.closed = true
	var dropped []*Node
	for p := c.cursor; p != nil; p = p.next {
		dropped = append(dropped, p)
	}
	c.cursor = nil
	for c.q.Length() > 0 {
		dropped = append(dropped, c.q.Remove().(*Node))
	}
	c.senders = make(map[*Sender]struct{})
	c.mu.Unlock()

	for _, n := range dropped {
		c.obs.Discarded(n.Kind)
		n.next = nil
		n.Release()
	}
}
