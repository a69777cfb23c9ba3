// File: channel/sender.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sender is the reference-counted producer handle of a Channel. It is bound
// to one routing identifier and is the only way to enqueue messages.

package channel

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/momentics/levee/api"
)

// Sender enqueues messages tagged with its routing identifier.
type Sender struct {
	mu     sync.RWMutex // guards ch against Connect
	ch     *Channel
	refs   atomic.Int64
	recvID atomic.Int64
	eof    atomic.Bool
}

// NewSender binds a sender holding one reference to ch and recvID. The sender
// keeps ch alive until its own last reference is dropped.
func NewSender(ch *Channel, recvID int64) (*Sender, error) {
	if ch == nil {
		return nil, api.ErrInvalidArgument
	}
	if ch.Ref() == nil {
		return nil, api.Wrap(api.ErrChannelClosed, map[string]any{"chan": ch.EventID()})
	}
	s := &Sender{ch: ch}
	s.refs.Store(1)
	s.recvID.Store(recvID)
	if _, err := ch.register(s, false); err != nil {
		ch.Unref()
		return nil, ch.reject(err)
	}
	return s, nil
}

// Ref acquires a reference. It returns nil once the sender is freed.
func (s *Sender) Ref() *Sender {
	for {
		r := s.refs.Load()
		if r <= 0 {
			return nil
		}
		if s.refs.CompareAndSwap(r, r+1) {
			return s
		}
	}
}

// Unref drops a reference. The last one frees the handle: a sender that never
// replied emits its EOF, leaves the sender set and releases its channel. The
// channel itself stays open.
func (s *Sender) Unref() {
	for {
		r := s.refs.Load()
		if r <= 0 {
			return
		}
		if s.refs.CompareAndSwap(r, r-1) {
			if r == 1 {
				s.free()
			}
			return
		}
	}
}

// Refs reports the current reference count; zero means freed.
func (s *Sender) Refs() int64 { return s.refs.Load() }

// RecvID is the routing identifier every message from s carries.
func (s *Sender) RecvID() int64 { return s.recvID.Load() }

// Closed reports whether the sender's EOF has been emitted.
func (s *Sender) Closed() bool { return s.eof.Load() }

// Close emits this sender's EOF once. Closing again is a no-op; closing after
// the channel itself closed reports api.ErrChannelClosed.
func (s *Sender) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ch == nil {
		return nil
	}
	if _, err := s.ch.pushEOF(s); err != nil {
		s.ch.obs.Rejected(err)
		return err
	}
	return nil
}

// SendNil enqueues a NIL node carrying only err.
func (s *Sender) SendNil(err int) error {
	return s.send(&Node{Kind: KindNil, Err: err})
}

// SendPtr enqueues borrowed bytes. val must stay valid until the consumer is
// done with the node; the node never frees it.
func (s *Sender) SendPtr(err int, val []byte, format Format) error {
	return s.send(&Node{Kind: KindPtr, Err: err, ptr: val, format: format})
}

// SendBuf moves buf into a BUF node. On failure buf is released.
func (s *Sender) SendBuf(err int, buf api.Buffer) error {
	return s.send(&Node{Kind: KindBuf, Err: err, buf: buf})
}

// SendObj moves obj into an OBJ node; free runs exactly once when the node is
// released, or right away if the send fails.
func (s *Sender) SendObj(err int, obj any, free FreeFunc) error {
	return s.send(&Node{Kind: KindObj, Err: err, obj: obj, free: free})
}

// SendFloat enqueues a DBL node.
func (s *Sender) SendFloat(err int, v float64) error {
	n := newScalar(KindDbl, math.Float64bits(v))
	n.Err = err
	return s.send(n)
}

// SendInt enqueues an I64 node.
func (s *Sender) SendInt(err int, v int64) error {
	n := newScalar(KindI64, uint64(v))
	n.Err = err
	return s.send(n)
}

// SendUint enqueues a U64 node.
func (s *Sender) SendUint(err int, v uint64) error {
	n := newScalar(KindU64, v)
	n.Err = err
	return s.send(n)
}

// SendBool enqueues a BOOL node.
func (s *Sender) SendBool(err int, v bool) error {
	n := newScalar(KindBool, boolBits(v))
	n.Err = err
	return s.send(n)
}

// SendSender forwards a right to reply. The caller's reference to other moves
// into the node; on failure it is dropped.
func (s *Sender) SendSender(err int, other *Sender) error {
	if other == nil {
		return api.ErrInvalidArgument
	}
	return s.send(&Node{Kind: KindSender, Err: err, sender: other})
}

// Connect rebinds s to ch. The routing identifier s used on its previous
// channel is retired: s leaves that channel's sender set without an EOF and
// from now on sends under a fresh identifier allocated by ch, which is returned.
// If the previous channel closes first, its EOF for s stands and Connect
// fails with api.ErrSenderClosed.
func (s *Sender) Connect(ch *Channel) (int64, error) {
	if ch == nil {
		return 0, api.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil || s.eof.Load() {
		return 0, api.ErrSenderClosed
	}
	old := s.ch
	if old == ch {
		id, err := ch.register(s, true)
		if err != nil {
			return 0, ch.reject(err)
		}
		return id, nil
	}

	if ch.Ref() == nil {
		return 0, api.Wrap(api.ErrChannelClosed, map[string]any{"chan": ch.EventID()}).
			WithContext("recv_id", s.recvID.Load())
	}
	// Leave the old set first so a concurrent old.Close cannot emit an EOF
	// for s once its identifier belongs to ch.
	if err := old.detach(s); err != nil {
		ch.Unref()
		return 0, old.reject(err)
	}
	id, err := ch.register(s, true)
	if err != nil {
		old.reattach(s)
		ch.Unref()
		return 0, ch.reject(err)
	}
	s.ch = ch
	old.Unref()
	return id, nil
}

func (s *Sender) send(n *Node) error {
	s.mu.RLock()
	ch := s.ch
	var err error
	if ch == nil {
		err = api.ErrSenderClosed
	} else {
		err = ch.push(s, n)
	}
	s.mu.RUnlock()

	if err != nil {
		if ch != nil {
			ch.obs.Rejected(err)
			ch.obs.Discarded(n.Kind)
		}
		n.Release()
	}
	return err
}

func (s *Sender) free() {
	s.mu.Lock()
	ch := s.ch
	s.ch = nil
	s.mu.Unlock()
	if ch == nil {
		return
	}
	if ok, _ := ch.pushEOF(s); !ok {
		s.eof.Store(true)
	}
	ch.unregister(s)
	ch.Unref()
}
