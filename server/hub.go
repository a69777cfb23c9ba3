// File: server/hub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The hub is the single consumer of the server channel. Every connection
// holds one Sender on it; the hub drains nodes on each driver wakeup, echoes
// data frames back to the connection named by the node's routing identifier
// and tears the connection down on its EOF.

package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/momentics/levee/api"
	"github.com/momentics/levee/channel"
)

type hub struct {
	srv   *Server
	drv   driver
	ch    *channel.Channel
	mu    sync.Mutex
	conns map[int64]*conn

	done     chan struct{}
	doneOnce sync.Once
}

func newHub(s *Server) (*hub, error) {
	h := &hub{
		srv:   s,
		drv:   newDriver(s.cfg, s.logf),
		conns: make(map[int64]*conn),
		done:  make(chan struct{}),
	}
	h.ch = channel.New(h.drv.Notifier(), channel.WithObserver(s.metrics))
	if err := h.drv.Start(h.ch.EventID(), h.onEvent); err != nil {
		h.drv.Stop()
		h.ch.Unref()
		return nil, fmt.Errorf("start %s driver: %w", h.drv.Name(), err)
	}
	return h, nil
}

// attach gives c a Sender bound to a fresh routing identifier.
func (h *hub) attach(c *conn) error {
	s, err := channel.NewSender(h.ch, h.ch.NextRecvID())
	if err != nil {
		return err
	}
	c.sender = s
	h.mu.Lock()
	h.conns[s.RecvID()] = c
	h.mu.Unlock()
	h.srv.metrics.ConnOpened()
	return nil
}

// open reports the number of attached connections.
func (h *hub) open() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *hub) onEvent(api.Event) {
	for n := h.ch.Recv(); n != nil; {
		next := h.ch.RecvNext(n)
		h.deliver(n)
		if next == nil {
			next = h.ch.Recv()
		}
		n = next
	}
}

func (h *hub) deliver(n *channel.Node) {
	defer n.Release()
	if n.IsEOF() && n.RecvID == channel.NoRecvID {
		h.doneOnce.Do(func() { close(h.done) })
		return
	}

	h.mu.Lock()
	c := h.conns[n.RecvID]
	if n.IsEOF() {
		delete(h.conns, n.RecvID)
	}
	h.mu.Unlock()
	if c == nil {
		return
	}

	switch n.Kind {
	case channel.KindEOF:
		c.shutdown()
		h.srv.metrics.ConnClosed()
	case channel.KindObj:
		m, ok := n.Obj().(*message)
		if !ok {
			return
		}
		if err := c.writeFrame(m.op, m.fin, m.buf.Bytes()); err != nil {
			h.srv.logf("[server] echo to %s: %v", c.nc.RemoteAddr(), err)
			c.close()
		}
	}
}

// close ends the channel, waits for the hub to see its terminal EOF and
// drops whatever connections are left.
func (h *hub) close(ctx context.Context) error {
	h.ch.Close()
	var err error
	select {
	case <-h.done:
	case <-ctx.Done():
		err = fmt.Errorf("drain hub: %w", ctx.Err())
	}
	h.drv.Stop()

	h.mu.Lock()
	left := h.conns
	h.conns = make(map[int64]*conn)
	h.mu.Unlock()
	for _, c := range left {
		c.shutdown()
		h.srv.metrics.ConnClosed()
	}
	h.ch.Unref()
	return err
}
