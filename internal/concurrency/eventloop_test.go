// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// eventloop_test.go — notifications dispatched through the in-process loop.
package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/momentics/levee/api"
	"github.com/momentics/levee/channel"
)

type collector struct {
	mu     sync.Mutex
	events []api.Event
	got    chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 64)}
}

func (c *collector) HandleEvent(ev api.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []api.Event {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", i, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Event(nil), c.events...)
}

func TestRingBufferBounds(t *testing.T) {
	r := NewRingBuffer[int](3)
	if r.Cap() != 4 {
		t.Fatalf("cap = %d, want 4", r.Cap())
	}
	for i := 0; i < 4; i++ {
		if !r.Enqueue(i) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if r.Enqueue(99) {
		t.Error("full ring accepted an item")
	}
	for i := 0; i < 4; i++ {
		if v, ok := r.Dequeue(); !ok || v != i {
			t.Fatalf("dequeue = %d,%v want %d", v, ok, i)
		}
	}
	if _, ok := r.Dequeue(); ok {
		t.Error("empty ring returned an item")
	}
}

func TestEventLoopDispatchesInOrder(t *testing.T) {
	loop := NewEventLoop(2, 16)
	c := newCollector()
	loop.RegisterHandler(c)
	go loop.Run()
	defer loop.Stop()

	for i := uint64(1); i <= 5; i++ {
		loop.Post(api.Event{ID: i, Kind: api.ChanReadable})
	}
	events := c.wait(t, 5)
	for i, ev := range events {
		if ev.ID != uint64(i+1) {
			t.Fatalf("event %d has id %d", i, ev.ID)
		}
	}
}

func TestEventLoopDrivesChannel(t *testing.T) {
	loop := NewEventLoop(8, 64)
	ch := channel.New(loop.Notifier())
	s, err := channel.NewSender(ch, ch.NextRecvID())
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got []int64
	done := make(chan struct{})
	loop.RegisterHandler(HandlerFunc(func(ev api.Event) {
		if ev.ID != ch.EventID() {
			return
		}
		for n := ch.Recv(); n != nil; n = ch.RecvNext(n) {
			mu.Lock()
			got = append(got, n.Int())
			mu.Unlock()
			n.Release()
		}
		if ev.Kind == api.ChanClosed {
			close(done)
		}
	}))
	go loop.Run()
	defer loop.Stop()

	for i := int64(0); i < 10; i++ {
		if err := s.SendInt(0, i); err != nil {
			t.Fatal(err)
		}
	}
	ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("close never dispatched")
	}
	mu.Lock()
	defer mu.Unlock()
	// Ten values, the sender's EOF and the terminal EOF.
	if len(got) != 12 {
		t.Fatalf("received %d nodes", len(got))
	}
	for i := int64(0); i < 10; i++ {
		if got[i] != i {
			t.Fatalf("node %d = %d", i, got[i])
		}
	}
}

func TestEventLoopCountsDrops(t *testing.T) {
	loop := NewEventLoop(1, 2)
	loop.Post(api.Event{ID: 1})
	loop.Post(api.Event{ID: 2})
	if loop.Post(api.Event{ID: 3}) {
		t.Fatal("post into a full ring succeeded")
	}
	if loop.Dropped() != 1 || loop.Pending() != 2 {
		t.Errorf("dropped=%d pending=%d", loop.Dropped(), loop.Pending())
	}
}

func TestStopUnregistersHandlers(t *testing.T) {
	loop := NewEventLoop(4, 4)
	c := newCollector()
	loop.RegisterHandler(c)
	go loop.Run()
	loop.Post(api.Event{ID: 1})
	c.wait(t, 1)
	loop.Stop()
	loop.Stop()
	if hs := loop.handlers.Load().([]EventHandler); len(hs) != 0 {
		t.Errorf("%d handlers left after stop", len(hs))
	}
	loop.UnregisterHandler(c)
}
