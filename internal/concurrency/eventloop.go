// File: internal/concurrency/eventloop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop turns channel notifications into batched handler calls on one
// goroutine. Handlers are unregistered on Stop so none outlive the loop.

package concurrency

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/levee/api"
)

// EventHandler receives every event the loop dequeues.
type EventHandler interface {
	HandleEvent(ev api.Event)
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ev api.Event)

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev api.Event) { f(ev) }

// EventLoop dispatches posted events in batches.
type EventLoop struct {
	queue     *RingBuffer[api.Event]
	postMu    sync.Mutex
	handlers  atomic.Value // []EventHandler
	batchSize int
	wake      chan struct{}
	stopCh    chan struct{}
	done      chan struct{}
	running   atomic.Bool
	stopOnce  sync.Once
	dropped   atomic.Uint64
}

// NewEventLoop creates a loop holding up to queueSize pending events.
func NewEventLoop(batchSize, queueSize int) *EventLoop {
	if batchSize <= 0 {
		batchSize = 16
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	loop := &EventLoop{
		queue:     NewRingBuffer[api.Event](uint64(queueSize)),
		batchSize: batchSize,
		wake:      make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	loop.handlers.Store([]EventHandler{})
	return loop
}

// Pending returns the number of queued events.
func (el *EventLoop) Pending() int {
	return el.queue.Len()
}

// Dropped counts events refused because the ring was full.
func (el *EventLoop) Dropped() uint64 {
	return el.dropped.Load()
}

func (el *EventLoop) RegisterHandler(h EventHandler) {
	for {
		old := el.handlers.Load().([]EventHandler)
		next := append(append([]EventHandler(nil), old...), h)
		if el.handlers.CompareAndSwap(old, next) {
			return
		}
	}
}

func (el *EventLoop) UnregisterHandler(h EventHandler) {
	for {
		old := el.handlers.Load().([]EventHandler)
		next := make([]EventHandler, 0, len(old))
		for _, hh := range old {
			if hh != h {
				next = append(next, hh)
			}
		}
		if el.handlers.CompareAndSwap(old, next) {
			return
		}
	}
}

// Post enqueues ev and wakes the loop. It returns false when the ring is
// full; the event is dropped and counted.
func (el *EventLoop) Post(ev api.Event) bool {
	el.postMu.Lock()
	ok := el.queue.Enqueue(ev)
	el.postMu.Unlock()
	if !ok {
		el.dropped.Add(1)
	}
	select {
	case el.wake <- struct{}{}:
	default:
	}
	return ok
}

// Notifier returns an api.Notifier that posts to this loop.
func (el *EventLoop) Notifier() api.Notifier {
	return api.NotifierFunc(func(id uint64, kind api.ChanEvent) {
		el.Post(api.Event{ID: id, Kind: kind})
	})
}

// Run dispatches events until Stop. Only the first call runs.
func (el *EventLoop) Run() {
	if !el.running.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		el.handlers.Store([]EventHandler{})
		close(el.done)
	}()
	batch := make([]api.Event, el.batchSize)
	for {
		if el.processBatch(batch) > 0 {
			select {
			case <-el.stopCh:
				return
			default:
			}
			continue
		}
		select {
		case <-el.stopCh:
			return
		case <-el.wake:
		}
	}
}

// Stop ends Run and waits for it to return. Safe to call more than once.
func (el *EventLoop) Stop() {
	el.stopOnce.Do(func() { close(el.stopCh) })
	if el.running.Load() {
		<-el.done
	}
}

func (el *EventLoop) processBatch(batch []api.Event) int {
	count := 0
	for count < el.batchSize {
		ev, ok := el.queue.Dequeue()
		if !ok {
			break
		}
		batch[count] = ev
		count++
	}
	handlers := el.handlers.Load().([]EventHandler)
	for i := 0; i < count; i++ {
		for _, h := range handlers {
			h.HandleEvent(batch[i])
		}
	}
	return count
}
