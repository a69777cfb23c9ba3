// File: server/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Drivers turn channel notifications into hub wakeups: either the
// in-process event loop or an epoll reactor watching an eventfd.

package server

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/levee/api"
	"github.com/momentics/levee/internal/concurrency"
	"github.com/momentics/levee/reactor"
)

// driver owns the notifier a channel signals and delivers its events.
type driver interface {
	Notifier() api.Notifier
	// Start begins delivering events for channel id to handle.
	Start(id uint64, handle func(api.Event)) error
	Stop()
	Name() string
}

func newDriver(cfg *Config, logf func(string, ...any)) driver {
	if cfg.Driver == DriverEpoll {
		d, err := newEpollDriver()
		if err == nil {
			return d
		}
		logf("[server] epoll driver unavailable, using event loop: %v", err)
	}
	return &loopDriver{loop: concurrency.NewEventLoop(cfg.LoopBatchSize, cfg.LoopCapacity)}
}

type loopDriver struct {
	loop *concurrency.EventLoop
}

func (d *loopDriver) Notifier() api.Notifier { return d.loop.Notifier() }

func (d *loopDriver) Start(id uint64, handle func(api.Event)) error {
	d.loop.RegisterHandler(concurrency.HandlerFunc(func(ev api.Event) {
		if ev.ID == id {
			handle(ev)
		}
	}))
	go d.loop.Run()
	return nil
}

func (d *loopDriver) Stop() { d.loop.Stop() }

func (d *loopDriver) Name() string { return DriverLoop }

// waitTimeoutMs bounds how long the reactor blocks before checking for Stop.
const waitTimeoutMs = 100

type epollDriver struct {
	r       reactor.EventReactor
	efd     *reactor.EventFD
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

func newEpollDriver() (*epollDriver, error) {
	r, err := reactor.NewReactor()
	if err != nil {
		return nil, err
	}
	efd, err := reactor.NewEventFD()
	if err != nil {
		r.Close()
		return nil, err
	}
	return &epollDriver{
		r:      r,
		efd:    efd,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

func (d *epollDriver) Notifier() api.Notifier { return d.efd }

func (d *epollDriver) Start(id uint64, handle func(api.Event)) error {
	if err := d.r.Register(d.efd.Fd(), uintptr(id)); err != nil {
		return err
	}
	d.started.Store(true)
	go d.run(id, handle)
	return nil
}

func (d *epollDriver) run(id uint64, handle func(api.Event)) {
	defer close(d.done)
	events := make([]reactor.Event, 8)
	for {
		select {
		case <-d.stopCh:
			return
		default:
		}
		n, err := d.r.Wait(events, waitTimeoutMs)
		if err != nil {
			return
		}
		for i := 0; i < n; i++ {
			if uint64(events[i].UserData) != id {
				continue
			}
			if _, err := d.efd.Drain(); err != nil {
				return
			}
			kind := api.ChanReadable
			if d.efd.SawClose() {
				kind = api.ChanClosed
			}
			handle(api.Event{ID: id, Kind: kind})
		}
	}
}

func (d *epollDriver) Stop() {
	d.once.Do(func() {
		close(d.stopCh)
		if d.started.Load() {
			<-d.done
		}
		d.r.Close()
		d.efd.Close()
	})
}

func (d *epollDriver) Name() string { return DriverEpoll }
