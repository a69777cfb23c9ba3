// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server is a WebSocket echo service built on the channel and frame codec:
// the HTTP upgrade is handled by gobwas/ws, after which every byte on the
// socket goes through levee's own scanner and encoder.

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gobwas/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/levee/control"
	"github.com/momentics/levee/pool"
	"github.com/momentics/levee/protocol"
)

var ErrAlreadyRunning = errors.New("server already running")

// Server ties the HTTP surface to the hub.
type Server struct {
	cfg        *Config
	logger     *log.Logger
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	metrics    *control.Metrics
	bufs       *pool.BufferPool
	policy     protocol.Policy
	hub        *hub
	router     chi.Router

	mu        sync.Mutex
	httpSrv   *http.Server
	closeOnce sync.Once
	closeErr  error
}

// New builds a server and starts its hub. Call Run or mount Handler.
func New(cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:    cfg,
		logger: log.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.registerer == nil {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.registerer = reg
	}
	if g, ok := s.registerer.(prometheus.Gatherer); ok {
		s.gatherer = g
	} else {
		s.gatherer = prometheus.DefaultGatherer
	}

	s.metrics = control.NewMetrics(control.WithRegistry(s.registerer))
	s.bufs = pool.NewBufferPool(cfg.ReadBufferSize)
	s.policy = protocol.DefaultPolicy()
	s.policy.MaxPayload = cfg.MaxFramePayload

	h, err := newHub(s)
	if err != nil {
		return nil, err
	}
	s.hub = h
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(s.cfg.WSPath, s.handleWS)
	r.Get("/healthz", s.handleHealth)
	if s.cfg.MetricsPath != "" {
		r.Method(http.MethodGet, s.cfg.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Driver reports which driver wakes the hub.
func (s *Server) Driver() string { return s.hub.drv.Name() }

func (s *Server) logf(format string, args ...any) {
	s.logger.Printf(format, args...)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	nc, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logf("[server] upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	nc.SetDeadline(time.Time{})
	c := newConn(s, nc, rw)
	if err := s.hub.attach(c); err != nil {
		s.logf("[server] reject %s: %v", r.RemoteAddr, err)
		c.shutdown()
		return
	}
	go c.serve()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "ok connections=%d driver=%s\n", s.hub.open(), s.Driver())
}

// Run listens on cfg.ListenAddr and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then closes the server.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.httpSrv != nil {
		s.mu.Unlock()
		ln.Close()
		return ErrAlreadyRunning
	}
	hs := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.httpSrv = hs
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()
	s.logf("[server] listening on %s, driver %s", ln.Addr(), s.Driver())

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}
	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, s.Close(sctx))
}

// Close stops accepting, sends going-away to open connections and releases
// the hub. Later calls return the first result.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		hs := s.httpSrv
		s.mu.Unlock()
		var errs []error
		if hs != nil {
			if err := hs.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		errs = append(errs, s.hub.close(ctx))
		s.closeErr = errors.Join(errs...)
		s.logf("[server] closed")
	})
	return s.closeErr
}
