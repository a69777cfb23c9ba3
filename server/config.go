// File: server/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server configuration with sane defaults.

package server

import (
	"fmt"
	"time"

	"github.com/momentics/levee/api"
)

// Drivers that wake the hub when its channel has data.
const (
	DriverLoop  = "loop"
	DriverEpoll = "epoll"
)

// Config holds the tunables of the echo server.
type Config struct {
	ListenAddr      string        // TCP address for Run
	WSPath          string        // WebSocket upgrade route
	MetricsPath     string        // Prometheus exposition route
	Driver          string        // DriverLoop or DriverEpoll
	ReadBufferSize  int           // per-connection socket read chunk
	MaxFramePayload uint64        // largest accepted data frame payload
	LoopBatchSize   int           // events dispatched per loop batch
	LoopCapacity    int           // pending notifications the loop holds
	WriteTimeout    time.Duration // deadline for one frame write; must be positive
	ShutdownTimeout time.Duration // grace period for Close
}

// DefaultConfig returns defaults suitable for local use.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":8080",
		WSPath:          "/ws",
		MetricsPath:     "/metrics",
		Driver:          DriverLoop,
		ReadBufferSize:  4096,
		MaxFramePayload: 1 << 20,
		LoopBatchSize:   32,
		LoopCapacity:    4096,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate reports the first unusable field.
func (c *Config) Validate() error {
	switch {
	case c.WSPath == "" || c.WSPath[0] != '/':
		return fmt.Errorf("%w: ws path %q", api.ErrInvalidArgument, c.WSPath)
	case c.MetricsPath != "" && c.MetricsPath[0] != '/':
		return fmt.Errorf("%w: metrics path %q", api.ErrInvalidArgument, c.MetricsPath)
	case c.Driver != DriverLoop && c.Driver != DriverEpoll:
		return fmt.Errorf("%w: driver %q", api.ErrInvalidArgument, c.Driver)
	case c.ReadBufferSize <= 0:
		return fmt.Errorf("%w: read buffer size %d", api.ErrInvalidArgument, c.ReadBufferSize)
	case c.WriteTimeout <= 0:
		// Echoes are written inline by the hub, so an unbounded write to a
		// stalled peer would hold up every other connection.
		return fmt.Errorf("%w: write timeout %v", api.ErrInvalidArgument, c.WriteTimeout)
	}
	return nil
}
