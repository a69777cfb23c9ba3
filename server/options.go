// File: server/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// Option customizes server initialization.
type Option func(*Server)

// WithRegisterer sends the server's collectors to reg. If reg is also a
// prometheus.Gatherer, the metrics route serves it.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.registerer = reg
	}
}

// WithLogger replaces the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
