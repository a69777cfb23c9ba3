// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime telemetry for levee. Metrics exports Prometheus counters for
// channel traffic (it plugs into a Channel as its Observer) and for the
// frame server: frames by opcode, payload bytes, live connections and
// protocol violations by close status.
package control
