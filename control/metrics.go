// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for channels and the frame server.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/momentics/levee/api"
	"github.com/momentics/levee/channel"
	"github.com/momentics/levee/protocol"
)

// Direction labels for frame counters.
const (
	DirIn  = "in"
	DirOut = "out"
)

// MetricsConfig configures the collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "levee").
	Namespace string
	// Subsystem is the metrics subsystem (default: "").
	Subsystem string
	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels
	// Buckets are the frame payload size histogram buckets.
	Buckets []float64
	// Registry receives the collectors (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// MetricsOption configures Metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the payload size buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registerer.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "levee",
		Buckets:   prometheus.ExponentialBuckets(16, 4, 8), // 16 B to 256 KiB
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors. It implements channel.Observer.
type Metrics struct {
	nodesQueued    *prometheus.CounterVec
	nodesDelivered *prometheus.CounterVec
	nodesDiscarded *prometheus.CounterVec
	rejected       *prometheus.CounterVec

	frames         *prometheus.CounterVec
	payloadBytes   *prometheus.CounterVec
	payloadSize    prometheus.Histogram
	connections    prometheus.Gauge
	protocolErrors *prometheus.CounterVec
}

var _ channel.Observer = (*Metrics)(nil)

// NewMetrics registers the collectors. Registering twice on the same
// registerer panics, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		nodesQueued:    counter("channel_nodes_queued_total", "Message nodes appended to channels", "kind"),
		nodesDelivered: counter("channel_nodes_delivered_total", "Message nodes handed to consumers", "kind"),
		nodesDiscarded: counter("channel_nodes_discarded_total", "Message nodes released without delivery", "kind"),
		rejected:       counter("channel_rejected_total", "Failed sends, closes and connects", "reason"),

		frames:       counter("frames_total", "WebSocket frames by opcode and direction", "opcode", "direction"),
		payloadBytes: counter("payload_bytes_total", "WebSocket payload bytes by direction", "direction"),
		payloadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_payload_bytes",
			Help:        "Payload size of received frames",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connections",
			Help:        "Open WebSocket connections",
			ConstLabels: config.ConstLabels,
		}),
		protocolErrors: counter("protocol_errors_total", "Connections failed for a framing violation, by close status", "status"),
	}
}

// Queued implements channel.Observer.
func (m *Metrics) Queued(k channel.Kind) { m.nodesQueued.WithLabelValues(k.String()).Inc() }

// Delivered implements channel.Observer.
func (m *Metrics) Delivered(k channel.Kind) { m.nodesDelivered.WithLabelValues(k.String()).Inc() }

// Discarded implements channel.Observer.
func (m *Metrics) Discarded(k channel.Kind) { m.nodesDiscarded.WithLabelValues(k.String()).Inc() }

// Rejected implements channel.Observer.
func (m *Metrics) Rejected(err error) { m.rejected.WithLabelValues(api.CodeOf(err).String()).Inc() }

// FrameIn records a received frame header.
func (m *Metrics) FrameIn(f *protocol.Frame) {
	m.frames.WithLabelValues(f.Opcode.String(), DirIn).Inc()
	m.payloadBytes.WithLabelValues(DirIn).Add(float64(f.Length()))
	m.payloadSize.Observe(float64(f.Length()))
}

// FrameOut records a sent frame.
func (m *Metrics) FrameOut(op protocol.Opcode, payload int) {
	m.frames.WithLabelValues(op.String(), DirOut).Inc()
	m.payloadBytes.WithLabelValues(DirOut).Add(float64(payload))
}

// ConnOpened and ConnClosed track live connections.
func (m *Metrics) ConnOpened() { m.connections.Inc() }

func (m *Metrics) ConnClosed() { m.connections.Dec() }

// ProtocolError counts a connection failed with status.
func (m *Metrics) ProtocolError(status protocol.Status) {
	m.protocolErrors.WithLabelValues(status.String()).Inc()
}
