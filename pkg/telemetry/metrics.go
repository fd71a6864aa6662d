package telemetry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the engine metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "meld").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for round-trip duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the engine metrics.
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

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "meld",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Round-trip outcomes used as the status label.
const (
	StatusApplied = "applied"
	StatusStale   = "stale"
	StatusError   = "error"
	StatusUnknown = "unknown_component"
)

// Metrics holds the Prometheus metrics of one engine.
type Metrics struct {
	actionsQueued     *prometheus.CounterVec
	actionsCoalesced  prometheus.Counter
	dispatches        prometheus.Counter
	dispatchesDelayed prometheus.Counter
	roundTrips        *prometheus.CounterVec
	roundTripDuration prometheus.Histogram
	reconciledNodes   *prometheus.CounterVec
	components        prometheus.Gauge
	transportErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics.
//
// Metrics collected:
//   - meld_actions_queued_total: actions enqueued by type
//   - meld_actions_coalesced_total: deferred inputs merged into a queued action
//   - meld_dispatches_total: requests sent
//   - meld_dispatches_delayed_total: dispatches postponed by an in-flight request
//   - meld_round_trips_total: responses by status (applied, stale, error, unknown_component)
//   - meld_round_trip_duration_seconds: time from dispatch to applied response
//   - meld_reconciled_nodes_total: reconciler operations by kind
//   - meld_components: registered components
//   - meld_transport_errors_total: transport failures by type
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		actionsQueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "actions_queued_total",
			Help:        "Total number of actions enqueued",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		actionsCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "actions_coalesced_total",
			Help:        "Total number of deferred inputs merged into a queued action",
			ConstLabels: config.ConstLabels,
		}),

		dispatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatches_total",
			Help:        "Total number of requests sent",
			ConstLabels: config.ConstLabels,
		}),

		dispatchesDelayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatches_delayed_total",
			Help:        "Total number of dispatches postponed by an in-flight request",
			ConstLabels: config.ConstLabels,
		}),

		roundTrips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "round_trips_total",
			Help:        "Total number of responses by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		roundTripDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "round_trip_duration_seconds",
			Help:        "Time from dispatch to applied response in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		reconciledNodes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconciled_nodes_total",
			Help:        "Total reconciler operations by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		components: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "components",
			Help:        "Number of registered components",
			ConstLabels: config.ConstLabels,
		}),

		transportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transport_errors_total",
			Help:        "Total transport errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// ActionQueued records an enqueued action.
func (m *Metrics) ActionQueued(actionType string) {
	if m != nil {
		m.actionsQueued.WithLabelValues(actionType).Inc()
	}
}

// ActionCoalesced records a deferred input merged in place.
func (m *Metrics) ActionCoalesced() {
	if m != nil {
		m.actionsCoalesced.Inc()
	}
}

// Dispatched records a sent request.
func (m *Metrics) Dispatched() {
	if m != nil {
		m.dispatches.Inc()
	}
}

// DispatchDelayed records a dispatch postponed by an in-flight request.
func (m *Metrics) DispatchDelayed() {
	if m != nil {
		m.dispatchesDelayed.Inc()
	}
}

// RoundTrip records the outcome of one response. elapsed is observed only
// for applied responses.
func (m *Metrics) RoundTrip(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.roundTrips.WithLabelValues(status).Inc()
	if status == StatusApplied && elapsed > 0 {
		m.roundTripDuration.Observe(elapsed.Seconds())
	}
}

// Reconciled records reconciler operation counts.
func (m *Metrics) Reconciled(updated, inserted, removed, moved, skipped int) {
	if m == nil {
		return
	}
	m.reconciledNodes.WithLabelValues("updated").Add(float64(updated))
	m.reconciledNodes.WithLabelValues("inserted").Add(float64(inserted))
	m.reconciledNodes.WithLabelValues("removed").Add(float64(removed))
	m.reconciledNodes.WithLabelValues("moved").Add(float64(moved))
	m.reconciledNodes.WithLabelValues("skipped").Add(float64(skipped))
}

// SetComponents sets the registered component count.
func (m *Metrics) SetComponents(n int) {
	if m != nil {
		m.components.Set(float64(n))
	}
}

// TransportError records a transport failure.
func (m *Metrics) TransportError(err error) {
	if m != nil && err != nil {
		m.transportErrors.WithLabelValues(CategorizeError(err)).Inc()
	}
}

// CategorizeError maps an error to a low-cardinality label.
func CategorizeError(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, net.ErrClosed):
		return "closed"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "close"):
		return "closed"
	case strings.Contains(msg, "decode"), strings.Contains(msg, "protocol"):
		return "protocol"
	case strings.Contains(msg, "dial"):
		return "dial"
	default:
		return "internal"
	}
}
