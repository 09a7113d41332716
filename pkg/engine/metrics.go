package engine

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wehubfusion/Daedalus/pkg/flow"
)

// MetricsCollector receives per-node counters from the engine.
type MetricsCollector interface {
	// RecordPrepared records one node preparation and its resulting output state.
	RecordPrepared(metaID string, state flow.NodeState, duration time.Duration)
	// RecordException records a node exception.
	RecordException(metaID string)
	// RecordValidationFailure records an entry that failed validation.
	RecordValidationFailure(metaID string)
	// RecordFallthrough records an implementation that skipped or did not apply.
	RecordFallthrough(metaID string, kind OutcomeKind)
	// GetMetrics returns the current totals.
	GetMetrics() Metrics
}

// Metrics is a snapshot of engine totals.
type Metrics struct {
	NodesPrepared      int64
	Exceptions         int64
	ValidationFailures int64
	Fallthroughs       int64
	PrepareTimeNs      int64
}

// DefaultMetricsCollector keeps totals in atomic counters.
type DefaultMetricsCollector struct {
	prepared     atomic.Int64
	exceptions   atomic.Int64
	validation   atomic.Int64
	fallthroughs atomic.Int64
	prepareTime  atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *DefaultMetricsCollector {
	return &DefaultMetricsCollector{}
}

func (m *DefaultMetricsCollector) RecordPrepared(_ string, _ flow.NodeState, duration time.Duration) {
	m.prepared.Add(1)
	m.prepareTime.Add(duration.Nanoseconds())
}

func (m *DefaultMetricsCollector) RecordException(string) { m.exceptions.Add(1) }

func (m *DefaultMetricsCollector) RecordValidationFailure(string) { m.validation.Add(1) }

func (m *DefaultMetricsCollector) RecordFallthrough(string, OutcomeKind) { m.fallthroughs.Add(1) }

func (m *DefaultMetricsCollector) GetMetrics() Metrics {
	return Metrics{
		NodesPrepared:      m.prepared.Load(),
		Exceptions:         m.exceptions.Load(),
		ValidationFailures: m.validation.Load(),
		Fallthroughs:       m.fallthroughs.Load(),
		PrepareTimeNs:      m.prepareTime.Load(),
	}
}

// Reset resets all metrics.
func (m *DefaultMetricsCollector) Reset() {
	m.prepared.Store(0)
	m.exceptions.Store(0)
	m.validation.Store(0)
	m.fallthroughs.Store(0)
	m.prepareTime.Store(0)
}

// AveragePrepareTime returns the average preparation time per node.
func (m *DefaultMetricsCollector) AveragePrepareTime() time.Duration {
	prepared := m.prepared.Load()
	if prepared == 0 {
		return 0
	}
	return time.Duration(m.prepareTime.Load() / prepared)
}

var _ MetricsCollector = (*DefaultMetricsCollector)(nil)

// NoOpMetricsCollector is a metrics collector that does nothing.
type NoOpMetricsCollector struct{}

func (*NoOpMetricsCollector) RecordPrepared(string, flow.NodeState, time.Duration) {}
func (*NoOpMetricsCollector) RecordException(string)                             {}
func (*NoOpMetricsCollector) RecordValidationFailure(string)                     {}
func (*NoOpMetricsCollector) RecordFallthrough(string, OutcomeKind)              {}
func (*NoOpMetricsCollector) GetMetrics() Metrics                                { return Metrics{} }

var _ MetricsCollector = (*NoOpMetricsCollector)(nil)

// PrometheusMetrics exports engine counters to a Prometheus registry and keeps
// the in-process totals as well.
type PrometheusMetrics struct {
	*DefaultMetricsCollector

	NodesPrepared      *prometheus.CounterVec
	PrepareDuration    *prometheus.HistogramVec
	Exceptions         *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Fallthroughs       *prometheus.CounterVec
}

// NewPrometheusMetrics registers the engine metrics with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		DefaultMetricsCollector: NewMetricsCollector(),
		NodesPrepared: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daedalus_nodes_prepared_total",
				Help: "Total number of node preparations by resulting output state",
			},
			[]string{"meta_id", "state"},
		),
		PrepareDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "daedalus_node_prepare_duration_seconds",
				Help:    "Node preparation duration in seconds, upstream preparation included",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"meta_id"},
		),
		Exceptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daedalus_node_exceptions_total",
				Help: "Total number of node implementation exceptions",
			},
			[]string{"meta_id"},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daedalus_entry_validation_failures_total",
				Help: "Total number of entries that failed type or verification checks",
			},
			[]string{"meta_id"},
		),
		Fallthroughs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daedalus_implementation_fallthroughs_total",
				Help: "Total number of implementations that skipped or did not apply",
			},
			[]string{"meta_id", "outcome"},
		),
	}
}

func (p *PrometheusMetrics) RecordPrepared(metaID string, state flow.NodeState, duration time.Duration) {
	p.DefaultMetricsCollector.RecordPrepared(metaID, state, duration)
	p.NodesPrepared.WithLabelValues(metaID, string(state)).Inc()
	p.PrepareDuration.WithLabelValues(metaID).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) RecordException(metaID string) {
	p.DefaultMetricsCollector.RecordException(metaID)
	p.Exceptions.WithLabelValues(metaID).Inc()
}

func (p *PrometheusMetrics) RecordValidationFailure(metaID string) {
	p.DefaultMetricsCollector.RecordValidationFailure(metaID)
	p.ValidationFailures.WithLabelValues(metaID).Inc()
}

func (p *PrometheusMetrics) RecordFallthrough(metaID string, kind OutcomeKind) {
	p.DefaultMetricsCollector.RecordFallthrough(metaID, kind)
	p.Fallthroughs.WithLabelValues(metaID, kind.String()).Inc()
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)
