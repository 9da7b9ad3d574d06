// Package metrics wires the runtime's Prometheus surface (spec §6:
// "the engine emits counts of {executions total by status, node
// executions by type/status, errors by kind, rate-limit hits,
// circuit-breaker transitions, checkpoint ops} and latency histograms
// for {graph execution, node execution, checkpoint op}"), adapted from
// the teacher's internal/infrastructure/monitoring.Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram the runtime records against.
type Metrics struct {
	ExecutionsTotal     *prometheus.CounterVec
	ExecutionDuration   *prometheus.HistogramVec
	ExecutionsActive    prometheus.Gauge

	NodeExecutionsTotal *prometheus.CounterVec
	NodeDuration        *prometheus.HistogramVec
	NodeErrorsTotal     *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec

	RateLimitHitsTotal         *prometheus.CounterVec
	BreakerTransitionsTotal    *prometheus.CounterVec

	CheckpointOpsTotal    *prometheus.CounterVec
	CheckpointOpDuration  *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers the runtime's metrics under namespace,
// defaulting to "graphrt" the way the teacher defaults to "duragraph".
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "graphrt"
	}

	return &Metrics{
		ExecutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of graph executions by terminal status",
			},
			[]string{"graph", "status"},
		),
		ExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Graph execution duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
			},
			[]string{"graph", "status"},
		),
		ExecutionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "executions_active",
				Help:      "Number of graph executions currently in flight",
			},
		),

		NodeExecutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_executions_total",
				Help:      "Total number of node executions by type and outcome",
			},
			[]string{"node_type", "status"},
		),
		NodeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Node execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node_type"},
		),
		NodeErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_errors_total",
				Help:      "Total number of node execution errors by node type",
			},
			[]string{"node_type", "kind"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors surfaced by the engine, by taxonomy kind",
			},
			[]string{"kind"},
		),

		RateLimitHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of calls rejected by a rate limiter",
			},
			[]string{"component"},
		),
		BreakerTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_transitions_total",
				Help:      "Total number of circuit breaker state transitions",
			},
			[]string{"component", "from_state", "to_state"},
		),

		CheckpointOpsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkpoint_ops_total",
				Help:      "Total number of checkpoint operations by kind and outcome",
			},
			[]string{"op", "status"},
		),
		CheckpointOpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "checkpoint_op_duration_seconds",
				Help:      "Checkpoint operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled by httpapi, by method/path/status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordExecutionStart marks a graph execution as having begun.
func (m *Metrics) RecordExecutionStart() {
	m.ExecutionsActive.Inc()
}

// RecordExecutionEnd records a graph execution's terminal status and duration.
func (m *Metrics) RecordExecutionEnd(graphName, status string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(graphName, status).Inc()
	m.ExecutionDuration.WithLabelValues(graphName, status).Observe(duration.Seconds())
	m.ExecutionsActive.Dec()
}

// RecordNode records one node dispatch's type, outcome, and duration.
func (m *Metrics) RecordNode(nodeType, status string, duration time.Duration) {
	m.NodeExecutionsTotal.WithLabelValues(nodeType, status).Inc()
	m.NodeDuration.WithLabelValues(nodeType).Observe(duration.Seconds())
}

// RecordNodeError records a node failure's taxonomy kind alongside its node type.
func (m *Metrics) RecordNodeError(nodeType, kind string) {
	m.NodeErrorsTotal.WithLabelValues(nodeType, kind).Inc()
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordRateLimitHit records a rejection by component's rate limiter.
func (m *Metrics) RecordRateLimitHit(component string) {
	m.RateLimitHitsTotal.WithLabelValues(component).Inc()
}

// RecordBreakerTransition records a circuit breaker moving from one state to another.
func (m *Metrics) RecordBreakerTransition(component, from, to string) {
	m.BreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
}

// RecordCheckpointOp records a checkpointer operation (save/load/list/delete/health_check).
func (m *Metrics) RecordCheckpointOp(op, status string, duration time.Duration) {
	m.CheckpointOpsTotal.WithLabelValues(op, status).Inc()
	m.CheckpointOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordHTTPRequest records one httpapi request's method, path, status, and duration.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
