// Package metrics provides Prometheus metrics collection for the
// optimizer service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors used by the service.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	OracleCalculations     *prometheus.CounterVec
	OracleCalculationTime  prometheus.Histogram
	OptimizationsInFlight  prometheus.Gauge
	GateAcquireTimeouts    prometheus.Counter
	SessionsSweptTotal     prometheus.Counter
}

// New creates a Metrics instance and registers it with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer,
// so tests can use their own registry instead of the process-global one.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimizer_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optimizer_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optimizer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		OracleCalculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optimizer_oracle_calculations_total",
				Help: "Total number of calculation-oracle invocations, by outcome.",
			},
			[]string{"outcome"},
		),
		OracleCalculationTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optimizer_oracle_calculation_seconds",
			Help:    "Duration of a single oracle calculate() call.",
			Buckets: []float64{.01, .025, .05, .1, .2, .3, .5, 1},
		}),
		OptimizationsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optimizer_sessions_running",
			Help: "Number of optimization sessions currently running.",
		}),
		GateAcquireTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optimizer_gate_acquire_timeouts_total",
			Help: "Total number of Request Gate acquisitions that timed out.",
		}),
		SessionsSweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optimizer_sessions_swept_total",
			Help: "Total number of expired sessions removed by the TTL sweeper.",
		}),
	}

	registerer.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.OracleCalculations,
		m.OracleCalculationTime,
		m.OptimizationsInFlight,
		m.GateAcquireTimeouts,
		m.SessionsSweptTotal,
	)
	return m
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordOracleCalculation records one oracle calculate() call.
func (m *Metrics) RecordOracleCalculation(outcome string, d time.Duration) {
	m.OracleCalculations.WithLabelValues(outcome).Inc()
	m.OracleCalculationTime.Observe(d.Seconds())
}

// RecordGateTimeout records one Request Gate acquisition that timed out.
func (m *Metrics) RecordGateTimeout() {
	m.GateAcquireTimeouts.Inc()
}

// RecordSessionsSwept records one TTL sweep's removal count.
func (m *Metrics) RecordSessionsSwept(n int) {
	m.SessionsSweptTotal.Add(float64(n))
}

// IncOptimizationsInFlight marks one optimization session as started.
func (m *Metrics) IncOptimizationsInFlight() {
	m.OptimizationsInFlight.Inc()
}

// DecOptimizationsInFlight marks one optimization session as finished.
func (m *Metrics) DecOptimizationsInFlight() {
	m.OptimizationsInFlight.Dec()
}
