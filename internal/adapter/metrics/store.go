package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics covers the lease store backends and their circuit breaker.
type StoreMetrics struct {
	OpsTotal           *prometheus.CounterVec
	OpDuration         *prometheus.HistogramVec
	ConnectionErrors   *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store commands, by backend, command and status.",
		}, []string{"backend", "operation", "status"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store command latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"backend", "operation"}),
		ConnectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "connection_errors_total",
			Help:      "Failed attempts to open a store connection.",
		}, []string{"backend"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"component"}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state changes, by new state.",
		}, []string{"component", "state"}),
	}

	reg.MustRegister(m.OpsTotal, m.OpDuration, m.ConnectionErrors, m.BreakerState, m.BreakerTransitions)
	return m
}
