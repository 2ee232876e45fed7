package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
)

type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	purgeTotal          *prometheus.CounterVec
	purgeDuration       *prometheus.HistogramVec
	purgeInFlight       prometheus.Gauge
	reconcileRunsTotal  *prometheus.CounterVec
	reconcileFixedTotal prometheus.Counter
	circuitBreakerState *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	purgeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "document_purge_total",
			Help:      "Total document purge jobs by status.",
		},
		[]string{"service", "status"},
	)
	purgeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "document_purge_duration_seconds",
			Help:      "Document purge duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	purgeInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "document_purge_in_flight",
			Help:      "Number of in-flight document purge jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	reconcileRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reconcile_runs_total",
			Help:      "Message count reconcile runs by status.",
		},
		[]string{"service", "status"},
	)
	reconcileFixedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reconcile_fixed_threads_total",
			Help:      "Threads whose message count was repaired.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	circuitBreakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(purgeTotal, purgeDuration, purgeInFlight, reconcileRunsTotal, reconcileFixedTotal, circuitBreakerState)

	return &WorkerMetrics{
		service:             service,
		registry:            registry,
		purgeTotal:          purgeTotal,
		purgeDuration:       purgeDuration,
		purgeInFlight:       purgeInFlight,
		reconcileRunsTotal:  reconcileRunsTotal,
		reconcileFixedTotal: reconcileFixedTotal,
		circuitBreakerState: circuitBreakerState,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartPurge() {
	m.purgeInFlight.Inc()
}

func (m *WorkerMetrics) FinishPurge(duration time.Duration, err error) {
	m.purgeInFlight.Dec()

	status := statusLabel(err)
	m.purgeTotal.WithLabelValues(m.service, status).Inc()
	m.purgeDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveReconcile(fixed int, err error) {
	m.reconcileRunsTotal.WithLabelValues(m.service, statusLabel(err)).Inc()
	if fixed > 0 {
		m.reconcileFixedTotal.Add(float64(fixed))
	}
}

func (m *WorkerMetrics) ObserveBreakerState(operation string, _, to gobreaker.State) {
	m.circuitBreakerState.WithLabelValues(m.service, operation).Set(breakerStateValue(to))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
