package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
)

const namespace = "gchat"

// approxCharsPerToken turns character counts into a rough token estimate.
const approxCharsPerToken = 4

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatRequestsTotal   *prometheus.CounterVec
	chatBranchTotal     *prometheus.CounterVec
	chatRetrievalHit    *prometheus.CounterVec
	chatNoContextTotal  *prometheus.CounterVec
	chatEvidenceItems   *prometheus.HistogramVec
	chatDuration        *prometheus.HistogramVec
	chatWebUsedTotal    *prometheus.CounterVec
	evidenceDegraded    *prometheus.CounterVec
	llmTokensTotal      *prometheus.CounterVec
	circuitBreakerState *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total completed chat requests.",
		},
		[]string{"service"},
	)
	chatBranchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "fusion_branch_total",
			Help:      "Completed chat requests by context fusion branch.",
		},
		[]string{"service", "branch"},
	)
	chatRetrievalHit := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "retrieval_hit_total",
			Help:      "Chat requests with at least one corpus evidence item.",
		},
		[]string{"service"},
	)
	chatNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "no_context_total",
			Help:      "Chat requests answered without any evidence.",
		},
		[]string{"service"},
	)
	chatEvidenceItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "evidence_items",
			Help:      "Corpus evidence items that survived the relevance floor per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	chatDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Chat pipeline duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"service"},
	)
	chatWebUsedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "web_search_used_total",
			Help:      "Chat requests where web search contributed evidence.",
		},
		[]string{"service"},
	)
	evidenceDegraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evidence",
			Name:      "degraded_total",
			Help:      "Evidence sources that failed and were degraded to empty.",
		},
		[]string{"service", "source"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Approximate token usage by direction.",
		},
		[]string{"service", "direction"},
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

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatRequestsTotal,
		chatBranchTotal,
		chatRetrievalHit,
		chatNoContextTotal,
		chatEvidenceItems,
		chatDuration,
		chatWebUsedTotal,
		evidenceDegraded,
		llmTokensTotal,
		circuitBreakerState,
	)

	return &HTTPServerMetrics{
		service:             service,
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		chatRequestsTotal:   chatRequestsTotal,
		chatBranchTotal:     chatBranchTotal,
		chatRetrievalHit:    chatRetrievalHit,
		chatNoContextTotal:  chatNoContextTotal,
		chatEvidenceItems:   chatEvidenceItems,
		chatDuration:        chatDuration,
		chatWebUsedTotal:    chatWebUsedTotal,
		evidenceDegraded:    evidenceDegraded,
		llmTokensTotal:      llmTokensTotal,
		circuitBreakerState: circuitBreakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses ids so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{id}"
	case strings.HasPrefix(path, "/v1/threads/") && strings.HasSuffix(path, "/messages"):
		return "/v1/threads/{id}/messages"
	case strings.HasPrefix(path, "/v1/threads/"):
		return "/v1/threads/{id}"
	default:
		return path
	}
}

// ObserveChat implements usecase.ChatObserver.
func (m *HTTPServerMetrics) ObserveChat(obs domain.ChatObservation) {
	m.chatRequestsTotal.WithLabelValues(m.service).Inc()
	m.chatBranchTotal.WithLabelValues(m.service, labelOrUnknown(obs.Branch)).Inc()
	m.chatEvidenceItems.WithLabelValues(m.service).Observe(float64(obs.EvidenceCount))
	m.chatDuration.WithLabelValues(m.service).Observe(obs.Duration.Seconds())

	webUsed := obs.WebStatus == domain.EvidenceFound
	switch {
	case obs.EvidenceCount > 0:
		m.chatRetrievalHit.WithLabelValues(m.service).Inc()
	case !webUsed:
		m.chatNoContextTotal.WithLabelValues(m.service).Inc()
	}
	if webUsed {
		m.chatWebUsedTotal.WithLabelValues(m.service).Inc()
	}

	if obs.CorpusStatus == domain.EvidenceFailed {
		m.evidenceDegraded.WithLabelValues(m.service, "corpus").Inc()
	}
	if obs.WebStatus == domain.EvidenceFailed {
		m.evidenceDegraded.WithLabelValues(m.service, "web").Inc()
	}

	if obs.PromptChars > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "in").Add(float64(obs.PromptChars / approxCharsPerToken))
	}
	if obs.CompletionChars > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "out").Add(float64(obs.CompletionChars / approxCharsPerToken))
	}
}

// ObserveBreakerState matches resilience.StateObserver.
func (m *HTTPServerMetrics) ObserveBreakerState(operation string, _, to gobreaker.State) {
	m.circuitBreakerState.WithLabelValues(m.service, operation).Set(breakerStateValue(to))
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
