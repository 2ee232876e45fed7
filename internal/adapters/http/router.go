package httpadapter

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kirillkom/grounded-chat/internal/config"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
	"github.com/kirillkom/grounded-chat/internal/observability/metrics"
)

// Services are the inbound ports the API exposes. Any of them may be nil in
// tests that do not touch the corresponding routes.
type Services struct {
	Chat     ports.ChatService
	Ingestor ports.DocumentIngestor
	Catalog  ports.DocumentCatalog
	Threads  ports.ThreadService
	Search   ports.EvidenceSearch
}

type Router struct {
	cfg     config.Config
	svc     Services
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, svc Services) *Router {
	return &Router{cfg: cfg, svc: svc}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	oas, err := loadOpenAPIRouter()
	if err != nil {
		panic(fmt.Sprintf("embedded openapi spec: %v", err))
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.HandleFunc("/healthz", rt.healthz).Methods(http.MethodGet)
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler()).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(
		func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		},
		func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
		},
		requestValidationMiddleware(oas),
	)

	v1.HandleFunc("/chat", rt.submitChat).Methods(http.MethodPost)
	v1.HandleFunc("/search", rt.searchDocuments).Methods(http.MethodPost)

	v1.HandleFunc("/documents", rt.listDocuments).Methods(http.MethodGet)
	v1.HandleFunc("/documents", rt.uploadDocument).Methods(http.MethodPost)
	v1.HandleFunc("/documents/{id}", rt.deleteDocument).Methods(http.MethodDelete)

	v1.HandleFunc("/threads", rt.listThreads).Methods(http.MethodGet)
	v1.HandleFunc("/threads", rt.createThread).Methods(http.MethodPost)
	v1.HandleFunc("/threads/{id}", rt.renameThread).Methods(http.MethodPatch)
	v1.HandleFunc("/threads/{id}", rt.deleteThread).Methods(http.MethodDelete)
	v1.HandleFunc("/threads/{id}/messages", rt.listThreadMessages).Methods(http.MethodGet)

	var handler http.Handler = recoverMiddleware(r)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
