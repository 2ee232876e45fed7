package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/grounded-chat/internal/adapters/http"
	"github.com/kirillkom/grounded-chat/internal/bootstrap"
	"github.com/kirillkom/grounded-chat/internal/config"
	"github.com/kirillkom/grounded-chat/internal/observability/logging"
	"github.com/kirillkom/grounded-chat/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	slog.SetDefault(logging.NewJSONLogger(logging.ServiceAPI, cfg.LogLevel))
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		ClientName:      "gchat-api",
		BreakerObserver: httpMetrics.ObserveBreakerState,
		ChatObserver:    httpMetrics,
	})
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Chat:     app.Chat,
		Ingestor: app.Ingest,
		Catalog:  app.Documents,
		Threads:  app.Threads,
		Search:   app.Retriever,
	}).WithMetrics(httpMetrics)

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("api_listening",
			"port", cfg.APIPort,
			"llm_provider", cfg.LLMProvider,
			"vector_backend", cfg.VectorBackend,
			"web_search", cfg.WebSearchConfigured(),
			"queue", cfg.QueueEnabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		slog.Error("api_server_error", "error", err)
		app.Close()
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.APIShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_error", "error", err)
	}
	slog.Info("api_stopped")
}
