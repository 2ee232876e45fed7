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

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/grounded-chat/internal/bootstrap"
	"github.com/kirillkom/grounded-chat/internal/config"
	"github.com/kirillkom/grounded-chat/internal/observability/logging"
	"github.com/kirillkom/grounded-chat/internal/observability/metrics"
	"github.com/kirillkom/grounded-chat/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	slog.SetDefault(logging.NewJSONLogger(logging.ServiceWorker, cfg.LogLevel))
	if err != nil {
		slog.Error("config_error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		ClientName:      "gchat-worker",
		BreakerObserver: workerMetrics.ObserveBreakerState,
	})
	if err != nil {
		slog.Error("bootstrap_error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if app.Queue != nil {
		g.Go(func() error {
			slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
			return app.Queue.SubscribeDocumentPurge(gctx, worker.PurgeHandler(app.Documents, workerMetrics))
		})
	} else {
		slog.Info("purge_queue_disabled", "reason", "QUEUE_ENABLED=false, the API purges inline")
	}

	if cfg.ReconcileCron != "" {
		loop, err := worker.NewReconcileLoop(cfg.ReconcileCron, app.Threads, workerMetrics)
		if err != nil {
			slog.Error("reconcile_schedule_error", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			loop.RunOnce(gctx)
			return loop.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("worker_stopped", "error", err)
		app.Close()
		os.Exit(1)
	}
	slog.Info("worker_stopped")
}
