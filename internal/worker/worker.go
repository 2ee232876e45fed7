// Package worker runs the background jobs of the chat service: vector purges
// for deleted documents and the periodic thread message count reconcile.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

const purgeTimeout = 2 * time.Minute

// PurgeMetrics is satisfied by metrics.WorkerMetrics.
type PurgeMetrics interface {
	StartPurge()
	FinishPurge(duration time.Duration, err error)
}

type ReconcileMetrics interface {
	ObserveReconcile(fixed int, err error)
}

type Reconciler interface {
	ReconcileMessageCounts(ctx context.Context) (int, error)
}

// PurgeHandler adapts a DocumentPurger to the queue subscription callback.
func PurgeHandler(purger ports.DocumentPurger, m PurgeMetrics) func(context.Context, string) error {
	return func(ctx context.Context, documentID string) error {
		purgeCtx, cancel := context.WithTimeout(ctx, purgeTimeout)
		defer cancel()

		if m != nil {
			m.StartPurge()
		}
		start := time.Now()
		err := purger.Purge(purgeCtx, documentID)
		if m != nil {
			m.FinishPurge(time.Since(start), err)
		}
		if err != nil {
			return fmt.Errorf("purge document %s: %w", documentID, err)
		}
		slog.Info("document_purged", "document_id", documentID, "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
}

// ReconcileLoop runs the reconciler on a cron schedule until ctx is done.
type ReconcileLoop struct {
	expr       string
	reconciler Reconciler
	metrics    ReconcileMetrics
	now        func() time.Time
}

func NewReconcileLoop(expr string, reconciler Reconciler, m ReconcileMetrics) (*ReconcileLoop, error) {
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("invalid reconcile cron expression %q", expr)
	}
	return &ReconcileLoop{
		expr:       expr,
		reconciler: reconciler,
		metrics:    m,
		now:        time.Now,
	}, nil
}

// Next reports when the loop fires after ref.
func (l *ReconcileLoop) Next(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(l.expr, ref, false)
}

func (l *ReconcileLoop) Run(ctx context.Context) error {
	for {
		next, err := l.Next(l.now())
		if err != nil {
			return fmt.Errorf("schedule reconcile: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		l.RunOnce(ctx)
	}
}

// RunOnce reconciles immediately. Failures are logged and counted; the next
// tick retries.
func (l *ReconcileLoop) RunOnce(ctx context.Context) {
	fixed, err := l.reconciler.ReconcileMessageCounts(ctx)
	if l.metrics != nil {
		l.metrics.ObserveReconcile(fixed, err)
	}
	if err != nil {
		slog.Error("reconcile_message_counts_failed", "error", err)
		return
	}
	if fixed > 0 {
		slog.Info("reconcile_message_counts", "threads_fixed", fixed)
	}
}
