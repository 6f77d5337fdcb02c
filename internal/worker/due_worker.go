// Package worker hosts the periodic drivers: capturing due payments,
// reconciling in-flight debits, releasing expired deposit holds and
// retrying failed payouts. Each worker is a ticker loop over a single
// service method so the logic stays testable without time.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application/services"
)

// DueWorker captures authorized payments on their scheduled date and polls
// the gateway for debits that settle asynchronously.
type DueWorker struct {
	due       *services.DuePaymentsService
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewDueWorker(due *services.DuePaymentsService, interval time.Duration, batchSize int, logger *slog.Logger) *DueWorker {
	return &DueWorker{
		due:       due,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With("worker", "due_payments"),
	}
}

func (w *DueWorker) Start(ctx context.Context) {
	w.logger.Info("due payments worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("due payments worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *DueWorker) RunOnce(ctx context.Context) {
	captured, err := w.due.CaptureDue(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("due capture sweep failed", "error", err)
	} else if captured > 0 {
		w.logger.Info("captured due payments", "count", captured)
	}

	settled, err := w.due.ReconcileProcessing(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("reconciliation sweep failed", "error", err)
	} else if settled > 0 {
		w.logger.Info("reconciled in-flight debits", "count", settled)
	}
}
