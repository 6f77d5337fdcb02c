package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application/services"
)

// RetryWorker re-attempts rejected payouts until their retry budget runs
// out.
type RetryWorker struct {
	retry     *services.RetryService
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewRetryWorker(retry *services.RetryService, interval time.Duration, batchSize int, logger *slog.Logger) *RetryWorker {
	return &RetryWorker{
		retry:     retry,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With("worker", "transfer_retry"),
	}
}

func (w *RetryWorker) Start(ctx context.Context) {
	w.logger.Info("transfer retry worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("transfer retry worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *RetryWorker) RunOnce(ctx context.Context) {
	succeeded, err := w.retry.RetryPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("transfer retry sweep failed", "error", err)
		return
	}
	if succeeded > 0 {
		w.logger.Info("recovered failed transfers", "count", succeeded)
	}
}
