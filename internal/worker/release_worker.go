package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application/services"
)

// ReleaseWorker lifts escrow holds whose boundary has passed.
type ReleaseWorker struct {
	release   *services.ReleaseService
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReleaseWorker(release *services.ReleaseService, interval time.Duration, batchSize int, logger *slog.Logger) *ReleaseWorker {
	return &ReleaseWorker{
		release:   release,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With("worker", "deposit_release"),
	}
}

func (w *ReleaseWorker) Start(ctx context.Context) {
	w.logger.Info("deposit release worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("deposit release worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *ReleaseWorker) RunOnce(ctx context.Context) {
	released, err := w.release.ReleaseExpired(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("release sweep failed", "error", err)
		return
	}
	if released > 0 {
		w.logger.Info("released expired deposit holds", "count", released)
	}
}
