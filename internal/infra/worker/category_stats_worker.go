package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

type CategoryCounter interface {
	CountByCategory(ctx context.Context) (map[entity.Category]int64, error)
}

// CategoryStatsWorker periodically publishes per-category lead counts.
type CategoryStatsWorker struct {
	counter      CategoryCounter
	publish      func(map[entity.Category]int64)
	tickInterval time.Duration
	queryTimeout time.Duration
}

func NewCategoryStatsWorker(counter CategoryCounter, publish func(map[entity.Category]int64), interval time.Duration) *CategoryStatsWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CategoryStatsWorker{
		counter:      counter,
		publish:      publish,
		tickInterval: interval,
		queryTimeout: 10 * time.Second,
	}
}

// Start refreshes once immediately and then on every tick until ctx is done.
func (w *CategoryStatsWorker) Start(ctx context.Context) {
	zap.L().Info("category stats worker started", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("category stats worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *CategoryStatsWorker) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.queryTimeout)
	defer cancel()

	counts, err := w.counter.CountByCategory(ctx)
	if err != nil {
		zap.L().Warn("failed to count leads by category", zap.Error(err))
		return
	}
	w.publish(counts)
}
