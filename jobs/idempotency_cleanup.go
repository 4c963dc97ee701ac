package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// IdempotencyCleaner prunes idempotency keys older than the retention
// window.
type IdempotencyCleaner struct {
	logger    *slog.Logger
	store     *shared.IdempotencyStore
	retention time.Duration
	metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleaner builds IdempotencyCleaner instance.
func NewIdempotencyCleaner(logger *slog.Logger, store *shared.IdempotencyStore, retention time.Duration, metrics *jobmetrics.Metrics) *IdempotencyCleaner {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &IdempotencyCleaner{logger: logger, store: store, retention: retention, metrics: metrics}
}

// Handle runs one cleanup pass.
func (c *IdempotencyCleaner) Handle(ctx context.Context, _ *asynq.Task) error {
	track := c.metrics.Track(TaskIdempotencyCleanup)
	if err := track.End(c.store.Cleanup(ctx, c.retention)); err != nil {
		c.logger.Warn("idempotency cleanup failed, retrying next tick", slog.Any("error", err))
		return nil
	}
	return nil
}
