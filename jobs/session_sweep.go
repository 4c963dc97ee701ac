package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/apiconfig"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// SessionSweeper removes sessions idle past the configured timeout. The
// timeout comes from the runtime config snapshot, so operators can change
// it without a restart.
type SessionSweeper struct {
	logger  *slog.Logger
	service *auth.Service
	config  *apiconfig.Cache
	metrics *jobmetrics.Metrics
}

// NewSessionSweeper builds SessionSweeper instance.
func NewSessionSweeper(logger *slog.Logger, service *auth.Service, config *apiconfig.Cache, metrics *jobmetrics.Metrics) *SessionSweeper {
	return &SessionSweeper{logger: logger, service: service, config: config, metrics: metrics}
}

// Handle runs one sweep pass. The sweep is non-critical and idempotent, so
// failures are logged and left for the next tick instead of retried.
func (s *SessionSweeper) Handle(ctx context.Context, _ *asynq.Task) error {
	track := s.metrics.Track(TaskSessionSweep)
	timeout := s.config.SessionTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	swept, err := s.service.SweepStaleSessions(ctx, timeout)
	if err = track.End(err); err != nil {
		s.logger.Warn("session sweep failed, retrying next tick", slog.Any("error", err))
		return nil
	}
	if swept > 0 {
		s.logger.Info("session sweep", slog.Int64("removed", swept), slog.Duration("timeout", timeout))
	}
	return nil
}
