package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/apiconfig"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	runtimeConfig := apiconfig.NewCache(logger, apiconfig.NewStore(pool), cfg.ConfigRefresh)
	go runtimeConfig.Run(ctx)

	metrics := jobmetrics.NewMetrics(nil)

	authService := auth.NewService(auth.NewRepository(pool))
	sweeper := jobs.NewSessionSweeper(logger, authService, runtimeConfig, metrics)

	idempotencyStore := shared.NewIdempotencyStore(pool)
	cleaner := jobs.NewIdempotencyCleaner(logger, idempotencyStore, cfg.IdempotencyRetention, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionSweep, Handler: sweeper.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleaner.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SessionSweepSpec, Task: jobs.NewSessionSweepTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "0 3 * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
