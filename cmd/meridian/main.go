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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/apiconfig"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/ar"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/cashbook"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/sales"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/stock"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	runtimeConfig := apiconfig.NewCache(logger, apiconfig.NewStore(pool), cfg.ConfigRefresh)

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager)
	authMiddleware := auth.NewMiddleware(logger, authService)

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	catalogHandler := catalog.NewHandler(logger, catalogService)

	stockService := stock.NewService(stock.NewRepository(pool), auditLogger, metrics)
	stockHandler := stock.NewHandler(logger, stockService, catalogService)

	cashbookService := cashbook.NewService(cashbook.NewRepository(pool), auditLogger, metrics)
	cashbookHandler := cashbook.NewHandler(logger, cashbookService)

	receivableService := ar.NewService(ar.NewRepository(pool), catalogService, auditLogger, apiconfig.ReceivablePolicy{Cache: runtimeConfig}, metrics)
	receivableHandler := ar.NewHandler(logger, receivableService, idempotencyStore)

	payableService := ap.NewService(ap.NewRepository(pool), catalogService, auditLogger, apiconfig.PayablePolicy{Cache: runtimeConfig}, metrics)
	payableHandler := ap.NewHandler(logger, payableService)

	salesService := sales.NewService(sales.NewRepository(pool), catalogService, auditLogger, apiconfig.SalesPolicy{Cache: runtimeConfig}, metrics)
	salesHandler := sales.NewHandler(logger, salesService)

	procurementService := procurement.NewService(procurement.NewRepository(pool), catalogService, auditLogger, metrics)
	procurementHandler := procurement.NewHandler(logger, procurementService, idempotencyStore)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthMiddleware:     authMiddleware,
		AuthHandler:        authHandler,
		CatalogHandler:     catalogHandler,
		StockHandler:       stockHandler,
		CashbookHandler:    cashbookHandler,
		ReceivablesHandler: receivableHandler,
		PayablesHandler:    payableHandler,
		SalesHandler:       salesHandler,
		ProcurementHandler: procurementHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		runtimeConfig.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
}
