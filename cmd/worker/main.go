package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/restopro/restopro/internal/analytics"
	"github.com/restopro/restopro/internal/app"
	"github.com/restopro/restopro/internal/auth"
	"github.com/restopro/restopro/internal/inventory"
	jobmetrics "github.com/restopro/restopro/internal/jobs"
	"github.com/restopro/restopro/internal/menu"
	"github.com/restopro/restopro/internal/platform/cache"
	"github.com/restopro/restopro/internal/platform/db"
	"github.com/restopro/restopro/internal/pricing"
	"github.com/restopro/restopro/internal/shared"
	"github.com/restopro/restopro/jobs"
)

const warmupDelay = 30 * time.Second

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))
	loc := cfg.Location()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
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

	engineCfg, err := cfg.PricingEngineConfig()
	if err != nil {
		logger.Error("pricing config", slog.Any("error", err))
		os.Exit(1)
	}
	engine, err := pricing.NewEngine(engineCfg)
	if err != nil {
		logger.Error("pricing engine", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := jobs.NewClient(redisOpts)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	menuService, err := menu.NewService(menu.NewRepository(pool), engine, logger)
	if err != nil {
		logger.Error("menu service", slog.Any("error", err))
		os.Exit(1)
	}
	inventoryService := inventory.NewService(inventory.NewRepository(pool), nil, logger)
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analytics.NewRepository(pool), analyticsCache, loc, logger)

	lowStockJob := &jobs.LowStockScanJob{
		Ingredients: inventoryService,
		Menu:        menuService,
		Owners:      auth.NewRepository(pool),
		Mail:        client,
		Logger:      logger,
		Metrics:     metrics,
	}
	warmupJob := &jobs.AnalyticsWarmupJob{Analytics: analyticsService, Logger: logger, Metrics: metrics}
	cleanupJob := &jobs.IdempotencyCleanupJob{Store: shared.NewIdempotencyStore(pool), Logger: logger, Metrics: metrics}

	lowStockTask, err := jobs.NewLowStockScanTask("schedule", time.Time{})
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.DefaultIdempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Location:  loc,
		MailFrom:  cfg.MailFrom,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 9 * * *", Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "5 * * * *", Task: jobs.NewAnalyticsWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Sales writes bump the analytics version; re-warm shortly after.
	err = analyticsCache.ListenForInvalidation(ctx, func(version int64) {
		if err := client.EnqueueAnalyticsWarmup(ctx, warmupDelay); err != nil {
			logger.Warn("enqueue warmup after bump", slog.Int64("version", version), slog.Any("error", err))
		}
	})
	if err != nil {
		logger.Warn("subscribe analytics bumps", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
