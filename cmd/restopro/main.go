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
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/restopro/restopro/internal/analytics"
	analytichttp "github.com/restopro/restopro/internal/analytics/http"
	"github.com/restopro/restopro/internal/app"
	"github.com/restopro/restopro/internal/auth"
	"github.com/restopro/restopro/internal/inventory"
	"github.com/restopro/restopro/internal/menu"
	"github.com/restopro/restopro/internal/observability"
	"github.com/restopro/restopro/internal/platform/cache"
	"github.com/restopro/restopro/internal/platform/db"
	"github.com/restopro/restopro/internal/pricing"
	"github.com/restopro/restopro/internal/rbac"
	"github.com/restopro/restopro/internal/sales"
	"github.com/restopro/restopro/internal/shared"
	"github.com/restopro/restopro/internal/users"
	"github.com/restopro/restopro/jobs"
	"github.com/restopro/restopro/migrations"
)

const analyticsExportsPerMinute = 10

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	loc := cfg.Location()

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.DBAutoMigrate {
		applied, err := db.Migrate(ctx, dbpool, migrations.Files)
		if err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied", slog.Any("files", applied))
	}

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

	metrics := observability.NewMetrics()

	engineCfg, err := cfg.PricingEngineConfig()
	if err != nil {
		logger.Error("pricing config", slog.Any("error", err))
		os.Exit(1)
	}
	engineCfg.Observer = metrics
	engine, err := pricing.NewEngine(engineCfg)
	if err != nil {
		logger.Error("pricing engine", slog.Any("error", err))
		os.Exit(1)
	}
	for _, d := range engine.Divergences() {
		logger.Warn("pricing and settlement rates differ",
			slog.String("platform", string(d.Platform)),
			slog.Any("pricing_percent", d.PricingPercent),
			slog.Any("settlement_percent", d.SettlementPercent))
	}

	sessionManager := shared.NewSessionManager(redisClient, "restopro_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	rbacMiddleware := rbac.Middleware{Logger: logger}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	authService := auth.NewService(auth.NewRepository(dbpool), auth.NewRedisTokenStore(redisClient, auth.ResetTokenTTL), jobClient, cfg.PublicBaseURL, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, rbacMiddleware)

	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(dbpool), logger), rbacMiddleware)

	menuService, err := menu.NewService(menu.NewRepository(dbpool), engine, logger)
	if err != nil {
		logger.Error("menu service", slog.Any("error", err))
		os.Exit(1)
	}
	menuHandler := menu.NewHandler(logger, menuService, rbacMiddleware)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analytics.NewRepository(dbpool), analyticsCache, loc, logger)
	analyticsHandler := analytichttp.NewHandler(logger, analyticsService, rbacMiddleware, analyticsExportsPerMinute)

	salesService := sales.NewService(sales.NewRepository(dbpool), engine, analyticsService, loc, logger)
	salesHandler := sales.NewHandler(logger, salesService, rbacMiddleware)

	stockAlerts := &jobs.StockAlertListener{Client: jobClient, Logger: logger}
	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), stockAlerts, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		RBACMiddleware:   rbacMiddleware,
		Engine:           engine,
		AuthHandler:      authHandler,
		UsersHandler:     usersHandler,
		MenuHandler:      menuHandler,
		SalesHandler:     salesHandler,
		InventoryHandler: inventoryHandler,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
