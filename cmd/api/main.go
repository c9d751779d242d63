package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/fabtrack/fabtrack-backend/api/routes"
	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/internal/inventory"
	"github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/internal/queue"
	"github.com/fabtrack/fabtrack-backend/internal/scheduling"
	"github.com/fabtrack/fabtrack-backend/pkg/config"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
	"github.com/fabtrack/fabtrack-backend/pkg/migrate"
	"github.com/fabtrack/fabtrack-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	tolerance, err := decimal.NewFromString(cfg.Scheduling.ThicknessToleranceMM)
	if err != nil {
		logg.Error(context.Background(), "invalid thickness tolerance in config", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	txRunner := db.NewTxRunner(conn)

	auditor, err := audit.NewService(audit.NewRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	projectRepo := projects.NewRepository(conn)
	projectService, err := projects.NewService(projectRepo, auditor, txRunner, cfg.Scheduling.POPDeadlineDays, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create project service", err)
		os.Exit(1)
	}
	deadlineValidator, err := projects.NewDeadlineValidator(projectRepo, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create deadline validator", err)
		os.Exit(1)
	}

	queueRepo := queue.NewRepository(conn)
	ordering, err := queue.NewOrdering(queueRepo, txRunner, auditor)
	if err != nil {
		logg.Error(context.Background(), "failed to create queue ordering", err)
		os.Exit(1)
	}
	capacityValidator, err := queue.NewCapacityValidator(queueRepo, cfg.Scheduling.MaxHoursPerDay, cfg.Scheduling.CapacityWarnRatio)
	if err != nil {
		logg.Error(context.Background(), "failed to create capacity validator", err)
		os.Exit(1)
	}

	inventoryRepo := inventory.NewRepository(conn)
	matcher, err := inventory.NewMatcher(inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory matcher", err)
		os.Exit(1)
	}
	ledger, err := inventory.NewLedger(inventoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory ledger", err)
		os.Exit(1)
	}

	queueService, err := queue.NewService(queue.ServiceDeps{
		Repo:          queueRepo,
		ProjectRepo:   projectRepo,
		InventoryRepo: inventoryRepo,
		Ledger:        ledger,
		Ordering:      ordering,
		Capacity:      capacityValidator,
		Auditor:       auditor,
		TxRunner:      txRunner,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create queue service", err)
		os.Exit(1)
	}

	scheduler, err := scheduling.NewScheduler(scheduling.Deps{
		ProjectRepo: projectRepo,
		QueueRepo:   queueRepo,
		Matcher:     matcher,
		Ledger:      ledger,
		Ordering:    ordering,
		Capacity:    capacityValidator,
		Auditor:     auditor,
		TxRunner:    txRunner,
		Logger:      logg,
		ToleranceMM: tolerance,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.Handler(),
			txRunner,
			projectService,
			deadlineValidator,
			queueService,
			ordering,
			capacityValidator,
			scheduler,
			matcher,
			ledger,
			inventoryRepo,
			auditor,
			tolerance,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
