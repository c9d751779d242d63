package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/fabtrack/fabtrack-backend/internal/audit"
	"github.com/fabtrack/fabtrack-backend/internal/cron"
	"github.com/fabtrack/fabtrack-backend/internal/inventory"
	"github.com/fabtrack/fabtrack-backend/internal/projects"
	"github.com/fabtrack/fabtrack-backend/internal/queue"
	"github.com/fabtrack/fabtrack-backend/internal/scheduling"
	"github.com/fabtrack/fabtrack-backend/pkg/config"
	"github.com/fabtrack/fabtrack-backend/pkg/db"
	"github.com/fabtrack/fabtrack-backend/pkg/logger"
	"github.com/fabtrack/fabtrack-backend/pkg/metrics"
	"github.com/fabtrack/fabtrack-backend/pkg/migrate"
	"github.com/fabtrack/fabtrack-backend/pkg/redis"
)

const lockKeyFormat = "fabtrack:scheduler-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "scheduler-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "scheduler-worker",
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

	schedulerMetrics := metrics.NewSchedulerMetrics(prometheus.DefaultRegisterer)

	autoScheduleJob, err := cron.NewAutoScheduleJob(cron.AutoScheduleJobParams{
		Logger:    logg,
		Scheduler: scheduler,
		QueueRepo: queueRepo,
		Metrics:   schedulerMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto-schedule job", err)
		os.Exit(1)
	}
	lowStockJob, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:    logg,
		Inventory: inventoryRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create low-stock job", err)
		os.Exit(1)
	}
	deadlineJob, err := cron.NewDeadlineReminderJob(cron.DeadlineReminderJobParams{
		Logger:     logg,
		Deadlines:  deadlineValidator,
		WindowDays: cfg.Scheduling.UpcomingWindowDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deadline reminder job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(autoScheduleJob, lowStockJob, deadlineJob),
		Lock:     lock,
		Metrics:  schedulerMetrics,
		Interval: cfg.Scheduling.AutoScheduleInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting scheduler worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "scheduler worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "scheduler worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
