package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediadesk/mediadesk-backend/internal/checkouts"
	"github.com/mediadesk/mediadesk-backend/internal/cron"
	"github.com/mediadesk/mediadesk-backend/internal/mailer"
	"github.com/mediadesk/mediadesk-backend/internal/reservations"
	"github.com/mediadesk/mediadesk-backend/pkg/config"
	"github.com/mediadesk/mediadesk-backend/pkg/db"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
	"github.com/mediadesk/mediadesk-backend/pkg/metrics"
	"github.com/mediadesk/mediadesk-backend/pkg/migrate"
	"github.com/mediadesk/mediadesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	mail, err := mailer.NewDispatcher(cfg.Mailer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail dispatcher", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	reservationRepo := reservations.NewRepository(conn)
	txRunner, err := db.NewTxRetrier(dbClient, db.RetryPolicyFromConfig(cfg.DB))
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction runner", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	sweeper, err := cron.NewRetentionSweeper(cron.RetentionSweeperParams{
		Logger:     logg,
		DB:         txRunner,
		Repository: reservationRepo,
		Window:     cfg.Retention.Window,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention sweeper", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Logger:  logg,
		Sweeper: sweeper,
		Metrics: metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention job", err)
		os.Exit(1)
	}

	overdueJob, err := cron.NewOverdueReminderJob(cron.OverdueReminderJobParams{
		Logger:       logg,
		Records:      checkouts.NewRepository(conn),
		Reservations: reservationRepo,
		Mailer:       mail,
		Metrics:      metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create overdue reminder job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Retention.LockKey, cfg.Retention.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(retentionJob, overdueJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Retention.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	metricsServer := &http.Server{Addr: ":" + cfg.App.Port, Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		if err := metricsServer.Shutdown(context.Background()); err != nil {
			logg.Error(ctx, "error shutting down metrics server", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
