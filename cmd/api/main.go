package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/mediadesk/mediadesk-backend/api/routes"
	"github.com/mediadesk/mediadesk-backend/internal/checkouts"
	"github.com/mediadesk/mediadesk-backend/internal/cron"
	"github.com/mediadesk/mediadesk-backend/internal/inventory"
	"github.com/mediadesk/mediadesk-backend/internal/mailer"
	"github.com/mediadesk/mediadesk-backend/internal/messages"
	"github.com/mediadesk/mediadesk-backend/internal/reservations"
	"github.com/mediadesk/mediadesk-backend/internal/triage"
	"github.com/mediadesk/mediadesk-backend/pkg/config"
	"github.com/mediadesk/mediadesk-backend/pkg/db"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
	"github.com/mediadesk/mediadesk-backend/pkg/migrate"
	"github.com/mediadesk/mediadesk-backend/pkg/redis"
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

	mail, err := mailer.NewDispatcher(cfg.Mailer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail dispatcher", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	txRunner, err := db.NewTxRetrier(dbClient, db.RetryPolicyFromConfig(cfg.DB))
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction runner", err)
		os.Exit(1)
	}

	inventorySvc, err := inventory.NewService(inventory.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	checkoutsSvc, err := checkouts.NewService(
		checkouts.NewRepository(conn), txRunner, inventory.NewUnitClaimer(), checkouts.NewItemUsageMarker())
	if err != nil {
		logg.Error(context.Background(), "failed to create checkouts service", err)
		os.Exit(1)
	}

	reservationRepo := reservations.NewRepository(conn)
	reservationsSvc, err := reservations.NewService(
		reservationRepo, checkouts.NewRepository(conn), txRunner, inventorySvc, inventory.NewUnitClaimer(), mail)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservations service", err)
		os.Exit(1)
	}

	messagesSvc, err := messages.NewService(messages.NewRepository(conn), reservationRepo, mail, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create messages service", err)
		os.Exit(1)
	}

	triageSvc, err := triage.NewService(triage.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create triage service", err)
		os.Exit(1)
	}

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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			DBPinger:     dbClient,
			RedisClient:  redisClient,
			Inventory:    inventorySvc,
			Reservations: reservationsSvc,
			Checkouts:    checkoutsSvc,
			Messages:     messagesSvc,
			Triage:       triageSvc,
			Retention:    sweeper,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "error shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
