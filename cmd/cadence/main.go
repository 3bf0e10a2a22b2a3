package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cadence/internal/amqp"
	"cadence/internal/config"
	apphttp "cadence/internal/http"
	applog "cadence/internal/log"
	"cadence/internal/services"
	"cadence/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting cadence")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	// AMQP is optional. Without it transactions stay pending locally and are
	// picked up once a broker is configured.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
			amqpClient = nil
		} else {
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - transactions will not be exported")
	}

	service := services.NewRecurringService(sqliteRepo, amqpClient)
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Retry publishing transactions that missed their first attempt.
	var syncProcessor *services.SyncProcessor
	if amqpClient != nil {
		syncProcessor = services.NewSyncProcessor(sqliteRepo, amqpClient, services.SyncProcessorConfig{
			PollInterval: cfg.SyncInterval,
			BatchSize:    cfg.SyncBatchSize,
		})
		if err := syncProcessor.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", "error", err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(service, apphttp.Options{
		Addr:               ":" + cfg.Port,
		UpcomingWindowDays: cfg.UpcomingWindowDays,
		ViewCacheTTL:       cfg.ViewCacheTTL,
		Logger:             logger.Logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Cadence server listening", "port", cfg.Port)
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		if syncProcessor != nil {
			if err := syncProcessor.Stop(context.Background()); err != nil {
				logger.Error("Sync processor shutdown error", "error", err)
			}
		}
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
