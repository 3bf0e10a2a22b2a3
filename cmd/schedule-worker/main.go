package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cadence/internal/amqp"
	"cadence/internal/config"
	"cadence/internal/core"
	applog "cadence/internal/log"
	"cadence/internal/services"
	"cadence/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentSchedule,
		Handler:   applog.DefaultConfig().Handler,
	})
	applog.SetDefault(logger)

	logger.Info("Starting schedule-worker")

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
	defer sqliteRepo.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	} else {
		logger.Info("AMQP disabled - generated transactions will not be exported")
	}

	service := services.NewRecurringService(sqliteRepo, amqpClient)
	processor := services.NewScheduleProcessor(service)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Schedule processor configured",
		"interval", cfg.ProcessInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.ProcessInterval)
	defer ticker.Stop()

	runOnce := func(now time.Time) {
		count, err := processor.ProcessDue(ctx, core.DateOf(now))
		if err != nil {
			logger.Error("Schedule processing failed", "error", err)
			return
		}
		if count > 0 {
			logger.Info("Schedule processing complete", "items_processed", count)
		}
	}

	logger.Info("Running initial schedule processing...")
	runOnce(time.Now())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runOnce(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()
	logger.Info("Schedule worker stopped gracefully")
}
