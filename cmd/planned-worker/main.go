package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bilancio/internal/amqp"
	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting planned-worker")

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

	// Posted transactions are announced on AMQP so the mirror worker syncs
	// them downstream.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled")
	}

	clock := core.SystemClock{}
	ledgerSvc := ledger.NewService(sqliteRepo, amqpClient)
	coordinator := services.NewCoordinator(sqliteRepo, ledgerSvc, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Planned execution worker configured",
		"interval", cfg.ProcessInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.ProcessInterval)
	defer ticker.Stop()

	logger.Info("Running initial due execution sweep...")
	runSweep(ctx, sqliteRepo, coordinator, clock)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("Running periodic due execution sweep...")
				runSweep(ctx, sqliteRepo, coordinator, clock)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down planned-worker...")
	cancel()

	// Give the current sweep a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Planned-worker shutdown complete")
}

// runSweep executes all due planned transactions for every user that has any.
func runSweep(ctx context.Context, repo *storage.SQLiteRepository, coordinator *services.Coordinator, clock core.Clock) {
	users, err := repo.ListUsersWithDue(ctx, clock.Today())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list users with due planned transactions", "error", err)
		return
	}
	if len(users) == 0 {
		slog.InfoContext(ctx, "No due planned transactions")
		return
	}

	totalExecuted := 0
	totalFailed := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		batch, err := coordinator.ExecuteAllDue(ctx, userID)
		if err != nil {
			slog.ErrorContext(ctx, "Sweep failed for user", "user_id", userID, "error", err)
			continue
		}
		totalExecuted += batch.TotalExecuted
		totalFailed += batch.TotalFailed
	}

	slog.InfoContext(ctx, "Sweep complete",
		"users", len(users),
		"executed", totalExecuted,
		"failed", totalFailed)
}
