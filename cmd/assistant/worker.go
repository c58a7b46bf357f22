package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/session"
	"github.com/aescanero/dago-node-assistant/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Answer questions from a Redis stream",
	Long: `Run the stream worker. Questions are read from STREAM_KEY through the
CONSUMER_GROUP consumer group and answers are published to RESULT_STREAM.
Conversation history is kept in Redis. Health endpoints are served on
HEALTH_PORT.`,
	RunE: runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting assistant worker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("worker_id", cfg.WorkerID),
	)

	// Log configuration (without sensitive data)
	logger.Info("configuration loaded", zap.String("config", cfg.String()))

	redisClient := redis.NewClient(cfg.RedisOptions())

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", zap.Error(err))
		return err
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	sessions := session.NewRedisStore(redisClient, cfg.SessionMaxTurns, cfg.SessionTTL)
	a, err := buildApp(cfg, sessions, logger)
	if err != nil {
		logger.Error("failed to initialize assistant", zap.Error(err))
		return err
	}

	w := worker.NewWorker(cfg, redisClient, a.service, logger.Named("worker"))
	if err := w.Start(); err != nil {
		logger.Error("failed to start worker", zap.Error(err))
		return err
	}

	healthServer := worker.NewHealthServer(cfg.HealthPort, logger,
		worker.RedisCheck(redisClient),
		worker.PingCheck("sqlite", a.store),
	)
	if err := healthServer.Start(); err != nil {
		logger.Error("failed to start health server", zap.Error(err))
		return err
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("assistant worker running, press Ctrl+C to stop")
	<-sigChan

	logger.Info("shutdown signal received, stopping worker")

	// The in-flight question may take the whole orchestration budget
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		cfg.OrchestrationBudget+cfg.SynthesisTimeout+5*time.Second)
	defer shutdownCancel()

	if err := healthServer.Stop(); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}

	if err := w.Stop(shutdownCtx); err != nil {
		logger.Warn("shutdown timeout exceeded, forcing exit", zap.Error(err))
	}

	if err := a.Close(); err != nil {
		logger.Error("failed to close database", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("failed to close redis connection", zap.Error(err))
	}

	logger.Info("worker stopped gracefully")
	return nil
}
