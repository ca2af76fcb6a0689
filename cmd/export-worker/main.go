package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/db"
	"github.com/geonook/learning-management-system-esid-sub001/internal/logger"
	"github.com/geonook/learning-management-system-esid-sub001/internal/queue"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
	"github.com/geonook/learning-management-system-esid-sub001/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting export worker")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	rowStore := store.NewSQLStore(database)

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	exportWorker := worker.NewExportWorker(cfg, rowStore, redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in goroutine
	go func() {
		if err := exportWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Export worker stopped with error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down export worker...")
	cancel()
	exportWorker.Stop()

	log.Info().Msg("Export worker exited")
}
