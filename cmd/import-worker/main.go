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
	"github.com/geonook/learning-management-system-esid-sub001/internal/storage"
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

	log.Info().Str("version", cfg.App.Version).Msg("Starting import worker")

	// Initialize database
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	repo := db.NewRepository(database)
	rowStore := store.NewSQLStore(database)

	// Initialize Redis client
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Initialize S3 storage
	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	importWorker := worker.NewImportWorker(cfg, repo, s3Storage, rowStore, redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in goroutine
	go func() {
		if err := importWorker.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Import worker stopped with error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down import worker...")
	cancel()
	importWorker.Stop()

	log.Info().Msg("Import worker exited")
}
