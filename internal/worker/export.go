package worker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/export"
	"github.com/geonook/learning-management-system-esid-sub001/internal/logger"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/queue"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

type ExportWorker struct {
	cfg           *config.Config
	exportService *export.Service
	consumer      *queue.Consumer
	workerPool    *WorkerPool
	log           zerolog.Logger
}

func NewExportWorker(
	cfg *config.Config,
	rowStore store.RowStore,
	redisClient *queue.RedisClient,
) *ExportWorker {
	return &ExportWorker{
		cfg:           cfg,
		exportService: export.NewService(cfg, rowStore),
		consumer:      queue.NewConsumer(redisClient, cfg),
		workerPool:    NewWorkerPool(cfg.Workers.Export.Count),
		log:           logger.Get(),
	}
}

func (w *ExportWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting export worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeExportQueue(ctx, w.handleMessage)
}

func (w *ExportWorker) Stop() {
	w.log.Info().Msg("Stopping export worker")
	w.workerPool.Stop()
}

func (w *ExportWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.ExportJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal export job")
		return err
	}

	w.log.Info().Str("exam_id", job.ExamID).Msg("Processing export job")

	w.workerPool.Submit(func(ctx context.Context) error {
		return w.exportService.ProcessExportJob(ctx, job)
	})

	return nil
}
