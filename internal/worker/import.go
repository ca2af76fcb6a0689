package worker

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/db"
	"github.com/geonook/learning-management-system-esid-sub001/internal/importer"
	"github.com/geonook/learning-management-system-esid-sub001/internal/logger"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/queue"
	"github.com/geonook/learning-management-system-esid-sub001/internal/sheet"
	"github.com/geonook/learning-management-system-esid-sub001/internal/storage"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// ImportWorker consumes import jobs: it downloads the uploaded workbook,
// parses and validates it, runs the five-stage pipeline, and persists the
// run report. Parse failures fail the run; pipeline errors are carried in
// the report, never thrown.
type ImportWorker struct {
	cfg        *config.Config
	repo       db.Repository
	storage    storage.Storage
	rowStore   store.RowStore
	parser     sheet.ParsingStrategy
	consumer   *queue.Consumer
	workerPool *WorkerPool
	log        zerolog.Logger
}

func NewImportWorker(
	cfg *config.Config,
	repo db.Repository,
	st storage.Storage,
	rowStore store.RowStore,
	redisClient *queue.RedisClient,
) *ImportWorker {
	return &ImportWorker{
		cfg:        cfg,
		repo:       repo,
		storage:    st,
		rowStore:   rowStore,
		parser:     sheet.NewWorkbookStrategy(),
		consumer:   queue.NewConsumer(redisClient, cfg),
		workerPool: NewWorkerPool(cfg.Workers.Import.Count),
		log:        logger.Get(),
	}
}

func (w *ImportWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting import worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeImportQueue(ctx, w.handleMessage)
}

func (w *ImportWorker) Stop() {
	w.log.Info().Msg("Stopping import worker")
	w.workerPool.Stop()
}

func (w *ImportWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.ImportJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal import job")
		return err
	}

	w.log.Info().
		Int64("run_id", job.RunID).
		Int64("file_id", job.FileID).
		Str("storage_key", job.StorageKey).
		Msg("Processing import job")

	w.workerPool.Submit(func(ctx context.Context) error {
		return w.processRun(ctx, job)
	})

	return nil
}

func (w *ImportWorker) processRun(ctx context.Context, job model.ImportJob) error {
	log := w.log.With().Int64("run_id", job.RunID).Int64("file_id", job.FileID).Logger()

	input, err := w.loadInput(ctx, job, log)
	if err != nil {
		return err
	}

	log.Debug().Msg("Executing import pipeline")
	executor := importer.NewExecutor(w.rowStore, w.cfg.Importer)
	result := executor.Execute(ctx, input, job.TriggeredBy)

	if err := w.repo.FinishRun(ctx, job.RunID, result); err != nil {
		log.Error().Err(err).Msg("Failed to persist run result")
		return err
	}

	fileStatus := model.FileStatusImported
	if !result.Success {
		fileStatus = model.FileStatusImportFail
	}
	if err := w.repo.UpdateFileStatus(ctx, job.FileID, fileStatus, nil); err != nil {
		log.Error().Err(err).Msg("Failed to update file status")
		return err
	}

	log.Info().
		Bool("success", result.Success).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("Import run processed")
	return nil
}

// loadInput downloads, parses, and validates the uploaded file. Any failure
// here marks both the run and the file as failed.
func (w *ImportWorker) loadInput(ctx context.Context, job model.ImportJob, log zerolog.Logger) (*model.ImportInput, error) {
	fail := func(err error) (*model.ImportInput, error) {
		errorMsg := err.Error()
		if failErr := w.repo.FailRun(ctx, job.RunID, errorMsg); failErr != nil {
			log.Error().Err(failErr).Msg("Failed to mark run as failed")
		}
		if statusErr := w.repo.UpdateFileStatus(ctx, job.FileID, model.FileStatusImportFail, &errorMsg); statusErr != nil {
			log.Error().Err(statusErr).Msg("Failed to update file status")
		}
		return nil, err
	}

	log.Debug().Msg("Downloading file from storage")
	reader, err := w.storage.Download(ctx, job.StorageKey)
	if err != nil {
		log.Error().Err(err).Msg("Failed to download file")
		return fail(err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read file data")
		return fail(err)
	}

	log.Debug().Msg("Parsing import file")
	input, err := w.parser.Parse(ctx, data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse import file")
		return fail(err)
	}

	if err := w.parser.Validate(ctx, input); err != nil {
		log.Error().Err(err).Msg("Import validation failed")
		return fail(err)
	}

	return input, nil
}
