package importer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/logger"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// BatchOutcome aggregates one batch write call.
type BatchOutcome struct {
	Created int
	Updated int
	Errors  []model.ImportError
}

// BatchInserter is the shared chunked-write primitive used by every stage.
// It splits rows into fixed-size chunks, attempts one bulk write per chunk,
// and on chunk failure falls back to per-row writes with a bounded retry
// budget. It knows nothing about entity semantics.
type BatchInserter struct {
	store         store.RowStore
	chunkSize     int
	retryAttempts int
	retryDelay    time.Duration
	chunkDelay    time.Duration
	log           zerolog.Logger
}

func NewBatchInserter(st store.RowStore, cfg config.ImporterConfig) *BatchInserter {
	retryAttempts := cfg.RetryAttempts
	if retryAttempts < 1 {
		// The fallback loop must run at least once per row.
		retryAttempts = 1
	}
	return &BatchInserter{
		store:         st,
		chunkSize:     cfg.ChunkSize,
		retryAttempts: retryAttempts,
		retryDelay:    cfg.RetryDelay,
		chunkDelay:    cfg.ChunkDelay,
		log:           logger.Get().With().Str("component", "batch_inserter").Logger(),
	}
}

// Insert bulk-inserts rows into table, chunk by chunk.
func (b *BatchInserter) Insert(ctx context.Context, stage model.ImportStage, table string, rows []store.Row) BatchOutcome {
	return b.write(ctx, stage, table, rows, nil)
}

// Upsert is Insert with insert-or-update semantics on the given conflict
// keys, making re-imports idempotent for the stages that use it.
func (b *BatchInserter) Upsert(ctx context.Context, stage model.ImportStage, table string, rows []store.Row, conflictKeys []string) BatchOutcome {
	return b.write(ctx, stage, table, rows, conflictKeys)
}

func (b *BatchInserter) write(ctx context.Context, stage model.ImportStage, table string, rows []store.Row, conflictKeys []string) BatchOutcome {
	var outcome BatchOutcome
	if len(rows) == 0 {
		return outcome
	}

	log := b.log.With().Str("stage", string(stage)).Str("table", table).Logger()

	for start := 0; start < len(rows); start += b.chunkSize {
		end := start + b.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		created, updated, err := b.writeOnce(ctx, table, chunk, conflictKeys)
		if err != nil {
			log.Warn().Err(err).Int("chunk_size", len(chunk)).Msg("Bulk write failed, falling back to per-row writes")
			b.fallback(ctx, stage, table, chunk, conflictKeys, &outcome)
		} else {
			outcome.Created += created
			outcome.Updated += updated
		}

		// Short pause between chunks regardless of outcome, to avoid
		// saturating the backend connection.
		if end < len(rows) {
			b.sleep(ctx, b.chunkDelay)
		}
	}

	log.Debug().
		Int("created", outcome.Created).
		Int("updated", outcome.Updated).
		Int("errors", len(outcome.Errors)).
		Msg("Batch write completed")
	return outcome
}

func (b *BatchInserter) writeOnce(ctx context.Context, table string, rows []store.Row, conflictKeys []string) (created, updated int, err error) {
	if conflictKeys == nil {
		inserted, err := b.store.Insert(ctx, table, rows)
		if err != nil {
			return 0, 0, err
		}
		return len(inserted), 0, nil
	}
	res, err := b.store.Upsert(ctx, table, rows, conflictKeys)
	if err != nil {
		return 0, 0, err
	}
	return res.Created, res.Updated, nil
}

// fallback writes the chunk's rows one at a time. A row that exhausts its
// retries is recorded as an error and does not block the remaining rows.
func (b *BatchInserter) fallback(ctx context.Context, stage model.ImportStage, table string, rows []store.Row, conflictKeys []string, outcome *BatchOutcome) {
	for _, row := range rows {
		var lastErr error
		recovered := false

		for attempt := 0; attempt < b.retryAttempts; attempt++ {
			if attempt > 0 {
				b.sleep(ctx, b.retryDelay)
			}

			created, updated, err := b.writeOnce(ctx, table, []store.Row{row}, conflictKeys)
			if err == nil {
				outcome.Created += created
				outcome.Updated += updated
				recovered = true
				break
			}
			lastErr = err
		}

		if !recovered {
			outcome.Errors = append(outcome.Errors, model.ImportError{
				Stage:     stage,
				Operation: "create",
				Data:      row,
				Message:   lastErr.Error(),
			})
		}
	}
}

func (b *BatchInserter) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
