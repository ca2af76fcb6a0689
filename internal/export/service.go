package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/logger"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/internal/store"
)

// Service pushes one exam's scores to the iSchool gateway in bounded batches
// with retries. Score rows carry surrogate ids, so the natural keys iSchool
// expects (student number, exam name) are re-joined from the store first.
type Service struct {
	cfg    *config.Config
	store  store.RowStore
	client *Client
	log    zerolog.Logger
}

func NewService(cfg *config.Config, st store.RowStore) *Service {
	return &Service{
		cfg:    cfg,
		store:  st,
		client: NewClient(cfg),
		log:    logger.Get(),
	}
}

func (s *Service) ProcessExportJob(ctx context.Context, job model.ExportJob) error {
	log := s.log.With().Str("exam_id", job.ExamID).Logger()
	log.Info().Msg("Processing export job")

	exams, err := s.store.Select(ctx, "exams", store.Filter{
		Eq:    map[string]interface{}{"id": job.ExamID},
		Limit: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to load exam: %w", err)
	}
	if len(exams) == 0 {
		return fmt.Errorf("exam %s not found", job.ExamID)
	}
	examName := exams[0].String("name")

	scoreRows, err := s.store.Select(ctx, "scores", store.Filter{
		Eq: map[string]interface{}{"exam_id": job.ExamID},
	})
	if err != nil {
		return fmt.Errorf("failed to load scores: %w", err)
	}
	if len(scoreRows) == 0 {
		log.Info().Msg("No scores to export")
		return nil
	}

	numberByID, err := s.studentNumbers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load students: %w", err)
	}

	scores := make([]model.ISchoolScore, 0, len(scoreRows))
	for _, row := range scoreRows {
		number := numberByID[row.String("student_id")]
		if number == "" {
			log.Warn().Str("score_id", row.ID()).Msg("Score has no resolvable student, skipping")
			continue
		}
		scores = append(scores, model.ISchoolScore{
			StudentID:      number,
			ExamName:       examName,
			AssessmentCode: row.String("assessment_code"),
			Score:          row.Float("score"),
		})
	}

	batchSize := s.cfg.ISchool.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	total := 0
	for start := 0; start < len(scores); start += batchSize {
		end := start + batchSize
		if end > len(scores) {
			end = len(scores)
		}
		if err := s.sendBatch(ctx, scores[start:end]); err != nil {
			return err
		}
		total += end - start
	}

	log.Info().Int("total_exported", total).Msg("Export job completed")
	return nil
}

func (s *Service) sendBatch(ctx context.Context, scores []model.ISchoolScore) error {
	var lastErr error
	for attempt := 0; attempt < s.cfg.ISchool.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.ISchool.RetryDelay * time.Duration(attempt+1)):
				// Exponential backoff
			}
		}

		resp, err := s.client.SendScoreBatch(ctx, scores)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("Batch send failed, retrying")
			continue
		}

		if !resp.Success {
			// Partial failure: the gateway names the failed student numbers.
			// Those stay behind for a manual re-export; the batch as a whole
			// is not retried.
			s.log.Warn().
				Strs("failed_students", resp.Failed).
				Str("message", resp.Message).
				Msg("iSchool rejected part of the batch")
		}
		return nil
	}

	return fmt.Errorf("max retries exhausted: %w", lastErr)
}

func (s *Service) studentNumbers(ctx context.Context) (map[string]string, error) {
	rows, err := s.store.Select(ctx, "students", store.Filter{})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.ID()] = row.String("student_id")
	}
	return out, nil
}
