package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
)

type Repository interface {
	CreateFile(ctx context.Context, file *model.ImportFile) error
	GetFile(ctx context.Context, fileID int64) (*model.ImportFile, error)
	UpdateFileStatus(ctx context.Context, fileID int64, status model.FileStatus, errorMessage *string) error

	CreateRun(ctx context.Context, run *model.ImportRun) error
	GetRun(ctx context.Context, runID int64) (*model.ImportRun, error)
	FinishRun(ctx context.Context, runID int64, result *model.ImportResult) error
	FinishDryRun(ctx context.Context, runID int64, result *model.DryRunResult) error
	FailRun(ctx context.Context, runID int64, message string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateFile(ctx context.Context, file *model.ImportFile) error {
	query := `INSERT INTO import_files (storage_key, file_name, uploaded_by, status) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, file.StorageKey, file.FileName, file.UploadedBy, file.Status)
	if err != nil {
		return err
	}
	file.ID, err = res.LastInsertId()
	return err
}

func (r *repository) GetFile(ctx context.Context, fileID int64) (*model.ImportFile, error) {
	query := `SELECT id, storage_key, file_name, uploaded_by, status, error_message, created_at, updated_at
			  FROM import_files WHERE id = ?`

	var file model.ImportFile
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(
		&file.ID, &file.StorageKey, &file.FileName, &file.UploadedBy,
		&file.Status, &file.ErrorMessage, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (r *repository) UpdateFileStatus(ctx context.Context, fileID int64, status model.FileStatus, errorMessage *string) error {
	query := `UPDATE import_files SET status = ?, error_message = ?, updated_at = NOW() WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, status, errorMessage, fileID)
	return err
}

func (r *repository) CreateRun(ctx context.Context, run *model.ImportRun) error {
	query := `INSERT INTO import_runs (file_id, triggered_by, dry_run, status, started_at)
			  VALUES (?, ?, ?, ?, NOW())`
	res, err := r.db.ExecContext(ctx, query, run.FileID, run.TriggeredBy, run.DryRun, model.RunStatusRunning)
	if err != nil {
		return err
	}
	run.Status = model.RunStatusRunning
	run.ID, err = res.LastInsertId()
	return err
}

func (r *repository) GetRun(ctx context.Context, runID int64) (*model.ImportRun, error) {
	query := `SELECT id, file_id, triggered_by, dry_run, status, created_count, updated_count,
			  error_count, warning_count, result_json, started_at, finished_at
			  FROM import_runs WHERE id = ?`

	var run model.ImportRun
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID, &run.FileID, &run.TriggeredBy, &run.DryRun, &run.Status,
		&run.CreatedCount, &run.UpdatedCount, &run.ErrorCount, &run.WarningCount,
		&run.ResultJSON, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func (r *repository) FinishRun(ctx context.Context, runID int64, result *model.ImportResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	status := model.RunStatusSuccess
	if !result.Success {
		status = model.RunStatusFailed
	}

	created, updated := 0, 0
	for _, s := range result.Summary {
		created += s.Created
		updated += s.Updated
	}

	query := `UPDATE import_runs SET status = ?, created_count = ?, updated_count = ?,
			  error_count = ?, warning_count = ?, result_json = ?, finished_at = NOW()
			  WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query, status, created, updated,
		len(result.Errors), len(result.Warnings), string(payload), runID)
	return err
}

func (r *repository) FinishDryRun(ctx context.Context, runID int64, result *model.DryRunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}

	wouldCreate := 0
	for _, n := range result.WouldCreate {
		wouldCreate += n
	}

	query := `UPDATE import_runs SET status = ?, created_count = ?, warning_count = ?,
			  result_json = ?, finished_at = NOW() WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query, model.RunStatusSuccess, wouldCreate,
		len(result.PotentialWarnings), string(payload), runID)
	return err
}

func (r *repository) FailRun(ctx context.Context, runID int64, message string) error {
	query := `UPDATE import_runs SET status = ?, result_json = ?, finished_at = NOW() WHERE id = ?`
	payload, _ := json.Marshal(map[string]string{"error": message})
	_, err := r.db.ExecContext(ctx, query, model.RunStatusFailed, string(payload), runID)
	return err
}
