package model

import "time"

type FileStatus string

const (
	FileStatusUploaded   FileStatus = "UPLOADED"
	FileStatusImporting  FileStatus = "IMPORTING"
	FileStatusImported   FileStatus = "IMPORTED"
	FileStatusImportFail FileStatus = "IMPORT_FAIL"
)

// ImportFile tracks one uploaded workbook or CSV in object storage.
type ImportFile struct {
	ID           int64      `json:"id" db:"id"`
	StorageKey   string     `json:"storage_key" db:"storage_key"`
	FileName     string     `json:"file_name" db:"file_name"`
	UploadedBy   string     `json:"uploaded_by" db:"uploaded_by"`
	Status       FileStatus `json:"status" db:"status"`
	ErrorMessage *string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// ImportRun is the persisted record of one pipeline execution, dry runs
// included. ResultJSON holds the full ImportResult (or DryRunResult) snapshot
// for operator review; the count columns are denormalized for listing.
type ImportRun struct {
	ID           int64      `json:"id" db:"id"`
	FileID       int64      `json:"file_id" db:"file_id"`
	TriggeredBy  string     `json:"triggered_by" db:"triggered_by"`
	DryRun       bool       `json:"dry_run" db:"dry_run"`
	Status       RunStatus  `json:"status" db:"status"`
	CreatedCount int        `json:"created_count" db:"created_count"`
	UpdatedCount int        `json:"updated_count" db:"updated_count"`
	ErrorCount   int        `json:"error_count" db:"error_count"`
	WarningCount int        `json:"warning_count" db:"warning_count"`
	ResultJSON   *string    `json:"-" db:"result_json"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
