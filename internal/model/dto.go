package model

import "time"

// ImportJob is the queue payload for one asynchronous import run.
type ImportJob struct {
	RunID       int64  `json:"run_id"`
	FileID      int64  `json:"file_id"`
	StorageKey  string `json:"storage_key"`
	TriggeredBy string `json:"triggered_by"`
}

// ExportJob asks the export worker to push one exam's scores to iSchool.
type ExportJob struct {
	ExamID      string `json:"exam_id"`
	TriggeredBy string `json:"triggered_by"`
}

type RunStatusResponse struct {
	RunID        int64      `json:"run_id"`
	FileID       int64      `json:"file_id"`
	Status       RunStatus  `json:"status"`
	DryRun       bool       `json:"dry_run"`
	CreatedCount int        `json:"created_count"`
	UpdatedCount int        `json:"updated_count"`
	ErrorCount   int        `json:"error_count"`
	WarningCount int        `json:"warning_count"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

type AuthTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// ScoreExportBatch is the payload shape the iSchool gateway accepts.
type ScoreExportBatch struct {
	Scores []ISchoolScore `json:"scores"`
}

type ISchoolScore struct {
	StudentID      string  `json:"student_id"`
	ExamName       string  `json:"exam_name"`
	AssessmentCode string  `json:"assessment_code"`
	Score          float64 `json:"score"`
}

type ExportBatchResponse struct {
	Success bool     `json:"success"`
	Failed  []string `json:"failed,omitempty"`
	Message string   `json:"message,omitempty"`
}
