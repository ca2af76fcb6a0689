package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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

type Handler struct {
	repo     db.Repository
	producer *queue.Producer
	storage  storage.Storage
	rowStore store.RowStore
	parser   sheet.ParsingStrategy
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(
	repo db.Repository,
	producer *queue.Producer,
	st storage.Storage,
	rowStore store.RowStore,
	cfg *config.Config,
) *Handler {
	return &Handler{
		repo:     repo,
		producer: producer,
		storage:  st,
		rowStore: rowStore,
		parser:   sheet.NewWorkbookStrategy(),
		cfg:      cfg,
		log:      logger.Get(),
	}
}

// UploadFile stores a workbook or CSV in object storage and registers it for
// import. The actual import happens asynchronously via TriggerImport.
func (h *Handler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file field"})
		return
	}
	uploadedBy := c.PostForm("uploaded_by")
	if uploadedBy == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing uploaded_by field"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer src.Close()

	key := fmt.Sprintf("imports/%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename))
	if err := h.storage.Upload(c.Request.Context(), key, src); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to upload file to storage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	file := &model.ImportFile{
		StorageKey: key,
		FileName:   fileHeader.Filename,
		UploadedBy: uploadedBy,
		Status:     model.FileStatusUploaded,
	}
	if err := h.repo.CreateFile(c.Request.Context(), file); err != nil {
		h.log.Error().Err(err).Msg("Failed to register uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register file"})
		return
	}

	h.log.Info().Int64("file_id", file.ID).Str("key", key).Msg("Import file uploaded")
	c.JSON(http.StatusCreated, gin.H{"file_id": file.ID, "storage_key": key})
}

type triggerRequest struct {
	TriggeredBy string `json:"triggered_by" binding:"required"`
}

// TriggerImport enqueues an asynchronous import run for an uploaded file.
func (h *Handler) TriggerImport(c *gin.Context) {
	fileID, ok := h.fileIDParam(c)
	if !ok {
		return
	}

	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	file, err := h.repo.GetFile(c.Request.Context(), fileID)
	if err != nil {
		h.log.Error().Err(err).Int64("file_id", fileID).Msg("File not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	if file.Status == model.FileStatusImporting {
		c.JSON(http.StatusConflict, gin.H{"error": "Import already in progress", "status": file.Status})
		return
	}

	run := &model.ImportRun{FileID: file.ID, TriggeredBy: req.TriggeredBy}
	if err := h.repo.CreateRun(c.Request.Context(), run); err != nil {
		h.log.Error().Err(err).Msg("Failed to create import run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create run"})
		return
	}

	if err := h.repo.UpdateFileStatus(c.Request.Context(), file.ID, model.FileStatusImporting, nil); err != nil {
		h.log.Error().Err(err).Msg("Failed to update file status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	job := model.ImportJob{
		RunID:       run.ID,
		FileID:      file.ID,
		StorageKey:  file.StorageKey,
		TriggeredBy: req.TriggeredBy,
	}
	if err := h.producer.EnqueueImportJob(c.Request.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue import job"})
		return
	}

	h.log.Info().Int64("run_id", run.ID).Int64("file_id", file.ID).Msg("Import job enqueued")
	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "job": job})
}

// DryRunImport parses the uploaded file and runs the read-only checker
// synchronously; nothing is written to the row store.
func (h *Handler) DryRunImport(c *gin.Context) {
	fileID, ok := h.fileIDParam(c)
	if !ok {
		return
	}

	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	file, err := h.repo.GetFile(c.Request.Context(), fileID)
	if err != nil {
		h.log.Error().Err(err).Int64("file_id", fileID).Msg("File not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	reader, err := h.storage.Download(c.Request.Context(), file.StorageKey)
	if err != nil {
		h.log.Error().Err(err).Str("key", file.StorageKey).Msg("Failed to download file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stored file"})
		return
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read stored file"})
		return
	}

	input, err := h.parser.Parse(c.Request.Context(), data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Parse failed: %v", err)})
		return
	}
	if err := h.parser.Validate(c.Request.Context(), input); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Validation failed: %v", err)})
		return
	}

	checker := importer.NewDryRunChecker(h.rowStore, h.cfg.Importer)
	result := checker.Check(c.Request.Context(), input, req.TriggeredBy)

	run := &model.ImportRun{FileID: file.ID, TriggeredBy: req.TriggeredBy, DryRun: true}
	if err := h.repo.CreateRun(c.Request.Context(), run); err == nil {
		if err := h.repo.FinishDryRun(c.Request.Context(), run.ID, result); err != nil {
			h.log.Error().Err(err).Int64("run_id", run.ID).Msg("Failed to persist dry run result")
		}
	} else {
		h.log.Error().Err(err).Msg("Failed to record dry run")
	}

	c.JSON(http.StatusOK, gin.H{"run_id": run.ID, "result": result})
}

// GetRunStatus returns the status and, once finished, the full report of a run.
func (h *Handler) GetRunStatus(c *gin.Context) {
	runIDStr := c.Param("run_id")
	runID, err := strconv.ParseInt(runIDStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	run, err := h.repo.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.log.Error().Err(err).Int64("run_id", runID).Msg("Run not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	resp := gin.H{
		"run": model.RunStatusResponse{
			RunID:        run.ID,
			FileID:       run.FileID,
			Status:       run.Status,
			DryRun:       run.DryRun,
			CreatedCount: run.CreatedCount,
			UpdatedCount: run.UpdatedCount,
			ErrorCount:   run.ErrorCount,
			WarningCount: run.WarningCount,
			StartedAt:    run.StartedAt,
			FinishedAt:   run.FinishedAt,
		},
	}
	if run.ResultJSON != nil {
		resp["result"] = json.RawMessage(*run.ResultJSON)
	}

	c.JSON(http.StatusOK, resp)
}

type exportRequest struct {
	ExamID      string `json:"exam_id" binding:"required"`
	TriggeredBy string `json:"triggered_by" binding:"required"`
}

// TriggerExport enqueues an iSchool export for one exam's scores.
func (h *Handler) TriggerExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	job := model.ExportJob{ExamID: req.ExamID, TriggeredBy: req.TriggeredBy}
	if err := h.producer.EnqueueExportJob(c.Request.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue export job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue export job"})
		return
	}

	h.log.Info().Str("exam_id", req.ExamID).Msg("Export job enqueued")
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func (h *Handler) fileIDParam(c *gin.Context) (int64, bool) {
	fileID, err := strconv.ParseInt(c.Param("file_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file ID"})
		return 0, false
	}
	return fileID, true
}
