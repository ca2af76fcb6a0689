package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/geonook/learning-management-system-esid-sub001/internal/config"
	"github.com/geonook/learning-management-system-esid-sub001/internal/logger"
	"github.com/geonook/learning-management-system-esid-sub001/internal/model"
	"github.com/geonook/learning-management-system-esid-sub001/pkg/errors"
)

type Client struct {
	cfg         *config.Config
	httpClient  *http.Client
	authManager *AuthManager
	log         zerolog.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		authManager: NewAuthManager(cfg),
		log:         logger.Get(),
	}
}

func (c *Client) SendScoreBatch(ctx context.Context, scores []model.ISchoolScore) (*model.ExportBatchResponse, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("empty score batch")
	}

	batch := model.ScoreExportBatch{Scores: scores}

	token, err := c.authManager.GetToken(ctx)
	if err != nil {
		return nil, errors.NewRetryableError(err, "failed to get auth token")
	}

	jsonData, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	url := c.cfg.ISchool.BaseURL + c.cfg.ISchool.ScoresEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	c.log.Debug().Int("batch_size", len(scores)).Msg("Sending score batch to iSchool")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewRetryableError(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	var batchResp model.ExportBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		c.log.Debug().Bool("success", batchResp.Success).Msg("Batch sent successfully")
		return &batchResp, nil
	case http.StatusUnauthorized:
		// Token might be expired, retry will refresh it
		return nil, errors.NewRetryableError(fmt.Errorf("unauthorized"), "authentication failed")
	case http.StatusBadRequest:
		// Business logic error - don't retry
		return &batchResp, nil
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, errors.NewRetryableError(fmt.Errorf("service unavailable"), "iSchool gateway unavailable")
	default:
		return nil, errors.NewRetryableError(fmt.Errorf("HTTP %d", resp.StatusCode), "iSchool gateway error")
	}
}
