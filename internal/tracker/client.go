// Package tracker is the client side of the stage tracker: it fetches stages
// and tasks from the API, joins them, and holds the state the dashboard
// renders.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/pkg/observability"
)

// Config holds configuration for the API client
type Config struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	DefaultType string        `mapstructure:"default_type" validate:"omitempty,oneof=buyer seller"`
}

// DefaultConfig returns a Config pointing at a local API server
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:8080/api",
		Timeout:     10 * time.Second,
		DefaultType: string(models.StageTypeBuyer),
	}
}

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	Status  int
	Message string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api responded %d", e.Status)
	}
	return fmt.Sprintf("api responded %d: %s", e.Status, e.Message)
}

// Client is a client for the stage tracker REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     observability.Logger
}

// NewClient creates a new API client
func NewClient(cfg Config, logger observability.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListStages returns the stages of stageType in creation order
func (c *Client) ListStages(ctx context.Context, stageType models.StageType) ([]models.Stage, error) {
	path := "/stages"
	if stageType != "" {
		path += "?type=" + url.QueryEscape(stageType.String())
	}
	var stages []models.Stage
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// ListTasks returns every task, unfiltered
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.doRequest(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListFeatures returns the display-only features for role
func (c *Client) ListFeatures(ctx context.Context, role models.StageType) ([]models.Feature, error) {
	path := "/features"
	if role != "" {
		path += "?role=" + url.QueryEscape(role.String())
	}
	var features []models.Feature
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &features); err != nil {
		return nil, err
	}
	return features, nil
}

// SetStageCompleted sets the completion flag of a stage
func (c *Client) SetStageCompleted(ctx context.Context, id string, completed bool) error {
	return c.doRequest(ctx, http.MethodPatch, "/stages/"+url.PathEscape(id), map[string]bool{"isCompleted": completed}, nil)
}

// SetTaskCompleted sets the completion flag of a task
func (c *Client) SetTaskCompleted(ctx context.Context, id string, completed bool) error {
	return c.doRequest(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), map[string]bool{"isCompleted": completed}, nil)
}

// doRequest performs an HTTP request with the given method, path, and body
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errorResp)
		c.logger.Debug("API request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		})
		return &StatusError{Status: resp.StatusCode, Message: errorResp.Error}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
