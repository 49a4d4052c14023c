// Package sandbox provides the execution backend for the JavaScript
// interpreter sandbox service.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
)

// Backend talks to a sandboxed interpreter over HTTP. The sandbox owns the
// actual script isolation; this backend only carries code in and results
// out.
type Backend struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
}

type executeRequest struct {
	Code   string         `json:"code"`
	Inputs map[string]any `json:"inputs,omitempty"`
}

type executeResponse struct {
	Success   bool           `json:"success"`
	Output    string         `json:"output"`
	Error     string         `json:"error,omitempty"`
	Artifacts map[string]any `json:"artifacts,omitempty"`
}

// NewBackend creates a sandbox backend from configuration.
func NewBackend(config map[string]any, logger *slog.Logger) (*Backend, error) {
	endpoint, _ := config["endpoint"].(string)

	timeout := 30 * time.Second
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Backend{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{},
		logger:   logger.With("module", "sandbox_backend"),
	}, nil
}

// Available reports whether the sandbox endpoint is configured.
func (b *Backend) Available() error {
	if b.endpoint == "" {
		return errors.New("sandbox endpoint is not configured (set SANDBOX_ENDPOINT)")
	}

	return nil
}

// Run submits the suite code to the sandbox and normalizes its response.
func (b *Backend) Run(ctx context.Context, suite *models.Suite, inputs map[string]any) (*models.JobResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	payload, err := json.Marshal(executeRequest{Code: suite.Code, Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sandbox request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, b.endpoint+"/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sandbox response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sandbox returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded executeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode sandbox response: %w", err)
	}

	b.logger.DebugContext(ctx, "Sandbox execution finished", "suite_id", suite.ID, "success", decoded.Success)

	status := models.JobStatusSuccess
	if !decoded.Success {
		status = models.JobStatusFailure
	}

	return &models.JobResult{
		Status:    status,
		Output:    decoded.Output,
		Error:     decoded.Error,
		Artifacts: decoded.Artifacts,
	}, nil
}
