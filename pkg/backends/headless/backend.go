// Package headless provides the execution backend for the headless
// browser-automation runtime.
package headless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
)

// Backend drives web suites through a browser-automation service. When the
// caller asks for an interactive session the service hands the run off to
// its own window and the backend reports pending; neither executor counts
// pending as a failure.
type Backend struct {
	endpoint    string
	interactive bool
	timeout     time.Duration
	client      *http.Client
	logger      *slog.Logger
}

type runRequest struct {
	Script      string         `json:"script"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	Interactive bool           `json:"interactive"`
}

type runResponse struct {
	Status     string         `json:"status"` // passed | failed | pending
	Logs       []string       `json:"logs,omitempty"`
	Error      string         `json:"error,omitempty"`
	SessionURL string         `json:"session_url,omitempty"`
	Artifacts  map[string]any `json:"artifacts,omitempty"`
}

// NewBackend creates a headless backend from configuration.
func NewBackend(config map[string]any, logger *slog.Logger) (*Backend, error) {
	endpoint, _ := config["endpoint"].(string)
	interactive, _ := config["interactive"].(bool)

	// Browser suites wait on elements, so the default deadline is generous.
	timeout := 120 * time.Second
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Backend{
		endpoint:    endpoint,
		interactive: interactive,
		timeout:     timeout,
		client:      &http.Client{},
		logger:      logger.With("module", "headless_backend"),
	}, nil
}

// Available reports whether the browser runtime endpoint is configured.
func (b *Backend) Available() error {
	if b.endpoint == "" {
		return errors.New("headless runtime endpoint is not configured (set HEADLESS_ENDPOINT)")
	}

	return nil
}

// Run submits the web suite to the browser runtime.
func (b *Backend) Run(ctx context.Context, suite *models.Suite, inputs map[string]any) (*models.JobResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	payload, err := json.Marshal(runRequest{
		Script:      suite.Code,
		Inputs:      inputs,
		Interactive: b.interactive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode headless run request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, b.endpoint+"/runs", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create headless run request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("headless run request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read headless run response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("headless runtime returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded runResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode headless run response: %w", err)
	}

	output := strings.Join(decoded.Logs, "\n")

	switch decoded.Status {
	case "passed":
		return &models.JobResult{
			Status:    models.JobStatusSuccess,
			Output:    output,
			Artifacts: decoded.Artifacts,
		}, nil
	case "pending":
		b.logger.InfoContext(ctx, "Run handed off to interactive session", "suite_id", suite.ID, "session_url", decoded.SessionURL)

		return &models.JobResult{
			Status:    models.JobStatusPending,
			Message:   "run continues in interactive session " + decoded.SessionURL,
			Output:    output,
			Artifacts: decoded.Artifacts,
		}, nil
	default:
		return &models.JobResult{
			Status:    models.JobStatusFailure,
			Output:    output,
			Error:     decoded.Error,
			Artifacts: decoded.Artifacts,
		}, nil
	}
}
