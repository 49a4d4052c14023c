// Package remotecompile provides the execution backend for the remote
// compile-and-run API serving python and go suites.
package remotecompile

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

// Backend submits suite source to a compile-and-run API. The API needs a
// key; a missing key or endpoint makes the backend unavailable, which the
// dispatcher surfaces as a failure rather than a crash.
type Backend struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	retries  int
	delay    time.Duration
	client   *http.Client
	logger   *slog.Logger
}

type compileRequest struct {
	Language string         `json:"language"`
	Source   string         `json:"source"`
	Stdin    string         `json:"stdin,omitempty"`
	Inputs   map[string]any `json:"inputs,omitempty"`
}

type phaseResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

type compileResponse struct {
	Compile *phaseResult `json:"compile,omitempty"`
	Run     *phaseResult `json:"run,omitempty"`
	Message string       `json:"message,omitempty"`
}

// NewBackend creates a remote compile backend from configuration.
func NewBackend(config map[string]any, logger *slog.Logger) (*Backend, error) {
	endpoint, _ := config["endpoint"].(string)
	apiKey, _ := config["api_key"].(string)

	timeout := 60 * time.Second
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	retries := 3
	if attempts, ok := config["retries"].(float64); ok && attempts > 0 {
		retries = int(attempts)
	}

	delay := 2 * time.Second
	if seconds, ok := config["retry_delay"].(float64); ok && seconds >= 0 {
		delay = time.Duration(seconds) * time.Second
	}

	return &Backend{
		endpoint: endpoint,
		apiKey:   apiKey,
		timeout:  timeout,
		retries:  retries,
		delay:    delay,
		client:   &http.Client{},
		logger:   logger.With("module", "remotecompile_backend"),
	}, nil
}

// Available reports whether the API endpoint and credential are configured.
func (b *Backend) Available() error {
	if b.endpoint == "" {
		return errors.New("compile API endpoint is not configured (set COMPILE_API_ENDPOINT)")
	}

	if b.apiKey == "" {
		return errors.New("compile API key is not configured (set COMPILE_API_KEY)")
	}

	return nil
}

// Run submits the suite to the compile-and-run API, retrying on server
// errors before giving up.
func (b *Backend) Run(ctx context.Context, suite *models.Suite, inputs map[string]any) (*models.JobResult, error) {
	payload, err := json.Marshal(compileRequest{
		Language: string(suite.Language),
		Source:   suite.Code,
		Inputs:   inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode compile request: %w", err)
	}

	var lastErr error

	for attempt := 1; attempt <= b.retries; attempt++ {
		if attempt > 1 {
			b.logger.InfoContext(ctx, "Retrying compile API call", "attempt", attempt, "max_attempts", b.retries)
			time.Sleep(b.delay)
		}

		result, retryable, err := b.submit(ctx, payload, suite)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, fmt.Errorf("compile API call failed after %d attempts: %w", b.retries, lastErr)
}

func (b *Backend) submit(ctx context.Context, payload []byte, suite *models.Suite) (*models.JobResult, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, b.endpoint+"/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create compile request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("compile API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read compile API response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("compile API returned status %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("compile API rejected the request with status %d: %s", resp.StatusCode, string(body))
	}

	var decoded compileResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, false, fmt.Errorf("failed to decode compile API response: %w", err)
	}

	b.logger.DebugContext(ctx, "Compile API call finished", "suite_id", suite.ID)

	return normalizeResponse(&decoded), false, nil
}

// normalizeResponse folds the two-phase API result into the JobResult
// contract. A compile failure wins over the run phase, which never happened.
func normalizeResponse(resp *compileResponse) *models.JobResult {
	if resp.Compile != nil && resp.Compile.ExitCode != 0 {
		return &models.JobResult{
			Status:  models.JobStatusFailure,
			Message: "compilation failed",
			Output:  resp.Compile.Stdout,
			Error:   resp.Compile.Stderr,
		}
	}

	if resp.Run == nil {
		return &models.JobResult{
			Status:  models.JobStatusFailure,
			Message: "compile API returned no run result",
			Error:   resp.Message,
		}
	}

	output := resp.Run.Stdout
	if resp.Compile != nil && resp.Compile.Stdout != "" {
		output = strings.TrimSpace(resp.Compile.Stdout + "\n" + output)
	}

	if resp.Run.ExitCode != 0 {
		return &models.JobResult{
			Status:  models.JobStatusFailure,
			Message: fmt.Sprintf("suite exited with code %d", resp.Run.ExitCode),
			Output:  output,
			Error:   resp.Run.Stderr,
		}
	}

	return &models.JobResult{
		Status: models.JobStatusSuccess,
		Output: output,
		Error:  resp.Run.Stderr,
	}
}
