// Package dispatcher routes a suite to the execution backend serving its
// language and normalizes every outcome to the JobResult contract.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
	"github.com/scriptflow/scriptflow/pkg/registry"
)

// Dispatcher is synchronous per call: it never queues. Sequencing across
// jobs belongs to the executors.
type Dispatcher struct {
	registry       *registry.Registry
	backendConfigs map[models.SuiteLanguage]map[string]any
	substituter    protocol.EnvironmentSubstituter
	logger         *slog.Logger
}

// NewDispatcher creates a dispatcher. substituter may be nil; the
// substitution hook then never runs.
func NewDispatcher(
	reg *registry.Registry,
	backendConfigs map[models.SuiteLanguage]map[string]any,
	substituter protocol.EnvironmentSubstituter,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:       reg,
		backendConfigs: backendConfigs,
		substituter:    substituter,
		logger:         logger.With("module", "dispatcher"),
	}
}

// RunSuite executes one suite. Backend unavailability (no backend for the
// language, missing credentials, unreachable endpoint) is a failure result
// with a descriptive error, never a silent no-op and never a Go error. A Go
// error is returned only when the backend itself threw: that is an
// execution error the callers treat as fatal to the run.
func (d *Dispatcher) RunSuite(ctx context.Context, suite *models.Suite, inputs map[string]any) (*models.JobResult, error) {
	logger := d.logger.With("suite_id", suite.ID, "language", suite.Language)

	prepared := *suite

	if d.substituter != nil {
		substituted, err := d.substituter.Substitute(suite.Code)
		if err != nil {
			logger.WarnContext(ctx, "Environment substitution failed", "error", err)

			return &models.JobResult{
				Status:  models.JobStatusFailure,
				Message: "environment substitution failed",
				Error:   err.Error(),
			}, nil
		}

		prepared.Code = substituted
	}

	backend, err := d.registry.CreateBackend(suite.Language, d.backendConfigs[suite.Language])
	if err != nil {
		logger.WarnContext(ctx, "No backend available", "error", err)

		return &models.JobResult{
			Status:  models.JobStatusFailure,
			Message: fmt.Sprintf("no execution backend for language %s", suite.Language),
			Error:   err.Error(),
		}, nil
	}

	if err := backend.Available(); err != nil {
		logger.WarnContext(ctx, "Backend unavailable", "error", err)

		return &models.JobResult{
			Status:  models.JobStatusFailure,
			Message: "execution backend unavailable",
			Error:   err.Error(),
		}, nil
	}

	result, err := backend.Run(ctx, &prepared, inputs)
	if err != nil {
		return nil, fmt.Errorf("backend execution failed for suite %s: %w", suite.ID, err)
	}

	// Backends are not always reliable signal sources: a script can print
	// "error" and still exit cleanly. The check runs only on results the
	// backend itself reported as success.
	if result.Status == models.JobStatusSuccess {
		if keyword, found := detectAnomaly(result.Output + " " + result.Error); found {
			warning := fmt.Sprintf("output anomaly detected (%q); downgrading result to failure", keyword)
			logger.WarnContext(ctx, "Backend reported success but output looks like a failure", "keyword", keyword)

			result.Status = models.JobStatusFailure
			if result.Message != "" {
				result.Message += "; "
			}

			result.Message += warning
		}
	}

	return result, nil
}
