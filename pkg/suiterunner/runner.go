// Package suiterunner resolves suites from persistence and executes them
// through the dispatcher, recording last-run metadata and publishing
// lifecycle events.
package suiterunner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scriptflow/scriptflow/pkg/eventbus"
	"github.com/scriptflow/scriptflow/pkg/events"
	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/persistence"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// SuiteDispatcher routes one suite to its execution backend.
type SuiteDispatcher interface {
	RunSuite(ctx context.Context, suite *models.Suite, inputs map[string]any) (*models.JobResult, error)
}

// Runner implements protocol.SuiteRunner. Each run loads the suite, executes
// it through the dispatcher, and unless silent, writes the last-run record
// and publishes a suite.executed event. Persistence and publish failures are
// logged and never change the run outcome.
type Runner struct {
	suites     persistence.SuiteRepository
	dispatcher SuiteDispatcher
	publisher  eventbus.EventBus
	logger     *slog.Logger
}

// NewRunner creates a suite runner. publisher may be nil; events are then
// skipped.
func NewRunner(
	suites persistence.SuiteRepository,
	dispatcher SuiteDispatcher,
	publisher eventbus.EventBus,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		suites:     suites,
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger.With("module", "suite_runner"),
	}
}

// Run executes the suite identified by suiteID. A missing suite is a Go
// error: the caller asked for something that does not exist, which is an
// execution error rather than a suite outcome.
func (r *Runner) Run(ctx context.Context, suiteID string, silent bool, inputs map[string]any) (*protocol.SuiteRunResult, error) {
	suite, err := r.suites.SuiteByID(ctx, suiteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load suite %s: %w", suiteID, err)
	}

	logger := r.logger.With("suite_id", suiteID, "suite_name", suite.Name)
	startedAt := time.Now().UTC()

	result, err := r.dispatcher.RunSuite(ctx, suite, inputs)
	if err != nil {
		return nil, fmt.Errorf("suite %s execution failed: %w", suiteID, err)
	}

	duration := time.Since(startedAt)
	log := runLog(result)

	logger.InfoContext(ctx, "Suite executed",
		"status", result.Status,
		"duration", duration,
		"silent", silent)

	if !silent {
		if err := r.suites.UpdateSuiteRun(ctx, suiteID, result.Status, log); err != nil {
			logger.WarnContext(ctx, "Failed to record suite run", "error", err)
		}

		r.publishExecuted(ctx, suite, result.Status, duration)
	}

	return &protocol.SuiteRunResult{
		Status:    result.Status,
		Log:       log,
		Artifacts: result.Artifacts,
	}, nil
}

func (r *Runner) publishExecuted(ctx context.Context, suite *models.Suite, status models.JobStatus, duration time.Duration) {
	if r.publisher == nil {
		return
	}

	event := events.SuiteExecuted{
		BaseEvent: events.BaseEvent{
			ID:        r.publisher.GenerateID(),
			Type:      events.SuiteExecutedEvent,
			Timestamp: time.Now().UTC(),
		},
		SuiteID:  suite.ID,
		Status:   status,
		Duration: duration,
	}

	if err := r.publisher.Publish(ctx, suite.ID, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish suite executed event", "suite_id", suite.ID, "error", err)
	}
}

// runLog folds the result fields into the single log string persisted with
// the suite.
func runLog(result *models.JobResult) string {
	log := result.Output

	if result.Error != "" {
		if log != "" {
			log += "\n"
		}

		log += result.Error
	}

	if result.Message != "" {
		if log != "" {
			log += "\n"
		}

		log += result.Message
	}

	return log
}
