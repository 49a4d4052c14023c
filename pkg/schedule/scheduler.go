// Package schedule triggers pipeline runs on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is the work a schedule entry triggers.
type Job func(ctx context.Context, pipelineID string)

// Scheduler wraps a cron runner. Entries skip when the previous run of the
// same pipeline is still in flight, so scheduled runs never overlap.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler creates a scheduler with overlap protection and panic recovery.
func NewScheduler(logger *slog.Logger) *Scheduler {
	schedLogger := logger.With("module", "scheduler")

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		logger: schedLogger,
	}
}

// Add registers a pipeline to run on the given cron expression.
func (s *Scheduler) Add(ctx context.Context, spec string, pipelineID string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.InfoContext(ctx, "Schedule fired", "pipeline_id", pipelineID, "spec", spec)
		job(ctx, pipelineID)
	})
	if err != nil {
		return fmt.Errorf("failed to register schedule %q for pipeline %s: %w", spec, pipelineID, err)
	}

	s.logger.InfoContext(ctx, "Schedule registered", "pipeline_id", pipelineID, "spec", spec)

	return nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running entries to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler shutdown interrupted before entries finished")
	}
}
