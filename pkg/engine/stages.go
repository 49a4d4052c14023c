package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// StagePipelineExecutor runs a linear pipeline: stages in array order,
// actions inside each stage strictly sequentially. A failing action does not
// short-circuit its stage. The remaining actions still run before the
// stage's branching policy is evaluated, because actions in one stage often
// form a dependent sequence whose tail results are still wanted.
type StagePipelineExecutor struct {
	logger *slog.Logger
}

// NewStagePipelineExecutor creates a stage pipeline executor.
func NewStagePipelineExecutor(logger *slog.Logger) *StagePipelineExecutor {
	return &StagePipelineExecutor{
		logger: logger.With("module", "stage_executor"),
	}
}

// Execute validates every stage up front, then drives them through the suite
// runner. A stage succeeds iff all of its actions returned success or
// pending. A failed stage with onFailure next marks the run warning and
// continues; with onFailure stop it marks the run failure and aborts. A
// suite runner error always aborts with run status error.
func (s *StagePipelineExecutor) Execute(ctx context.Context, stages []*models.Stage, runner protocol.SuiteRunner) (*models.RunResult, error) {
	if err := validateStages(stages); err != nil {
		return nil, err
	}

	logger := s.logger.With("stages", len(stages))
	logger.InfoContext(ctx, "Starting linear pipeline run")

	artifacts := models.NewArtifactContext()
	result := &models.RunResult{
		Status:    models.RunStatusSuccess,
		StageLogs: make([]*models.StageLog, 0, len(stages)),
		StartedAt: time.Now().UTC(),
	}

stageLoop:
	for _, stage := range stages {
		stageLogger := logger.With("stage_id", stage.ID, "stage_name", stage.Name)
		stageLogger.InfoContext(ctx, "Executing stage", "actions", len(stage.Actions))

		stageLog := &models.StageLog{
			StageID:   stage.ID,
			StageName: stage.Name,
			Passed:    true,
			Actions:   make(map[string]*models.JobResult, len(stage.Actions)),
		}
		result.StageLogs = append(result.StageLogs, stageLog)

		for _, action := range stage.Actions {
			actionLogger := stageLogger.With("action_id", action.ID, "suite_id", action.SuiteID)
			actionLogger.InfoContext(ctx, "Running suite action")

			runResult, err := runner.Run(ctx, action.SuiteID, false, artifacts.Snapshot())
			if err != nil {
				execFailure := &ExecutionError{NodeID: stage.ID + "/" + action.ID, Err: err}
				actionLogger.ErrorContext(ctx, "Suite runner failed, aborting run", "error", err)

				stageLog.Passed = false
				stageLog.Actions[action.ID] = &models.JobResult{
					Status: models.JobStatusError,
					Error:  execFailure.Error(),
				}
				result.Status = models.RunStatusError

				break stageLoop
			}

			jobResult := &models.JobResult{
				Status:    runResult.Status,
				Output:    runResult.Log,
				Artifacts: runResult.Artifacts,
			}
			stageLog.Actions[action.ID] = jobResult
			artifacts.Merge(runResult.Artifacts)

			// Pending is an external hand-off, not a failure. Everything
			// else short of success fails the stage, but the remaining
			// actions still run.
			if runResult.Status != models.JobStatusSuccess && runResult.Status != models.JobStatusPending {
				stageLog.Passed = false

				actionLogger.WarnContext(ctx, "Action failed, finishing remaining stage actions", "status", runResult.Status)
			}
		}

		if stageLog.Passed {
			if !stage.ContinueOnSuccess() {
				stageLogger.InfoContext(ctx, "Stage succeeded and policy is stop, ending run")

				break
			}

			continue
		}

		if stage.ContinueOnFailure() {
			stageLogger.WarnContext(ctx, "Stage failed, continuing per failure policy")

			result.Status = models.RunStatusWarning

			continue
		}

		stageLogger.WarnContext(ctx, "Stage failed and policy is stop, aborting run")

		result.Status = models.RunStatusFailure

		break
	}

	result.FinishedAt = time.Now().UTC()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Artifacts = artifacts.Snapshot()

	logger.InfoContext(ctx, "Linear pipeline run finished",
		"status", result.Status,
		"stages_executed", len(result.StageLogs),
		"duration", result.Duration)

	return result, nil
}

// validateStages rejects the whole definition before any stage runs. A stage
// with zero actions is a configuration error, never a lazily-discovered one.
func validateStages(stages []*models.Stage) error {
	if len(stages) == 0 {
		return NewConfigurationError(ErrEmptyPipeline, "")
	}

	for _, stage := range stages {
		if len(stage.Actions) == 0 {
			return NewConfigurationError(ErrEmptyStage, "stage "+stage.ID)
		}
	}

	return nil
}
