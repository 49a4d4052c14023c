package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/scriptflow/scriptflow/pkg/eventbus"
	"github.com/scriptflow/scriptflow/pkg/events"
	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/otelhelper"
	"github.com/scriptflow/scriptflow/pkg/persistence"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// ValidatePipeline runs the same pre-flight validation the executors apply,
// without executing anything. Callers use it to reject a bad definition
// before announcing a run.
func ValidatePipeline(pipeline *models.Pipeline) error {
	if pipeline.IsGraph() {
		_, err := sortTopologically(pipeline.Nodes, pipeline.Edges)

		return err
	}

	return validateStages(pipeline.Stages)
}

// PipelineRunner loads a pipeline, validates it, drives the matching
// executor and records the outcome. Event publishing, last-run persistence
// and notifications are side channels: their failures are logged and never
// change the returned result.
type PipelineRunner struct {
	graph        *GraphExecutor
	stages       *StagePipelineExecutor
	nodeExecutor protocol.NodeExecutor
	suiteRunner  protocol.SuiteRunner
	pipelines    persistence.PipelineRepository
	eventBus     eventbus.EventBus
	notifier     protocol.Notifier
	tracer       trace.Tracer
	logger       *slog.Logger
}

// NewPipelineRunner creates a pipeline runner. eventBus, notifier and tracer
// may be nil; the corresponding side channel is then skipped.
func NewPipelineRunner(
	nodeExecutor protocol.NodeExecutor,
	suiteRunner protocol.SuiteRunner,
	pipelines persistence.PipelineRepository,
	eventBus eventbus.EventBus,
	notifier protocol.Notifier,
	tracer trace.Tracer,
	logger *slog.Logger,
) *PipelineRunner {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("pipeline-runner")
	}

	return &PipelineRunner{
		graph:        NewGraphExecutor(logger),
		stages:       NewStagePipelineExecutor(logger),
		nodeExecutor: nodeExecutor,
		suiteRunner:  suiteRunner,
		pipelines:    pipelines,
		eventBus:     eventBus,
		notifier:     notifier,
		tracer:       tracer,
		logger:       logger.With("module", "pipeline_runner"),
	}
}

// RunByID loads the pipeline and runs it.
func (r *PipelineRunner) RunByID(ctx context.Context, pipelineID string) (*models.RunResult, error) {
	pipeline, err := r.pipelines.PipelineByID(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline %s: %w", pipelineID, err)
	}

	return r.Run(ctx, pipeline)
}

// Run validates the definition and executes it. Validation happens before
// the run-started event so a rejected definition produces no side effects.
func (r *PipelineRunner) Run(ctx context.Context, pipeline *models.Pipeline) (*models.RunResult, error) {
	if err := ValidatePipeline(pipeline); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := r.logger.With("pipeline_id", pipeline.ID, "run_id", runID)

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "pipeline.run",
		attribute.String(otelhelper.PipelineIDKey, pipeline.ID),
		attribute.String(otelhelper.PipelineNameKey, pipeline.Name),
		attribute.String(otelhelper.RunIDKey, runID),
	)
	defer span.End()

	r.publishStarted(ctx, pipeline, runID)

	var (
		result *models.RunResult
		err    error
	)

	if pipeline.IsGraph() {
		observer := func(ctx context.Context, node *models.Node, jobResult *models.JobResult, duration time.Duration) {
			r.publishNodeCompleted(ctx, pipeline, runID, node, jobResult, duration)
		}

		result, err = r.graph.Execute(ctx, pipeline, r.nodeExecutor, observer)
	} else {
		result, err = r.stages.Execute(ctx, pipeline.Stages, r.suiteRunner)
	}

	if err != nil {
		otelhelper.SetError(span, err)
		r.publishFinished(ctx, pipeline, runID, models.RunStatusError, 0, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.String("scriptflow.run.status", string(result.Status)))

	if persistErr := r.pipelines.UpdatePipelineRun(ctx, pipeline.ID, result.Status); persistErr != nil {
		logger.WarnContext(ctx, "Failed to record pipeline run", "error", persistErr)
	}

	r.publishFinished(ctx, pipeline, runID, result.Status, result.Duration, "")
	r.notify(ctx, pipeline, result)

	logger.InfoContext(ctx, "Pipeline run finished", "status", result.Status, "duration", result.Duration)

	return result, nil
}

func (r *PipelineRunner) publishStarted(ctx context.Context, pipeline *models.Pipeline, runID string) {
	if r.eventBus == nil {
		return
	}

	event := events.RunStarted{
		BaseEvent: events.BaseEvent{
			ID:         r.eventBus.GenerateID(),
			Type:       events.RunStartedEvent,
			Timestamp:  time.Now().UTC(),
			PipelineID: pipeline.ID,
			RunID:      runID,
		},
		PipelineName: pipeline.Name,
		PipelineType: pipeline.Type,
	}

	if err := r.eventBus.Publish(ctx, pipeline.ID, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish run started event", "pipeline_id", pipeline.ID, "error", err)
	}
}

func (r *PipelineRunner) publishNodeCompleted(
	ctx context.Context,
	pipeline *models.Pipeline,
	runID string,
	node *models.Node,
	result *models.JobResult,
	duration time.Duration,
) {
	if r.eventBus == nil || result == nil {
		return
	}

	event := events.NodeCompleted{
		BaseEvent: events.BaseEvent{
			ID:         r.eventBus.GenerateID(),
			Type:       events.NodeCompletedEvent,
			Timestamp:  time.Now().UTC(),
			PipelineID: pipeline.ID,
			RunID:      runID,
		},
		NodeID:     node.ID,
		NodeType:   node.Type,
		Status:     result.Status,
		DurationMs: duration.Milliseconds(),
	}

	if err := r.eventBus.Publish(ctx, pipeline.ID, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish node completed event", "node_id", node.ID, "error", err)
	}
}

func (r *PipelineRunner) publishFinished(
	ctx context.Context,
	pipeline *models.Pipeline,
	runID string,
	status models.RunStatus,
	duration time.Duration,
	errorMessage string,
) {
	if r.eventBus == nil {
		return
	}

	event := events.RunFinished{
		BaseEvent: events.BaseEvent{
			ID:         r.eventBus.GenerateID(),
			Type:       events.RunFinishedEvent,
			Timestamp:  time.Now().UTC(),
			PipelineID: pipeline.ID,
			RunID:      runID,
		},
		Status:   status,
		Duration: duration,
		Error:    errorMessage,
	}

	if err := r.eventBus.Publish(ctx, pipeline.ID, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish run finished event", "pipeline_id", pipeline.ID, "error", err)
	}
}

func (r *PipelineRunner) notify(ctx context.Context, pipeline *models.Pipeline, result *models.RunResult) {
	if r.notifier == nil {
		return
	}

	notification := protocol.Notification{
		PipelineID:    pipeline.ID,
		Status:        result.Status,
		ExecutionTime: result.Duration,
		ErrorMessage:  runErrorMessage(result),
	}

	if err := r.notifier.Notify(ctx, notification); err != nil {
		r.logger.WarnContext(ctx, "Failed to deliver run notification", "pipeline_id", pipeline.ID, "error", err)
	}
}

// runErrorMessage attributes a non-success run to the first failing node or
// action. Map keys are visited in sorted order so the attribution is stable
// across runs.
func runErrorMessage(result *models.RunResult) string {
	if result.Status == models.RunStatusSuccess {
		return ""
	}

	for _, stageLog := range result.StageLogs {
		if stageLog.Passed {
			continue
		}

		for _, actionID := range sortedKeys(stageLog.Actions) {
			if text := jobErrorText(stageLog.Actions[actionID]); text != "" {
				return fmt.Sprintf("stage %s action %s: %s", stageLog.StageID, actionID, text)
			}
		}
	}

	for _, nodeID := range sortedKeys(result.Results) {
		if text := jobErrorText(result.Results[nodeID]); text != "" {
			return fmt.Sprintf("node %s: %s", nodeID, text)
		}
	}

	return ""
}

func jobErrorText(result *models.JobResult) string {
	if result.Status != models.JobStatusFailure && result.Status != models.JobStatusError {
		return ""
	}

	if result.Error != "" {
		return result.Error
	}

	return result.Message
}

func sortedKeys(results map[string]*models.JobResult) []string {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
