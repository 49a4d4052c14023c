package engine_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptflow/scriptflow/pkg/engine"
	"github.com/scriptflow/scriptflow/pkg/eventbus"
	"github.com/scriptflow/scriptflow/pkg/events"
	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/persistence"
	"github.com/scriptflow/scriptflow/pkg/protocol"
	"github.com/scriptflow/scriptflow/pkg/testutil"
)

type fakePipelineRepo struct {
	pipelines  map[string]*models.Pipeline
	lastRunID  string
	lastStatus models.RunStatus
}

func (f *fakePipelineRepo) Pipelines(_ context.Context) ([]*models.Pipeline, error) {
	out := make([]*models.Pipeline, 0, len(f.pipelines))
	for _, p := range f.pipelines {
		out = append(out, p)
	}

	return out, nil
}

func (f *fakePipelineRepo) PipelineByID(_ context.Context, id string) (*models.Pipeline, error) {
	pipeline, ok := f.pipelines[id]
	if !ok {
		return nil, persistence.NewStoreError("PipelineByID", id, persistence.ErrPipelineNotFound)
	}

	return pipeline, nil
}

func (f *fakePipelineRepo) SavePipeline(_ context.Context, pipeline *models.Pipeline) error {
	f.pipelines[pipeline.ID] = pipeline

	return nil
}

func (f *fakePipelineRepo) UpdatePipelineRun(_ context.Context, id string, status models.RunStatus) error {
	f.lastRunID = id
	f.lastStatus = status

	return nil
}

func (f *fakePipelineRepo) DeletePipeline(_ context.Context, id string) error {
	delete(f.pipelines, id)

	return nil
}

type recordingBus struct {
	published []eventbus.Event
	nextID    int
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.published = append(b.published, event)

	return nil
}

func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }
func (b *recordingBus) Subscribe(context.Context) error                      { return nil }
func (b *recordingBus) Close() error                                         { return nil }

func (b *recordingBus) GenerateID() string {
	b.nextID++

	return fmt.Sprintf("event-%d", b.nextID)
}

func (b *recordingBus) types() []events.EventType {
	out := make([]events.EventType, 0, len(b.published))
	for _, event := range b.published {
		out = append(out, event.GetType())
	}

	return out
}

type recordingNotifier struct {
	notifications []protocol.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n protocol.Notification) error {
	r.notifications = append(r.notifications, n)

	return nil
}

func TestPipelineRunner_GraphRunRecordsOutcome(t *testing.T) {
	pipeline := testutil.CreateGraphPipeline([]*models.Node{node("a")}, nil)
	repo := &fakePipelineRepo{pipelines: map[string]*models.Pipeline{pipeline.ID: pipeline}}
	notif := &recordingNotifier{}

	runner := engine.NewPipelineRunner(newScriptedExecutor(), nil, repo, nil, notif, nil, slog.Default())

	result, err := runner.RunByID(context.Background(), pipeline.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, result.Status)
	assert.Equal(t, pipeline.ID, repo.lastRunID)
	assert.Equal(t, models.RunStatusSuccess, repo.lastStatus)

	require.Len(t, notif.notifications, 1)
	assert.Equal(t, pipeline.ID, notif.notifications[0].PipelineID)
	assert.Equal(t, models.RunStatusSuccess, notif.notifications[0].Status)
}

func TestPipelineRunner_FailedRunNotificationCarriesError(t *testing.T) {
	pipeline := testutil.CreateGraphPipeline([]*models.Node{node("deploy")}, nil)
	repo := &fakePipelineRepo{pipelines: map[string]*models.Pipeline{pipeline.ID: pipeline}}
	notif := &recordingNotifier{}

	executor := newScriptedExecutor()
	executor.results["deploy"] = &models.JobResult{
		Status: models.JobStatusFailure,
		Error:  "rollout rejected by target",
	}

	runner := engine.NewPipelineRunner(executor, nil, repo, nil, notif, nil, slog.Default())

	result, err := runner.RunByID(context.Background(), pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailure, result.Status)

	require.Len(t, notif.notifications, 1)
	assert.Equal(t, models.RunStatusFailure, notif.notifications[0].Status)
	assert.Equal(t, "node deploy: rollout rejected by target", notif.notifications[0].ErrorMessage)
}

func TestPipelineRunner_SuccessNotificationHasNoError(t *testing.T) {
	pipeline := testutil.CreateGraphPipeline([]*models.Node{node("a")}, nil)
	repo := &fakePipelineRepo{pipelines: map[string]*models.Pipeline{pipeline.ID: pipeline}}
	notif := &recordingNotifier{}

	runner := engine.NewPipelineRunner(newScriptedExecutor(), nil, repo, nil, notif, nil, slog.Default())

	_, err := runner.RunByID(context.Background(), pipeline.ID)
	require.NoError(t, err)

	require.Len(t, notif.notifications, 1)
	assert.Empty(t, notif.notifications[0].ErrorMessage)
}

func TestPipelineRunner_LinearRun(t *testing.T) {
	pipeline := testutil.CreateLinearPipeline([]*models.Stage{
		stage("smoke", "", "", "s1"),
	})
	repo := &fakePipelineRepo{pipelines: map[string]*models.Pipeline{pipeline.ID: pipeline}}

	runner := engine.NewPipelineRunner(nil, newScriptedRunner(), repo, nil, nil, nil, slog.Default())

	result, err := runner.RunByID(context.Background(), pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, result.Status)
}

func TestPipelineRunner_InvalidDefinitionHasNoSideEffects(t *testing.T) {
	pipeline := testutil.CreateGraphPipeline(
		[]*models.Node{node("a"), node("b")},
		[]*models.Edge{edge("e1", "a", "b"), edge("e2", "b", "a")},
	)
	repo := &fakePipelineRepo{pipelines: map[string]*models.Pipeline{pipeline.ID: pipeline}}
	notif := &recordingNotifier{}
	executor := newScriptedExecutor()

	runner := engine.NewPipelineRunner(executor, nil, repo, nil, notif, nil, slog.Default())

	_, err := runner.RunByID(context.Background(), pipeline.ID)
	require.Error(t, err)
	assert.True(t, engine.IsConfigurationError(err))
	assert.Empty(t, executor.order)
	assert.Empty(t, notif.notifications)
	assert.Empty(t, repo.lastRunID)
}

func TestPipelineRunner_PublishesLifecycleEvents(t *testing.T) {
	pipeline := testutil.CreateGraphPipeline(
		[]*models.Node{node("a"), node("b")},
		[]*models.Edge{edge("e1", "a", "b")},
	)
	repo := &fakePipelineRepo{pipelines: map[string]*models.Pipeline{pipeline.ID: pipeline}}
	bus := &recordingBus{}

	runner := engine.NewPipelineRunner(newScriptedExecutor(), nil, repo, bus, nil, nil, slog.Default())

	_, err := runner.RunByID(context.Background(), pipeline.ID)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{
		events.RunStartedEvent,
		events.NodeCompletedEvent,
		events.NodeCompletedEvent,
		events.RunFinishedEvent,
	}, bus.types())

	finished, ok := bus.published[len(bus.published)-1].(events.RunFinished)
	require.True(t, ok)
	assert.Equal(t, models.RunStatusSuccess, finished.Status)
}

func TestPipelineRunner_MissingPipeline(t *testing.T) {
	repo := &fakePipelineRepo{pipelines: map[string]*models.Pipeline{}}

	runner := engine.NewPipelineRunner(newScriptedExecutor(), nil, repo, nil, nil, nil, slog.Default())

	_, err := runner.RunByID(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, persistence.IsPipelineNotFound(err))
}

func TestPipelineRunner_MissingTypeRunsLinear(t *testing.T) {
	pipeline := testutil.CreateLinearPipeline([]*models.Stage{
		stage("only", "", "", "s1"),
	})
	pipeline.Type = ""

	repo := &fakePipelineRepo{pipelines: map[string]*models.Pipeline{pipeline.ID: pipeline}}
	runner := engine.NewPipelineRunner(nil, newScriptedRunner(), repo, nil, nil, nil, slog.Default())

	result, err := runner.RunByID(context.Background(), pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, result.Status)
}

func TestValidatePipeline(t *testing.T) {
	valid := testutil.CreateGraphPipeline([]*models.Node{node("a")}, nil)
	assert.NoError(t, engine.ValidatePipeline(valid))

	cyclic := testutil.CreateGraphPipeline(
		[]*models.Node{node("a"), node("b")},
		[]*models.Edge{edge("e1", "a", "b"), edge("e2", "b", "a")},
	)
	assert.ErrorIs(t, engine.ValidatePipeline(cyclic), engine.ErrGraphCycle)

	emptyLinear := testutil.CreateLinearPipeline(nil)
	assert.ErrorIs(t, engine.ValidatePipeline(emptyLinear), engine.ErrEmptyPipeline)
}
