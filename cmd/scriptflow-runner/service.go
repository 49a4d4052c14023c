package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scriptflow/scriptflow/pkg/cmd"
	"github.com/scriptflow/scriptflow/pkg/dispatcher"
	"github.com/scriptflow/scriptflow/pkg/engine"
	"github.com/scriptflow/scriptflow/pkg/envsubst"
	"github.com/scriptflow/scriptflow/pkg/eventbus"
	"github.com/scriptflow/scriptflow/pkg/notifier"
	"github.com/scriptflow/scriptflow/pkg/otelhelper"
	"github.com/scriptflow/scriptflow/pkg/persistence"
	"github.com/scriptflow/scriptflow/pkg/queue"
	"github.com/scriptflow/scriptflow/pkg/registry"
	"github.com/scriptflow/scriptflow/pkg/suiterunner"
)

// RunnerConfig carries the runner service settings.
type RunnerConfig struct {
	RedisAddr     string
	RedisPassword string
	Queue         string
	NotifyURL     string
}

// RunnerService wires the queue consumer to the pipeline runner and the
// standalone suite runner.
type RunnerService struct {
	consumer    *queue.Consumer
	runner      *engine.PipelineRunner
	suiteRunner *suiterunner.Runner
	logger      *slog.Logger
}

// NewRunnerService builds the full execution stack.
func NewRunnerService(
	ctx context.Context,
	config RunnerConfig,
	store persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) (*RunnerService, error) {
	consumer, err := queue.NewConsumer(ctx, queue.Config{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		Queue:    config.Queue,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create run queue consumer: %w", err)
	}

	disp := dispatcher.NewDispatcher(reg, cmd.BackendConfigsFromEnv(), envsubst.New(), logger)
	suiteRunner := suiterunner.NewRunner(store.SuiteRepository(), disp, eventBus, logger)
	jobExecutor := engine.NewJobExecutor(suiteRunner, store.SuiteRepository(), logger)

	tracer, err := otelhelper.NewTracer(ctx, "scriptflow-runner")
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled, exporter unavailable", "error", err)

		tracer = nil
	}

	runner := engine.NewPipelineRunner(
		jobExecutor,
		suiteRunner,
		store.PipelineRepository(),
		eventBus,
		notifier.NewWebhookNotifier(config.NotifyURL, 10*time.Second, logger),
		tracer,
		logger,
	)

	return &RunnerService{
		consumer:    consumer,
		runner:      runner,
		suiteRunner: suiteRunner,
		logger:      logger,
	}, nil
}

// Run consumes the queue until the context is cancelled.
func (s *RunnerService) Run(ctx context.Context) error {
	s.consumer.Start(ctx, s.handle)

	<-ctx.Done()

	s.logger.Info("Shutting down runner")

	return s.consumer.Stop(context.Background())
}

func (s *RunnerService) handle(ctx context.Context, request queue.RunRequest) error {
	if request.PipelineID != "" {
		_, err := s.runner.RunByID(ctx, request.PipelineID)

		return err
	}

	_, err := s.suiteRunner.Run(ctx, request.SuiteID, false, request.Inputs)

	return err
}
