package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/scriptflow/scriptflow/pkg/log"
	"github.com/scriptflow/scriptflow/pkg/queue"
	"github.com/scriptflow/scriptflow/pkg/schedule"
)

func main() {
	app := &cli.Command{
		Name:                  "scriptflow-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Enqueue pipeline runs on cron schedules",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "schedules-file",
				Usage:    "JSON file mapping pipeline IDs to cron expressions",
				Required: true,
				Sources:  cli.EnvVars("SCHEDULES_FILE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the run queue",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				Value:   "",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "run-queue",
				Usage:   "Redis list the runner consumes",
				Value:   "scriptflow:runs",
				Sources: cli.EnvVars("RUN_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("scriptflow-scheduler")

			logger.InfoContext(ctx, "Initializing ScriptFlow Scheduler")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			schedules, err := loadSchedules(command.String("schedules-file"))
			if err != nil {
				return err
			}

			runQueue, err := queue.NewConsumer(ctx, queue.Config{
				Addr:     command.String("redis-addr"),
				Password: command.String("redis-password"),
				Queue:    command.String("run-queue"),
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to the run queue: %w", err)
			}

			scheduler := schedule.NewScheduler(logger)

			for pipelineID, spec := range schedules {
				err := scheduler.Add(ctx, spec, pipelineID, func(ctx context.Context, pipelineID string) {
					err := runQueue.Enqueue(ctx, queue.RunRequest{PipelineID: pipelineID})
					if err != nil {
						logger.ErrorContext(ctx, "Failed to enqueue scheduled run",
							"pipeline_id", pipelineID, "error", err)
					}
				})
				if err != nil {
					return err
				}
			}

			scheduler.Start()

			<-ctx.Done()

			logger.Info("Shutting down scheduler")
			scheduler.Stop(context.Background())

			return runQueue.Stop(context.Background())
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

// loadSchedules reads the pipeline-to-cron map from disk.
func loadSchedules(path string) (map[string]string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules file: %w", err)
	}

	schedules := make(map[string]string)
	if err := json.Unmarshal(body, &schedules); err != nil {
		return nil, fmt.Errorf("failed to parse schedules file: %w", err)
	}

	if len(schedules) == 0 {
		return nil, fmt.Errorf("schedules file %s declares no schedules", path)
	}

	return schedules, nil
}
