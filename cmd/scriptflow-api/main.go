package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/scriptflow/scriptflow/pkg/cmd"
	"github.com/scriptflow/scriptflow/pkg/log"
	"github.com/scriptflow/scriptflow/pkg/queue"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	app := &cli.Command{
		Name:                  "scriptflow-api",
		Usage:                 "Create and manage suites and pipelines",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
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

			logger.InfoContext(ctx, "Initializing ScriptFlow API")

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			runQueue, err := queue.NewConsumer(ctx, queue.Config{
				Addr:     command.String("redis-addr"),
				Password: command.String("redis-password"),
				Queue:    command.String("run-queue"),
			}, logger)
			if err != nil {
				logger.WarnContext(ctx, "Run queue unavailable, run endpoints disabled", "error", err)
			}

			api := NewAPI(logger, store, runQueue)

			return api.Start(int(command.Int("port")))
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
