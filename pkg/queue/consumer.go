// Package queue consumes run requests from a Redis list and hands them to
// the runner service.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RunRequest is one queued ask for work. Exactly one of PipelineID or
// SuiteID is set.
type RunRequest struct {
	PipelineID string         `json:"pipeline_id,omitempty"`
	SuiteID    string         `json:"suite_id,omitempty"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	EnqueuedAt string         `json:"enqueued_at,omitempty"`
}

// RunCallback handles one dequeued run request.
type RunCallback func(ctx context.Context, request RunRequest) error

// Consumer pulls run requests off a Redis list with blocking pops. Requests
// are handled one at a time: pipeline runs are strictly sequential, so the
// consumer provides the serialization.
type Consumer struct {
	queue  string
	client redis.UniversalClient
	logger *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Config carries the Redis connection settings for the consumer.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// NewConsumer connects to Redis and validates the configuration.
func NewConsumer(ctx context.Context, config Config, logger *slog.Logger) (*Consumer, error) {
	if config.Queue == "" {
		return nil, errors.New("run queue name is required")
	}

	addr := config.Addr
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumer := &Consumer{
		queue:  config.Queue,
		client: client,
		stopCh: make(chan struct{}),
		logger: logger.With("module", "run_queue", "queue", config.Queue),
	}

	consumer.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", config.DB)

	return consumer, nil
}

// Start launches the consume loop.
func (c *Consumer) Start(ctx context.Context, callback RunCallback) {
	c.logger.InfoContext(ctx, "Starting run queue consumer")

	c.wg.Add(1)

	go c.consume(ctx, callback)
}

func (c *Consumer) consume(ctx context.Context, callback RunCallback) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Run queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping run queue consumer")

			return
		default:
			err := c.processMessage(ctx, callback)
			if err != nil {
				c.logger.ErrorContext(ctx, "Error processing run request", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, callback RunCallback) error {
	result, err := c.client.BLPop(ctx, 1*time.Second, c.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop run request from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message := result[1]

	var request RunRequest
	if err := json.Unmarshal([]byte(message), &request); err != nil {
		return fmt.Errorf("failed to decode run request: %w", err)
	}

	if request.PipelineID == "" && request.SuiteID == "" {
		return errors.New("run request names neither a pipeline nor a suite")
	}

	c.logger.InfoContext(ctx, "Dequeued run request",
		"pipeline_id", request.PipelineID,
		"suite_id", request.SuiteID)

	// Handled inline: the next request is not popped until this one finishes.
	if err := callback(ctx, request); err != nil {
		c.logger.ErrorContext(ctx, "Run request failed", "error", err)
	}

	return nil
}

// Enqueue pushes a run request onto the queue.
func (c *Consumer) Enqueue(ctx context.Context, request RunRequest) error {
	if request.EnqueuedAt == "" {
		request.EnqueuedAt = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to encode run request: %w", err)
	}

	if err := c.client.RPush(ctx, c.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue run request: %w", err)
	}

	return nil
}

// Stop shuts the consume loop down and closes the Redis client.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.InfoContext(ctx, "Stopping run queue consumer")

	close(c.stopCh)
	c.wg.Wait()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}
