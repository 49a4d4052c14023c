// Package events defines event types and structures for run lifecycle
// notifications.
package events

import (
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "scriptflow.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent    EventType = "run.started"
	RunFinishedEvent   EventType = "run.finished"
	NodeCompletedEvent EventType = "run.node.completed"
	SuiteExecutedEvent EventType = "suite.executed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	PipelineID string         `json:"pipeline_id,omitempty"`
	RunID      string         `json:"run_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RunStarted is published once the definition has validated and before the
// first job executes.
type RunStarted struct {
	BaseEvent

	PipelineName string              `json:"pipeline_name"`
	PipelineType models.PipelineType `json:"pipeline_type"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunFinished is published after the run terminates, whatever the outcome.
type RunFinished struct {
	BaseEvent

	Status   models.RunStatus `json:"status"`
	Duration time.Duration    `json:"duration"`
	Error    string           `json:"error,omitempty"`
}

func (r RunFinished) GetType() EventType {
	return RunFinishedEvent
}

// NodeCompleted is published after each graph node finishes.
type NodeCompleted struct {
	BaseEvent

	NodeID     string           `json:"node_id"`
	NodeType   string           `json:"node_type"`
	Status     models.JobStatus `json:"status"`
	DurationMs int64            `json:"duration_ms"`
}

func (n NodeCompleted) GetType() EventType {
	return NodeCompletedEvent
}

// SuiteExecuted is published by the suite runner after a standalone suite
// run completes.
type SuiteExecuted struct {
	BaseEvent

	SuiteID  string           `json:"suite_id"`
	Status   models.JobStatus `json:"status"`
	Duration time.Duration    `json:"duration"`
}

func (s SuiteExecuted) GetType() EventType {
	return SuiteExecutedEvent
}
