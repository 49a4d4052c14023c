package models

import "time"

// JobStatus is the outcome of a single job (node or action) execution.
type JobStatus string

const (
	JobStatusSuccess JobStatus = "success"
	JobStatusFailure JobStatus = "failure"
	JobStatusError   JobStatus = "error"
	// JobStatusPending signals a hand-off to an external interactive runner.
	// It is never counted as a failure by either executor.
	JobStatusPending JobStatus = "pending"
)

// RunStatus is the aggregate outcome of one pipeline run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailure RunStatus = "failure"
	// RunStatusWarning marks a run that continued past a failed stage.
	RunStatusWarning RunStatus = "warning"
	// RunStatusError marks a run aborted by an execution error.
	RunStatusError RunStatus = "error"
)

// JobResult is the normalized outcome contract every backend and node
// executor returns. Artifacts are merged into the run's artifact context
// regardless of status so partial output from a failing job stays visible
// downstream.
type JobResult struct {
	Status          JobStatus         `json:"status"`
	Message         string            `json:"message,omitempty"`
	Output          string            `json:"output,omitempty"`
	Error           string            `json:"error,omitempty"`
	Artifacts       map[string]any    `json:"artifacts,omitempty"`
	SecurityResults []SecurityFinding `json:"security_results,omitempty"`
}

// SecurityFinding is one issue reported by a security-scan job.
type SecurityFinding struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
	SuiteID  string `json:"suite_id,omitempty"`
}

// StageLog records the outcome of one stage of a linear run.
type StageLog struct {
	StageID   string                `json:"stage_id"`
	StageName string                `json:"stage_name"`
	Passed    bool                  `json:"passed"`
	Actions   map[string]*JobResult `json:"actions"`
}

// RunResult aggregates one pipeline run. Results is keyed by node ID for
// graph runs; StageLogs holds the per-stage record for linear runs.
type RunResult struct {
	Status     RunStatus             `json:"status"`
	Duration   time.Duration         `json:"duration"`
	Results    map[string]*JobResult `json:"results,omitempty"`
	StageLogs  []*StageLog           `json:"stage_logs,omitempty"`
	Artifacts  map[string]any        `json:"artifacts,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}
