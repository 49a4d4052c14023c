package protocol

import (
	"context"

	"github.com/scriptflow/scriptflow/pkg/models"
)

// SuiteRunResult is the outcome contract of one suite run as seen by the
// executors. A pending status signals a hand-off to an external interactive
// runner and must not be counted as failure.
type SuiteRunResult struct {
	Status    models.JobStatus `json:"status"`
	Log       string           `json:"log"`
	Artifacts map[string]any   `json:"artifacts,omitempty"`
}

// SuiteRunner resolves a suite by ID and executes it. silent suppresses the
// last-run persistence writes (used when a suite runs as part of a pipeline
// probe rather than a user-visible run).
type SuiteRunner interface {
	Run(ctx context.Context, suiteID string, silent bool, inputs map[string]any) (*SuiteRunResult, error)
}

// NodeExecutor executes one graph node. The orchestration core never runs
// job logic itself; it only schedules calls to this contract. inputs is the
// artifact snapshot taken immediately before the node runs.
type NodeExecutor interface {
	ExecuteNode(ctx context.Context, node *models.Node, inputs map[string]any) (*models.JobResult, error)
}
