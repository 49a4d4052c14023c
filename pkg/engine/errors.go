// Package engine implements the pipeline orchestration core: the graph
// executor, the stage pipeline executor and the pipeline runner that
// composes them.
package engine

import (
	"errors"
	"fmt"
)

// Standard configuration error causes detected before any job executes.
var (
	// ErrGraphCycle indicates the node and edge set does not form a DAG.
	ErrGraphCycle = errors.New("pipeline graph contains a cycle")

	// ErrDuplicateNodeID indicates two nodes share one identifier.
	ErrDuplicateNodeID = errors.New("duplicate node id")

	// ErrUnknownEdgeNode indicates an edge references a node that does not exist.
	ErrUnknownEdgeNode = errors.New("edge references unknown node")

	// ErrEmptyStage indicates a stage declares no actions.
	ErrEmptyStage = errors.New("stage has no actions")

	// ErrEmptyPipeline indicates a pipeline declares no work at all.
	ErrEmptyPipeline = errors.New("pipeline has no nodes or stages")
)

// ConfigurationError marks a definition problem detected up front. It always
// surfaces synchronously to the caller before any side effect; a run that
// fails configuration validation executes zero jobs.
type ConfigurationError struct {
	Detail string // Which node, edge or stage is at fault
	Err    error  // Underlying cause
}

func (e *ConfigurationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid pipeline definition: %v (%s)", e.Err, e.Detail)
	}

	return fmt.Sprintf("invalid pipeline definition: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewConfigurationError creates a configuration error with context.
func NewConfigurationError(err error, detail string) *ConfigurationError {
	return &ConfigurationError{Detail: detail, Err: err}
}

// IsConfigurationError checks whether err is a pre-flight definition error.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError

	return errors.As(err, &target)
}

// ExecutionError marks a job executor that threw rather than reporting a
// failed status. It is always fatal to the run regardless of the declared
// failure policy: the scheduler cannot trust subsequent state.
type ExecutionError struct {
	NodeID string // Node, or "stage/action" path for linear runs
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("job execution error at %s: %v", e.NodeID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
