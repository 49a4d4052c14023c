package models

import "time"

// PipelineType selects which executor drives a run.
type PipelineType string

const (
	PipelineTypeGraph  PipelineType = "graph"
	PipelineTypeLinear PipelineType = "linear"
)

// Built-in node job kinds for graph pipelines.
const (
	NodeTypeSuiteRun       = "suite-run"
	NodeTypeRepoClone      = "repo-clone"
	NodeTypeUnitTestRunner = "unit-test-runner"
	NodeTypeSecurityScan   = "security-scan"
	NodeTypeSecurityGate   = "security-gate"
)

// Failure and success branching policies. An unset failure policy means stop.
const (
	PolicyStop = "stop"
	PolicyNext = "next"
)

// Pipeline groups suites into an orchestrated run: either a DAG of nodes and
// edges, or an ordered list of stages. The definition is immutable for the
// duration of one run.
type Pipeline struct {
	ID         string       `json:"id"`
	Name       string       `json:"name" validate:"required,min=1"`
	Type       PipelineType `json:"type"`
	Nodes      []*Node      `json:"nodes,omitempty"`
	Edges      []*Edge      `json:"edges,omitempty"`
	Stages     []*Stage     `json:"stages,omitempty"`
	LastRunAt  *time.Time   `json:"last_run_at,omitempty"`
	LastStatus RunStatus    `json:"last_status,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// IsGraph reports whether the pipeline runs through the graph executor.
// A missing type means linear, matching older persisted definitions.
func (p *Pipeline) IsGraph() bool {
	return p.Type == PipelineTypeGraph
}

// Node is a unit of work in a graph pipeline. Data carries the job-kind
// specific configuration (e.g. suite_id for suite-run nodes).
type Node struct {
	ID        string         `json:"id"   validate:"required"`
	Type      string         `json:"type" validate:"required"`
	Data      map[string]any `json:"data"`
	OnSuccess string         `json:"on_success,omitempty"`
	OnFailure string         `json:"on_failure,omitempty"`
}

// StopOnFailure reports whether a failed result for this node aborts the
// run. Stop is the default when no policy is declared.
func (n *Node) StopOnFailure() bool {
	return n.OnFailure != PolicyNext
}

// Edge declares a runs-after relationship between two nodes. Edges determine
// ordering only; artifact visibility is global within a run.
type Edge struct {
	ID     string `json:"id"     validate:"required"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// Stage groups actions in a linear pipeline under one branching policy.
// Every action in a stage runs to completion before the policy is evaluated.
type Stage struct {
	ID        string    `json:"id"   validate:"required"`
	Name      string    `json:"name" validate:"required"`
	OnSuccess string    `json:"on_success,omitempty"`
	OnFailure string    `json:"on_failure,omitempty"`
	Actions   []*Action `json:"actions"`
}

// ContinueOnSuccess reports whether the run proceeds past this stage when it
// succeeds. Next is the default.
func (s *Stage) ContinueOnSuccess() bool {
	return s.OnSuccess != PolicyStop
}

// ContinueOnFailure reports whether the run proceeds past this stage when it
// fails. Stop is the default.
func (s *Stage) ContinueOnFailure() bool {
	return s.OnFailure == PolicyNext
}

// Action references a suite to run inside a stage.
type Action struct {
	ID        string `json:"id"       validate:"required"`
	SuiteID   string `json:"suite_id" validate:"required"`
	SuiteName string `json:"suite_name,omitempty"`
}
