package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// GraphExecutor runs a DAG pipeline: nodes are ordered topologically and
// executed strictly one at a time. Edges determine ordering only: every
// artifact produced so far in the run is visible to every later node,
// whether or not an edge connects them. Downstream consumers depend on that
// global visibility, so it must not be narrowed to edge scope.
type GraphExecutor struct {
	logger *slog.Logger
}

// NodeObserver is called after each node finishes with the recorded result.
// It runs synchronously between nodes, so it must not block on the run
// itself. Passing it per Execute call keeps the executor free of per-run
// state.
type NodeObserver func(ctx context.Context, node *models.Node, result *models.JobResult, duration time.Duration)

// NewGraphExecutor creates a graph executor.
func NewGraphExecutor(logger *slog.Logger) *GraphExecutor {
	return &GraphExecutor{
		logger: logger.With("module", "graph_executor"),
	}
}

// Execute validates the definition, orders the nodes and drives them through
// the node executor. A configuration error (cycle, duplicate ID, dangling
// edge) is returned before any node executes. Job failures are recorded into
// the result and stop the run only when the failing node's policy says stop;
// an executor error always aborts. observer may be nil.
func (g *GraphExecutor) Execute(ctx context.Context, pipeline *models.Pipeline, executor protocol.NodeExecutor, observer NodeObserver) (*models.RunResult, error) {
	order, err := sortTopologically(pipeline.Nodes, pipeline.Edges)
	if err != nil {
		return nil, err
	}

	logger := g.logger.With("pipeline_id", pipeline.ID, "nodes", len(order))
	logger.InfoContext(ctx, "Starting graph pipeline run")

	artifacts := models.NewArtifactContext()
	result := &models.RunResult{
		Status:    models.RunStatusSuccess,
		Results:   make(map[string]*models.JobResult, len(order)),
		StartedAt: time.Now().UTC(),
	}

	for _, node := range order {
		nodeLogger := logger.With("node_id", node.ID, "node_type", node.Type)
		nodeLogger.InfoContext(ctx, "Executing node")

		inputs := artifacts.Snapshot()
		nodeStarted := time.Now()

		jobResult, execErr := executor.ExecuteNode(ctx, node, inputs)
		if jobResult != nil {
			result.Results[node.ID] = jobResult
			// Partial artifacts from a failing job stay visible downstream
			// for diagnostics; the merge is unconditional.
			artifacts.Merge(jobResult.Artifacts)
		}

		if execErr != nil {
			execFailure := &ExecutionError{NodeID: node.ID, Err: execErr}
			nodeLogger.ErrorContext(ctx, "Node executor failed, aborting run", "error", execErr)

			if jobResult == nil {
				result.Results[node.ID] = &models.JobResult{
					Status: models.JobStatusError,
					Error:  execFailure.Error(),
				}
			}

			result.Status = models.RunStatusError

			if observer != nil {
				observer(ctx, node, result.Results[node.ID], time.Since(nodeStarted))
			}

			break
		}

		if observer != nil {
			observer(ctx, node, jobResult, time.Since(nodeStarted))
		}

		if jobResult.Status == models.JobStatusFailure || jobResult.Status == models.JobStatusError {
			result.Status = models.RunStatusFailure

			if node.StopOnFailure() {
				nodeLogger.WarnContext(ctx, "Node failed and policy is stop, aborting run", "message", jobResult.Message)

				break
			}

			nodeLogger.WarnContext(ctx, "Node failed, continuing per failure policy", "message", jobResult.Message)
		}
	}

	result.FinishedAt = time.Now().UTC()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.Artifacts = artifacts.Snapshot()

	logger.InfoContext(ctx, "Graph pipeline run finished",
		"status", result.Status,
		"executed", len(result.Results),
		"duration", result.Duration)

	return result, nil
}

// sortTopologically orders nodes with Kahn's algorithm. It validates node ID
// uniqueness and edge endpoints first, and reports a cycle whenever the
// produced order is shorter than the node count.
func sortTopologically(nodes []*models.Node, edges []*models.Edge) ([]*models.Node, error) {
	if len(nodes) == 0 {
		return nil, NewConfigurationError(ErrEmptyPipeline, "")
	}

	byID := make(map[string]*models.Node, len(nodes))
	for _, node := range nodes {
		if _, exists := byID[node.ID]; exists {
			return nil, NewConfigurationError(ErrDuplicateNodeID, "node "+node.ID)
		}

		byID[node.ID] = node
	}

	inDegree := make(map[string]int, len(nodes))
	adjacent := make(map[string][]string, len(nodes))

	for _, edge := range edges {
		if _, ok := byID[edge.Source]; !ok {
			return nil, NewConfigurationError(ErrUnknownEdgeNode, "edge "+edge.ID+" source "+edge.Source)
		}

		if _, ok := byID[edge.Target]; !ok {
			return nil, NewConfigurationError(ErrUnknownEdgeNode, "edge "+edge.ID+" target "+edge.Target)
		}

		adjacent[edge.Source] = append(adjacent[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	// Seed the ready queue in declaration order so runs are deterministic.
	queue := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	order := make([]*models.Node, 0, len(nodes))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, byID[id])

		for _, next := range adjacent[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, NewConfigurationError(ErrGraphCycle, "")
	}

	return order, nil
}
