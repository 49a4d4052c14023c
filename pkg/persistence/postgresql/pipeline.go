package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/persistence"
)

// PipelineRepository handles pipeline operations against PostgreSQL.
type PipelineRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPipelineRepository creates a new pipeline repository.
func NewPipelineRepository(db *sql.DB, logger *slog.Logger) *PipelineRepository {
	return &PipelineRepository{
		db:     db,
		logger: logger.With("module", "postgresql_pipeline_repository"),
	}
}

const pipelineColumns = `id, name, type, nodes, edges, stages, last_status, last_run_at, created_at, updated_at`

// Pipelines returns all pipelines ordered by name.
func (pr *PipelineRepository) Pipelines(ctx context.Context) ([]*models.Pipeline, error) {
	rows, err := pr.db.QueryContext(ctx, `SELECT `+pipelineColumns+` FROM pipelines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []*models.Pipeline

	for rows.Next() {
		pipeline, err := scanPipeline(rows)
		if err != nil {
			return nil, err
		}

		pipelines = append(pipelines, pipeline)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pipelines: %w", err)
	}

	return pipelines, nil
}

// PipelineByID returns a pipeline by its ID.
func (pr *PipelineRepository) PipelineByID(ctx context.Context, id string) (*models.Pipeline, error) {
	row := pr.db.QueryRowContext(ctx, `SELECT `+pipelineColumns+` FROM pipelines WHERE id = $1`, id)

	pipeline, err := scanPipeline(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("PipelineByID", id, persistence.ErrPipelineNotFound)
		}

		return nil, err
	}

	return pipeline, nil
}

// SavePipeline inserts or updates a pipeline definition.
func (pr *PipelineRepository) SavePipeline(ctx context.Context, pipeline *models.Pipeline) error {
	now := time.Now().UTC()
	if pipeline.CreatedAt.IsZero() {
		pipeline.CreatedAt = now
	}

	pipeline.UpdatedAt = now

	pipelineType := pipeline.Type
	if pipelineType == "" {
		pipelineType = models.PipelineTypeLinear
	}

	nodes, err := json.Marshal(pipeline.Nodes)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline nodes: %w", err)
	}

	edges, err := json.Marshal(pipeline.Edges)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline edges: %w", err)
	}

	stages, err := json.Marshal(pipeline.Stages)
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline stages: %w", err)
	}

	_, err = pr.db.ExecContext(ctx, `
		INSERT INTO pipelines (id, name, type, nodes, edges, stages, last_status, last_run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			stages = EXCLUDED.stages,
			updated_at = EXCLUDED.updated_at
	`, pipeline.ID, pipeline.Name, string(pipelineType), nodes, edges, stages,
		nullableString(string(pipeline.LastStatus)), pipeline.LastRunAt,
		pipeline.CreatedAt, pipeline.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pipeline %s: %w", pipeline.ID, err)
	}

	return nil
}

// UpdatePipelineRun records the outcome of the latest pipeline run.
func (pr *PipelineRepository) UpdatePipelineRun(ctx context.Context, id string, status models.RunStatus) error {
	result, err := pr.db.ExecContext(ctx, `
		UPDATE pipelines SET last_status = $2, last_run_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update pipeline run %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for pipeline %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("UpdatePipelineRun", id, persistence.ErrPipelineNotFound)
	}

	return nil
}

// DeletePipeline removes a pipeline by its ID. Deleting a missing pipeline is not an error.
func (pr *PipelineRepository) DeletePipeline(ctx context.Context, id string) error {
	_, err := pr.db.ExecContext(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pipeline %s: %w", id, err)
	}

	return nil
}

func scanPipeline(row rowScanner) (*models.Pipeline, error) {
	var (
		pipeline     models.Pipeline
		pipelineType string
		nodes        []byte
		edges        []byte
		stages       []byte
		lastStatus   sql.NullString
		lastRunAt    sql.NullTime
	)

	err := row.Scan(&pipeline.ID, &pipeline.Name, &pipelineType, &nodes, &edges, &stages,
		&lastStatus, &lastRunAt, &pipeline.CreatedAt, &pipeline.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan pipeline row: %w", err)
	}

	pipeline.Type = models.PipelineType(pipelineType)

	if err := json.Unmarshal(nodes, &pipeline.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline nodes: %w", err)
	}

	if err := json.Unmarshal(edges, &pipeline.Edges); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline edges: %w", err)
	}

	if err := json.Unmarshal(stages, &pipeline.Stages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline stages: %w", err)
	}

	if lastStatus.Valid {
		pipeline.LastStatus = models.RunStatus(lastStatus.String)
	}

	if lastRunAt.Valid {
		runAt := lastRunAt.Time
		pipeline.LastRunAt = &runAt
	}

	return &pipeline, nil
}
