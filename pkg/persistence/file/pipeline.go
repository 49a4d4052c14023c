package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/persistence"
)

// PipelineRepository handles pipeline-related file operations.
type PipelineRepository struct {
	root string // File system root for storing pipelines
}

// NewPipelineRepository creates a new pipeline repository.
func NewPipelineRepository(root string) *PipelineRepository {
	return &PipelineRepository{root: root}
}

// Pipelines returns all pipelines sorted by name.
func (pr *PipelineRepository) Pipelines(ctx context.Context) ([]*models.Pipeline, error) {
	dir := os.DirFS(path.Join(pr.root, "pipelines"))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline files: %w", err)
	}

	pipelines := make([]*models.Pipeline, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		pipelineID := file[:len(file)-5] // Remove .json extension

		pipeline, err := pr.PipelineByID(ctx, pipelineID)
		if err != nil {
			if persistence.IsPipelineNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to load pipeline %s: %w", pipelineID, err)
		}

		pipelines = append(pipelines, pipeline)
	}

	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].Name < pipelines[j].Name
	})

	return pipelines, nil
}

// PipelineByID retrieves a pipeline by its ID from the file system.
func (pr *PipelineRepository) PipelineByID(_ context.Context, id string) (*models.Pipeline, error) {
	filePath := filepath.Clean(path.Join(pr.root, "pipelines", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("PipelineByID", id, persistence.ErrPipelineNotFound)
		}

		return nil, fmt.Errorf("failed to fetch pipeline %s: %w", id, err)
	}

	var pipeline models.Pipeline

	err = json.Unmarshal(body, &pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal pipeline %s: %w", id, err)
	}

	return &pipeline, nil
}

// SavePipeline saves a pipeline to the file system.
func (pr *PipelineRepository) SavePipeline(_ context.Context, pipeline *models.Pipeline) error {
	err := os.MkdirAll(path.Join(pr.root, "pipelines"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create pipelines directory: %w", err)
	}

	now := time.Now().UTC()
	if pipeline.CreatedAt.IsZero() {
		pipeline.CreatedAt = now
	}

	pipeline.UpdatedAt = now

	data, err := json.MarshalIndent(pipeline, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline %s: %w", pipeline.ID, err)
	}

	filePath := path.Join(pr.root, "pipelines", pipeline.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// UpdatePipelineRun records the outcome of the latest pipeline run.
func (pr *PipelineRepository) UpdatePipelineRun(ctx context.Context, id string, status models.RunStatus) error {
	pipeline, err := pr.PipelineByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	pipeline.LastStatus = status
	pipeline.LastRunAt = &now

	return pr.SavePipeline(ctx, pipeline)
}

// DeletePipeline removes a pipeline by its ID. Deleting a missing pipeline is not an error.
func (pr *PipelineRepository) DeletePipeline(_ context.Context, id string) error {
	filePath := path.Join(pr.root, "pipelines", id+".json")

	err := os.Remove(filePath)

	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete pipeline %s: %w", id, err)
	}

	return nil
}
