// Package persistence provides the data storage abstraction for suites and
// pipelines.
package persistence

import (
	"context"

	"github.com/scriptflow/scriptflow/pkg/models"
)

// SuiteRepository stores suites and their last-run metadata.
type SuiteRepository interface {
	Suites(ctx context.Context) ([]*models.Suite, error)
	SuiteByID(ctx context.Context, id string) (*models.Suite, error)
	SaveSuite(ctx context.Context, suite *models.Suite) error
	UpdateSuiteRun(ctx context.Context, id string, status models.JobStatus, log string) error
	DeleteSuite(ctx context.Context, id string) error
}

// PipelineRepository stores pipeline definitions and their last-run record.
type PipelineRepository interface {
	Pipelines(ctx context.Context) ([]*models.Pipeline, error)
	PipelineByID(ctx context.Context, id string) (*models.Pipeline, error)
	SavePipeline(ctx context.Context, pipeline *models.Pipeline) error
	UpdatePipelineRun(ctx context.Context, id string, status models.RunStatus) error
	DeletePipeline(ctx context.Context, id string) error
}

// Persistence is the storage entry point the binaries wire up once at
// startup.
type Persistence interface {
	SuiteRepository() SuiteRepository
	PipelineRepository() PipelineRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
