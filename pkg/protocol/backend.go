// Package protocol defines the interfaces and contracts between the
// orchestration core and its pluggable collaborators.
package protocol

import (
	"context"
	"log/slog"

	"github.com/scriptflow/scriptflow/pkg/models"
)

// Backend executes one suite's code in its sandbox or remote service and
// reports a normalized result. A backend returns an error only when it could
// not run at all; a script that ran and failed is a JobResult with status
// failure, not an error.
type Backend interface {
	// Run executes the already-substituted suite source. inputs is the
	// artifact snapshot visible to the job.
	Run(ctx context.Context, suite *models.Suite, inputs map[string]any) (*models.JobResult, error)

	// Available reports whether the backend has the connectivity and
	// credentials it needs. An unavailable backend is surfaced as a job
	// failure with a descriptive message, never a silent no-op.
	Available() error
}

// BackendFactory creates backend instances and provides metadata about the
// backend family.
type BackendFactory interface {
	// Create creates a backend from configuration.
	Create(config map[string]any, logger *slog.Logger) (Backend, error)

	// Languages returns the suite languages this backend family serves.
	// Each language maps to exactly one family.
	Languages() []models.SuiteLanguage

	// ID returns the unique identifier for this backend family.
	ID() string

	// Description returns a description of the execution environment.
	Description() string

	// Schema returns the JSON schema for the factory configuration.
	Schema() map[string]any
}
