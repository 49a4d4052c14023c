// Package file provides file-based persistence for suites and pipelines.
// Each record is stored as a single JSON document under the root directory.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/scriptflow/scriptflow/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	suiteRepo    *SuiteRepository
	pipelineRepo *PipelineRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		suiteRepo:    NewSuiteRepository(cleanRoot),
		pipelineRepo: NewPipelineRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// SuiteRepository returns the suite repository implementation for file persistence.
func (fp *Persistence) SuiteRepository() persistence.SuiteRepository {
	return fp.suiteRepo
}

// PipelineRepository returns the pipeline repository implementation for file persistence.
func (fp *Persistence) PipelineRepository() persistence.PipelineRepository {
	return fp.pipelineRepo
}
