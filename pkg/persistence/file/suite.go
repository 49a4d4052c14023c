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

// SuiteRepository handles suite-related file operations.
type SuiteRepository struct {
	root string // File system root for storing suites
}

// NewSuiteRepository creates a new suite repository.
func NewSuiteRepository(root string) *SuiteRepository {
	return &SuiteRepository{root: root}
}

// Suites returns all suites sorted by name.
func (sr *SuiteRepository) Suites(ctx context.Context) ([]*models.Suite, error) {
	dir := os.DirFS(path.Join(sr.root, "suites"))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list suite files: %w", err)
	}

	suites := make([]*models.Suite, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		suiteID := file[:len(file)-5] // Remove .json extension

		suite, err := sr.SuiteByID(ctx, suiteID)
		if err != nil {
			if persistence.IsSuiteNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to load suite %s: %w", suiteID, err)
		}

		suites = append(suites, suite)
	}

	sort.Slice(suites, func(i, j int) bool {
		return suites[i].Name < suites[j].Name
	})

	return suites, nil
}

// SuiteByID retrieves a suite by its ID from the file system.
func (sr *SuiteRepository) SuiteByID(_ context.Context, id string) (*models.Suite, error) {
	filePath := filepath.Clean(path.Join(sr.root, "suites", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("SuiteByID", id, persistence.ErrSuiteNotFound)
		}

		return nil, fmt.Errorf("failed to fetch suite %s: %w", id, err)
	}

	var suite models.Suite

	err = json.Unmarshal(body, &suite)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal suite %s: %w", id, err)
	}

	return &suite, nil
}

// SaveSuite saves a suite to the file system.
func (sr *SuiteRepository) SaveSuite(_ context.Context, suite *models.Suite) error {
	err := os.MkdirAll(path.Join(sr.root, "suites"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create suites directory: %w", err)
	}

	now := time.Now().UTC()
	if suite.CreatedAt.IsZero() {
		suite.CreatedAt = now
	}

	suite.UpdatedAt = now

	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal suite %s: %w", suite.ID, err)
	}

	filePath := path.Join(sr.root, "suites", suite.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// UpdateSuiteRun records the outcome of the latest suite execution.
func (sr *SuiteRepository) UpdateSuiteRun(ctx context.Context, id string, status models.JobStatus, log string) error {
	suite, err := sr.SuiteByID(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	suite.LastStatus = status
	suite.LastRunAt = &now
	suite.LastLog = log

	return sr.SaveSuite(ctx, suite)
}

// DeleteSuite removes a suite by its ID. Deleting a missing suite is not an error.
func (sr *SuiteRepository) DeleteSuite(_ context.Context, id string) error {
	filePath := path.Join(sr.root, "suites", id+".json")

	err := os.Remove(filePath)

	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete suite %s: %w", id, err)
	}

	return nil
}
