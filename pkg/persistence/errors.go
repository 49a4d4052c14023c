// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSuiteNotFound indicates a suite was not found by the given identifier.
	ErrSuiteNotFound = errors.New("suite not found")

	// ErrPipelineNotFound indicates a pipeline was not found by the given identifier.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrSuiteAlreadyExists indicates a suite with the same identifier already exists.
	ErrSuiteAlreadyExists = errors.New("suite already exists")

	// ErrPipelineAlreadyExists indicates a pipeline with the same identifier already exists.
	ErrPipelineAlreadyExists = errors.New("pipeline already exists")
)

// StoreError wraps persistence errors with operation context.
type StoreError struct {
	Op       string // Operation being performed (e.g. "SuiteByID", "SavePipeline")
	EntityID string // Suite or pipeline ID if applicable
	Err      error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s operation failed for %s: %v", e.Op, e.EntityID, e.Err)
	}

	return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a store error with context.
func NewStoreError(op, entityID string, err error) *StoreError {
	return &StoreError{Op: op, EntityID: entityID, Err: err}
}

// IsSuiteNotFound checks if an error indicates a suite was not found.
func IsSuiteNotFound(err error) bool {
	return errors.Is(err, ErrSuiteNotFound)
}

// IsPipelineNotFound checks if an error indicates a pipeline was not found.
func IsPipelineNotFound(err error) bool {
	return errors.Is(err, ErrPipelineNotFound)
}
