// Package web provides HTTP request and response types for the orchestration API.
package web

import "github.com/scriptflow/scriptflow/pkg/models"

// CreateSuiteRequest represents the request body for creating a new suite.
type CreateSuiteRequest struct {
	ID       string               `json:"id"       validate:"required,min=1"`
	Name     string               `json:"name"     validate:"required,min=1"`
	Language models.SuiteLanguage `json:"language" validate:"required"`
	Code     string               `json:"code"`
	Tags     []string             `json:"tags,omitempty"`
}

// UpdateSuiteRequest represents the request body for updating an existing suite.
// All fields are optional to support partial updates.
type UpdateSuiteRequest struct {
	Name     *string               `json:"name,omitempty"     validate:"omitempty,min=1"`
	Language *models.SuiteLanguage `json:"language,omitempty"`
	Code     *string               `json:"code,omitempty"`
	Tags     []string              `json:"tags,omitempty"`
}

// CreatePipelineRequest represents the request body for creating a new pipeline.
type CreatePipelineRequest struct {
	ID     string              `json:"id"   validate:"required,min=1"`
	Name   string              `json:"name" validate:"required,min=1"`
	Type   models.PipelineType `json:"type,omitempty"`
	Nodes  []*models.Node      `json:"nodes,omitempty"`
	Edges  []*models.Edge      `json:"edges,omitempty"`
	Stages []*models.Stage     `json:"stages,omitempty"`
}

// UpdatePipelineRequest represents the request body for updating a pipeline.
type UpdatePipelineRequest struct {
	Name   *string              `json:"name,omitempty" validate:"omitempty,min=1"`
	Type   *models.PipelineType `json:"type,omitempty"`
	Nodes  []*models.Node       `json:"nodes,omitempty"`
	Edges  []*models.Edge       `json:"edges,omitempty"`
	Stages []*models.Stage      `json:"stages,omitempty"`
}

// RunRequestBody carries optional inputs for an enqueued run.
type RunRequestBody struct {
	Inputs map[string]any `json:"inputs,omitempty"`
}
