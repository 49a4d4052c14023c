// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/scriptflow/scriptflow/pkg/models"
)

// CreateTestSuite creates a suite with default values that can be overridden.
func CreateTestSuite(overrides ...func(*models.Suite)) *models.Suite {
	suite := &models.Suite{
		ID:       uuid.New().String(),
		Name:     "Test Suite",
		Language: models.LanguageJavaScript,
		Code:     "assert(true)",
	}

	for _, override := range overrides {
		override(suite)
	}

	return suite
}

// WithLanguage sets the suite language.
func WithLanguage(language models.SuiteLanguage) func(*models.Suite) {
	return func(s *models.Suite) {
		s.Language = language
	}
}

// CreateTestNode creates a graph node with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:   uuid.New().String(),
		Type: models.NodeTypeSuiteRun,
		Data: map[string]any{"suite_id": "test-suite"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// CreateTestStage creates a stage with one action, overridable.
func CreateTestStage(overrides ...func(*models.Stage)) *models.Stage {
	stage := &models.Stage{
		ID:   uuid.New().String(),
		Name: "Test Stage",
		Actions: []*models.Action{
			{ID: uuid.New().String(), SuiteID: "test-suite"},
		},
	}

	for _, override := range overrides {
		override(stage)
	}

	return stage
}

// CreateGraphPipeline builds a graph pipeline from the given nodes and edges.
func CreateGraphPipeline(nodes []*models.Node, edges []*models.Edge) *models.Pipeline {
	return &models.Pipeline{
		ID:    uuid.New().String(),
		Name:  "Test Graph Pipeline",
		Type:  models.PipelineTypeGraph,
		Nodes: nodes,
		Edges: edges,
	}
}

// CreateLinearPipeline builds a linear pipeline from the given stages.
func CreateLinearPipeline(stages []*models.Stage) *models.Pipeline {
	return &models.Pipeline{
		ID:     uuid.New().String(),
		Name:   "Test Linear Pipeline",
		Type:   models.PipelineTypeLinear,
		Stages: stages,
	}
}
