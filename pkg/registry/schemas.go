package registry

import (
	"fmt"
	"strings"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// nodeSchemas holds the JSON schema for each built-in job kind's node data.
var nodeSchemas = map[string]map[string]any{
	models.NodeTypeSuiteRun: {
		"type": "object",
		"properties": map[string]any{
			"suite_id": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"suite_id"},
	},
	models.NodeTypeUnitTestRunner: {
		"type": "object",
		"properties": map[string]any{
			"suite_id": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"suite_id"},
	},
	models.NodeTypeRepoClone: {
		"type": "object",
		"properties": map[string]any{
			"repo_url": map[string]any{"type": "string", "minLength": 1},
			"branch":   map[string]any{"type": "string"},
		},
		"required": []any{"repo_url"},
	},
	models.NodeTypeSecurityScan: {
		"type": "object",
		"properties": map[string]any{
			"suite_id": map[string]any{"type": "string"},
			"suite_ids": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	},
	models.NodeTypeSecurityGate: {
		"type": "object",
		"properties": map[string]any{
			"fail_on": map[string]any{
				"type": "string",
				"enum": []any{"low", "medium", "high", "critical"},
			},
		},
	},
}

// ValidateNodeConfig checks a node's data against its job kind's schema.
func ValidateNodeConfig(node *models.Node) error {
	schema, ok := nodeSchemas[node.Type]
	if !ok {
		return fmt.Errorf("unknown job kind %q for node %s", node.Type, node.ID)
	}

	data := node.Data
	if data == nil {
		data = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate node %s config: %w", node.ID, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("node %s config is invalid: %s", node.ID, strings.Join(details, "; "))
	}

	return nil
}
