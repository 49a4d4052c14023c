package sandbox

import (
	"log/slog"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// Factory creates sandbox backend instances.
type Factory struct{}

// Create creates a new sandbox backend.
func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Backend, error) {
	return NewBackend(config, logger)
}

// Languages returns the suite languages served by the sandbox.
func (f *Factory) Languages() []models.SuiteLanguage {
	return []models.SuiteLanguage{models.LanguageJavaScript}
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "sandbox"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Sandboxed JavaScript interpreter service"
}

// Schema returns the JSON schema for sandbox backend configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "Base URL of the sandbox service",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     30,
			},
		},
		"required": []string{"endpoint"},
	}
}

// NewFactory creates a new factory instance.
func NewFactory() protocol.BackendFactory {
	return &Factory{}
}
