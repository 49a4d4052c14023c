package headless

import (
	"log/slog"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// Factory creates headless backend instances.
type Factory struct{}

// Create creates a new headless backend.
func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Backend, error) {
	return NewBackend(config, logger)
}

// Languages returns the suite languages served by the browser runtime.
func (f *Factory) Languages() []models.SuiteLanguage {
	return []models.SuiteLanguage{models.LanguageWeb}
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "headless"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Headless browser-automation runtime for web suites"
}

// Schema returns the JSON schema for headless backend configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "Base URL of the browser runtime service",
			},
			"interactive": map[string]any{
				"type":        "boolean",
				"description": "Hand runs off to an interactive session instead of blocking",
				"default":     false,
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     120,
			},
		},
		"required": []string{"endpoint"},
	}
}

// NewFactory creates a new factory instance.
func NewFactory() protocol.BackendFactory {
	return &Factory{}
}
