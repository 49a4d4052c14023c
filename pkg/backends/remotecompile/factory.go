package remotecompile

import (
	"log/slog"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// Factory creates remote compile backend instances.
type Factory struct{}

// Create creates a new remote compile backend.
func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Backend, error) {
	return NewBackend(config, logger)
}

// Languages returns the suite languages served by the compile API.
func (f *Factory) Languages() []models.SuiteLanguage {
	return []models.SuiteLanguage{models.LanguagePython, models.LanguageGo}
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "remotecompile"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Remote compile-and-run API for python and go suites"
}

// Schema returns the JSON schema for remote compile backend configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"endpoint": map[string]any{
				"type":        "string",
				"description": "Base URL of the compile-and-run API",
			},
			"api_key": map[string]any{
				"type":        "string",
				"description": "API credential",
			},
			"timeout": map[string]any{
				"type":        "number",
				"description": "Request timeout in seconds",
				"default":     60,
			},
			"retries": map[string]any{
				"type":        "number",
				"description": "Attempts before giving up on server errors",
				"default":     3,
			},
			"retry_delay": map[string]any{
				"type":        "number",
				"description": "Delay between retries in seconds",
				"default":     2,
			},
		},
		"required": []string{"endpoint", "api_key"},
	}
}

// NewFactory creates a new factory instance.
func NewFactory() protocol.BackendFactory {
	return &Factory{}
}
