// Package registry maps suite languages to execution backend factories.
package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"strings"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// Registry holds one backend factory per suite language. Registration is
// done at startup; lookups during a run are read-only.
type Registry struct {
	logger           *slog.Logger
	backendFactories map[models.SuiteLanguage]protocol.BackendFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:           log,
		backendFactories: make(map[models.SuiteLanguage]protocol.BackendFactory),
	}
}

// RegisterBackend binds the factory to every language it declares. A later
// registration for the same language replaces the earlier one.
func (r *Registry) RegisterBackend(factory protocol.BackendFactory) {
	for _, language := range factory.Languages() {
		r.backendFactories[language] = factory
	}
}

// CreateBackend instantiates the backend serving language.
func (r *Registry) CreateBackend(language models.SuiteLanguage, config map[string]any) (protocol.Backend, error) {
	factory, ok := r.backendFactories[language]
	if !ok {
		return nil, fmt.Errorf("no backend registered for language '%s'", language)
	}

	return factory.Create(config, r.logger)
}

// BackendFactoryFor returns the factory serving language, if any.
func (r *Registry) BackendFactoryFor(language models.SuiteLanguage) (protocol.BackendFactory, bool) {
	factory, ok := r.backendFactories[language]

	return factory, ok
}

// Languages returns every language with a registered backend.
func (r *Registry) Languages() []models.SuiteLanguage {
	languages := make([]models.SuiteLanguage, 0, len(r.backendFactories))
	for language := range r.backendFactories {
		languages = append(languages, language)
	}

	return languages
}

// LoadBackendPlugins loads third-party backend factories from .so files
// under pluginsPath/backends.
func (r *Registry) LoadBackendPlugins(pluginsPath string) ([]protocol.BackendFactory, error) {
	return loadPlugin[protocol.BackendFactory](r.logger, pluginsPath, "Backend")
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"
	if _, err := os.Stat(rootPath); os.IsNotExist(err) {
		return nil, nil
	}

	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s has no %s symbol: %w", p, symbolName, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s %s symbol has the wrong type", p, symbolName)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded backend plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
