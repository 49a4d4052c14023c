// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/scriptflow/scriptflow/pkg/backends/headless"
	"github.com/scriptflow/scriptflow/pkg/backends/remotecompile"
	"github.com/scriptflow/scriptflow/pkg/backends/sandbox"
	"github.com/scriptflow/scriptflow/pkg/registry"
)

func registerBackendPlugins(reg *registry.Registry, pluginsPath string) {
	backendPlugins, err := reg.LoadBackendPlugins(pluginsPath)
	if err != nil {
		panic(err)
	}

	for _, plugin := range backendPlugins {
		reg.RegisterBackend(plugin)
	}
}

func registerNativeBackends(reg *registry.Registry) {
	reg.RegisterBackend(sandbox.NewFactory())
	reg.RegisterBackend(remotecompile.NewFactory())
	reg.RegisterBackend(headless.NewFactory())
}

// NewRegistry creates a backend registry with the native backends and any
// plugins found under pluginsPath.
func NewRegistry(log *slog.Logger, pluginsPath string) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativeBackends(reg)
	registerBackendPlugins(reg, pluginsPath)

	return reg
}
