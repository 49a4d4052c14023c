package headless_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptflow/scriptflow/pkg/backends/headless"
	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/testutil"
)

func serveRuns(t *testing.T, response map[string]any) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/runs", r.URL.Path)
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestBackend_RunPassed(t *testing.T) {
	server := serveRuns(t, map[string]any{
		"status":    "passed",
		"logs":      []string{"navigated to /login", "clicked submit"},
		"artifacts": map[string]any{"trace": "trace-42"},
	})

	backend, err := headless.NewBackend(map[string]any{"endpoint": server.URL}, slog.Default())
	require.NoError(t, err)

	result, err := backend.Run(context.Background(), testutil.CreateTestSuite(testutil.WithLanguage(models.LanguageWeb)), nil)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusSuccess, result.Status)
	assert.Equal(t, "navigated to /login\nclicked submit", result.Output)
	assert.Equal(t, "trace-42", result.Artifacts["trace"])
}

func TestBackend_RunFailed(t *testing.T) {
	server := serveRuns(t, map[string]any{
		"status": "failed",
		"logs":   []string{"element #submit not found"},
		"error":  "timeout waiting for selector",
	})

	backend, err := headless.NewBackend(map[string]any{"endpoint": server.URL}, slog.Default())
	require.NoError(t, err)

	result, err := backend.Run(context.Background(), testutil.CreateTestSuite(testutil.WithLanguage(models.LanguageWeb)), nil)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusFailure, result.Status)
	assert.Equal(t, "timeout waiting for selector", result.Error)
}

func TestBackend_PendingCarriesSessionURL(t *testing.T) {
	server := serveRuns(t, map[string]any{
		"status":      "pending",
		"session_url": "https://sessions.example.com/run/42",
	})

	backend, err := headless.NewBackend(map[string]any{"endpoint": server.URL, "interactive": true}, slog.Default())
	require.NoError(t, err)

	result, err := backend.Run(context.Background(), testutil.CreateTestSuite(testutil.WithLanguage(models.LanguageWeb)), nil)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusPending, result.Status)
	assert.Contains(t, result.Message, "https://sessions.example.com/run/42")
}

func TestBackend_InteractiveFlagForwarded(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]any{"status": "passed"})
	}))
	defer server.Close()

	backend, err := headless.NewBackend(map[string]any{"endpoint": server.URL, "interactive": true}, slog.Default())
	require.NoError(t, err)

	_, err = backend.Run(context.Background(), testutil.CreateTestSuite(testutil.WithLanguage(models.LanguageWeb)), nil)
	require.NoError(t, err)

	assert.Equal(t, true, received["interactive"])
}

func TestBackend_ServerErrorIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "browser pool exhausted", http.StatusBadGateway)
	}))
	defer server.Close()

	backend, err := headless.NewBackend(map[string]any{"endpoint": server.URL}, slog.Default())
	require.NoError(t, err)

	_, err = backend.Run(context.Background(), testutil.CreateTestSuite(testutil.WithLanguage(models.LanguageWeb)), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestBackend_AvailableWithoutEndpoint(t *testing.T) {
	backend, err := headless.NewBackend(map[string]any{}, slog.Default())
	require.NoError(t, err)

	assert.ErrorContains(t, backend.Available(), "HEADLESS_ENDPOINT")
}

func TestFactory(t *testing.T) {
	factory := headless.NewFactory()

	assert.Equal(t, []models.SuiteLanguage{models.LanguageWeb}, factory.Languages())
	assert.Equal(t, "headless", factory.ID())
}
