package sandbox_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptflow/scriptflow/pkg/backends/sandbox"
	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/testutil"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

func TestBackend_RunSuccess(t *testing.T) {
	var received map[string]any

	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/execute", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"output":    "3 assertions passed",
			"artifacts": map[string]any{"screenshot": "s3://bucket/shot.png"},
		})
	})

	backend, err := sandbox.NewBackend(map[string]any{"endpoint": server.URL}, slog.Default())
	require.NoError(t, err)
	require.NoError(t, backend.Available())

	suite := testutil.CreateTestSuite()

	result, err := backend.Run(context.Background(), suite, map[string]any{"build_id": "b-17"})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusSuccess, result.Status)
	assert.Equal(t, "3 assertions passed", result.Output)
	assert.Equal(t, "s3://bucket/shot.png", result.Artifacts["screenshot"])

	assert.Equal(t, suite.Code, received["code"])
	assert.Equal(t, map[string]any{"build_id": "b-17"}, received["inputs"])
}

func TestBackend_RunScriptFailure(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"output":  "assertion 2 of 3 failed",
			"error":   "expected true, got false",
		})
	})

	backend, err := sandbox.NewBackend(map[string]any{"endpoint": server.URL}, slog.Default())
	require.NoError(t, err)

	result, err := backend.Run(context.Background(), testutil.CreateTestSuite(), nil)
	require.NoError(t, err, "a script failure is a result, not a backend error")

	assert.Equal(t, models.JobStatusFailure, result.Status)
	assert.Equal(t, "expected true, got false", result.Error)
}

func TestBackend_NonOKStatusIsError(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sandbox pool exhausted", http.StatusServiceUnavailable)
	})

	backend, err := sandbox.NewBackend(map[string]any{"endpoint": server.URL}, slog.Default())
	require.NoError(t, err)

	_, err = backend.Run(context.Background(), testutil.CreateTestSuite(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestBackend_AvailableWithoutEndpoint(t *testing.T) {
	backend, err := sandbox.NewBackend(map[string]any{}, slog.Default())
	require.NoError(t, err)

	err = backend.Available()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SANDBOX_ENDPOINT")
}

func TestFactory(t *testing.T) {
	factory := sandbox.NewFactory()

	assert.Equal(t, "sandbox", factory.ID())
	assert.Equal(t, []models.SuiteLanguage{models.LanguageJavaScript}, factory.Languages())

	backend, err := factory.Create(map[string]any{"endpoint": "http://sandbox:8080", "timeout": float64(5)}, slog.Default())
	require.NoError(t, err)
	assert.NoError(t, backend.Available())
}
