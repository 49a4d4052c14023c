package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/persistence/file"
	"github.com/scriptflow/scriptflow/pkg/queue"
	"github.com/scriptflow/scriptflow/pkg/web"
)

type recordingQueue struct {
	requests []queue.RunRequest
}

func (r *recordingQueue) Enqueue(_ context.Context, request queue.RunRequest) error {
	r.requests = append(r.requests, request)

	return nil
}

func setupTestApp(t *testing.T) (*fiber.App, *recordingQueue) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	runQueue := &recordingQueue{}
	handlers := web.NewAPIHandlers(store, validator.New(validator.WithRequiredStructEnabled()), runQueue)

	app := fiber.New()
	handlers.Register(app)

	return app, runQueue
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestAPIHandlers_CreateSuite(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/suites", web.CreateSuiteRequest{
		ID:       "login-check",
		Name:     "Login Check",
		Language: models.LanguageJavaScript,
		Code:     "assert(true)",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var suite models.Suite
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&suite))
	assert.Equal(t, "login-check", suite.ID)
	assert.False(t, suite.CreatedAt.IsZero())
}

func TestAPIHandlers_CreateSuite_MissingNameRejected(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/suites", web.CreateSuiteRequest{
		ID:       "s1",
		Language: models.LanguagePython,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_GetSuite_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/suites/ghost", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_RunSuite_Enqueues(t *testing.T) {
	app, runQueue := setupTestApp(t)

	resp := postJSON(t, app, "/suites", web.CreateSuiteRequest{
		ID:       "s1",
		Name:     "S1",
		Language: models.LanguageGo,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/suites/s1/run", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Len(t, runQueue.requests, 1)
	assert.Equal(t, "s1", runQueue.requests[0].SuiteID)
}

func TestAPIHandlers_RunSuite_MissingSuiteNotEnqueued(t *testing.T) {
	app, runQueue := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/suites/ghost/run", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, runQueue.requests)
}

func TestAPIHandlers_CreatePipeline_GraphValidated(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/pipelines", web.CreatePipelineRequest{
		ID:   "cyclic",
		Name: "Cyclic",
		Type: models.PipelineTypeGraph,
		Nodes: []*models.Node{
			{ID: "a", Type: models.NodeTypeSuiteRun, Data: map[string]any{"suite_id": "s1"}},
			{ID: "b", Type: models.NodeTypeSuiteRun, Data: map[string]any{"suite_id": "s2"}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_CreatePipeline_NodeConfigValidated(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/pipelines", web.CreatePipelineRequest{
		ID:   "bad-node",
		Name: "Bad Node",
		Type: models.PipelineTypeGraph,
		Nodes: []*models.Node{
			{ID: "a", Type: models.NodeTypeSuiteRun, Data: map[string]any{}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_RunPipeline_EmptyStageRejected(t *testing.T) {
	app, runQueue := setupTestApp(t)

	resp := postJSON(t, app, "/pipelines", web.CreatePipelineRequest{
		ID:   "draft",
		Name: "Draft",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/pipelines/draft/run", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, runQueue.requests)
}

func TestAPIHandlers_RunPipeline_Enqueues(t *testing.T) {
	app, runQueue := setupTestApp(t)

	resp := postJSON(t, app, "/pipelines", web.CreatePipelineRequest{
		ID:   "smoke",
		Name: "Smoke",
		Stages: []*models.Stage{
			{ID: "st1", Name: "Smoke Stage", Actions: []*models.Action{
				{ID: "a1", SuiteID: "s1"},
			}},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/pipelines/smoke/run", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Len(t, runQueue.requests, 1)
	assert.Equal(t, "smoke", runQueue.requests[0].PipelineID)
}

func TestAPIHandlers_UpdatePipeline_PartialPatch(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/pipelines", web.CreatePipelineRequest{ID: "p1", Name: "Old Name"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	newName := "New Name"
	payload, err := json.Marshal(web.UpdatePipelineRequest{Name: &newName})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/pipelines/p1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pipeline models.Pipeline
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pipeline))
	assert.Equal(t, "New Name", pipeline.Name)
}

func TestAPIHandlers_DeleteSuite(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := postJSON(t, app, "/suites", web.CreateSuiteRequest{
		ID:       "s1",
		Name:     "S1",
		Language: models.LanguageWeb,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodDelete, "/suites/s1", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/suites/s1", nil)

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
