package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/persistence"
)

func TestNewPersistence_StripsFileScheme(t *testing.T) {
	root := t.TempDir()

	p := NewPersistence("file://" + root)

	require.NoError(t, p.HealthCheck(context.Background()))
	require.NoError(t, p.Close(context.Background()))
}

func TestSuiteRepository_SaveAndFetch(t *testing.T) {
	repo := NewSuiteRepository(t.TempDir())
	ctx := context.Background()

	suite := &models.Suite{
		ID:       "login-check",
		Name:     "Login Check",
		Language: models.LanguageJavaScript,
		Code:     "assert(login('admin'))",
		Tags:     []string{"auth", "smoke"},
	}

	require.NoError(t, repo.SaveSuite(ctx, suite))
	assert.False(t, suite.CreatedAt.IsZero())

	fetched, err := repo.SuiteByID(ctx, "login-check")
	require.NoError(t, err)
	assert.Equal(t, "Login Check", fetched.Name)
	assert.Equal(t, models.LanguageJavaScript, fetched.Language)
	assert.Equal(t, []string{"auth", "smoke"}, fetched.Tags)
}

func TestSuiteRepository_SuiteByID_NotFound(t *testing.T) {
	repo := NewSuiteRepository(t.TempDir())

	_, err := repo.SuiteByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsSuiteNotFound(err))
}

func TestSuiteRepository_UpdateSuiteRun(t *testing.T) {
	repo := NewSuiteRepository(t.TempDir())
	ctx := context.Background()

	suite := &models.Suite{ID: "s1", Name: "S1", Language: models.LanguagePython}
	require.NoError(t, repo.SaveSuite(ctx, suite))

	require.NoError(t, repo.UpdateSuiteRun(ctx, "s1", models.JobStatusFailure, "assertion mismatch"))

	fetched, err := repo.SuiteByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailure, fetched.LastStatus)
	assert.Equal(t, "assertion mismatch", fetched.LastLog)
	require.NotNil(t, fetched.LastRunAt)
}

func TestSuiteRepository_Suites_SortedByName(t *testing.T) {
	repo := NewSuiteRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.SaveSuite(ctx, &models.Suite{ID: "b", Name: "Zeta", Language: models.LanguageGo}))
	require.NoError(t, repo.SaveSuite(ctx, &models.Suite{ID: "a", Name: "Alpha", Language: models.LanguageGo}))

	suites, err := repo.Suites(ctx)
	require.NoError(t, err)
	require.Len(t, suites, 2)
	assert.Equal(t, "Alpha", suites[0].Name)
	assert.Equal(t, "Zeta", suites[1].Name)
}

func TestSuiteRepository_DeleteSuite_MissingIsNoError(t *testing.T) {
	repo := NewSuiteRepository(t.TempDir())

	assert.NoError(t, repo.DeleteSuite(context.Background(), "missing"))
}

func TestPipelineRepository_SaveAndFetch(t *testing.T) {
	repo := NewPipelineRepository(t.TempDir())
	ctx := context.Background()

	pipeline := &models.Pipeline{
		ID:   "release-gate",
		Name: "Release Gate",
		Type: models.PipelineTypeGraph,
		Nodes: []*models.Node{
			{ID: "n1", Type: models.NodeTypeSuiteRun, Data: map[string]any{"suite_id": "s1"}},
		},
		Edges: []*models.Edge{},
	}

	require.NoError(t, repo.SavePipeline(ctx, pipeline))

	fetched, err := repo.PipelineByID(ctx, "release-gate")
	require.NoError(t, err)
	assert.True(t, fetched.IsGraph())
	require.Len(t, fetched.Nodes, 1)
	assert.Equal(t, models.NodeTypeSuiteRun, fetched.Nodes[0].Type)
}

func TestPipelineRepository_UpdatePipelineRun(t *testing.T) {
	repo := NewPipelineRepository(t.TempDir())
	ctx := context.Background()

	require.NoError(t, repo.SavePipeline(ctx, &models.Pipeline{ID: "p1", Name: "P1"}))
	require.NoError(t, repo.UpdatePipelineRun(ctx, "p1", models.RunStatusWarning))

	fetched, err := repo.PipelineByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusWarning, fetched.LastStatus)
	require.NotNil(t, fetched.LastRunAt)
}

func TestPipelineRepository_PipelineByID_NotFound(t *testing.T) {
	repo := NewPipelineRepository(t.TempDir())

	_, err := repo.PipelineByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsPipelineNotFound(err))
}
