package engine_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptflow/scriptflow/pkg/engine"
	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
	"github.com/scriptflow/scriptflow/pkg/testutil"
)

type staticSuiteSource struct {
	suites map[string]*models.Suite
}

func (s *staticSuiteSource) SuiteByID(_ context.Context, id string) (*models.Suite, error) {
	suite, ok := s.suites[id]
	if !ok {
		return nil, assert.AnError
	}

	return suite, nil
}

func newJobExecutor(runner *scriptedRunner, suites map[string]*models.Suite) *engine.JobExecutor {
	return engine.NewJobExecutor(runner, &staticSuiteSource{suites: suites}, slog.Default())
}

func TestJobExecutor_UnknownJobKind(t *testing.T) {
	executor := newJobExecutor(newScriptedRunner(), nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) { n.Type = "make-coffee" })

	_, err := executor.ExecuteNode(context.Background(), nodeDef, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job kind")
}

func TestJobExecutor_SuiteRun(t *testing.T) {
	runner := newScriptedRunner()
	runner.results["s1"] = &protocol.SuiteRunResult{Status: models.JobStatusSuccess, Log: "ok"}

	executor := newJobExecutor(runner, nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Data = map[string]any{"suite_id": "s1"}
	})

	result, err := executor.ExecuteNode(context.Background(), nodeDef, nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, result.Status)
	assert.Equal(t, "ok", result.Output)
}

func TestJobExecutor_SuiteRun_MissingSuiteID(t *testing.T) {
	executor := newJobExecutor(newScriptedRunner(), nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Data = map[string]any{}
	})

	_, err := executor.ExecuteNode(context.Background(), nodeDef, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing suite_id")
}

func TestJobExecutor_UnitTestRunner_SetsPassArtifact(t *testing.T) {
	runner := newScriptedRunner()

	executor := newJobExecutor(runner, nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Type = models.NodeTypeUnitTestRunner
		n.Data = map[string]any{"suite_id": "unit-suite"}
	})

	result, err := executor.ExecuteNode(context.Background(), nodeDef, nil)
	require.NoError(t, err)
	assert.Equal(t, true, result.Artifacts["unit_tests_passed"])
}

func TestJobExecutor_RepoClone_Reachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "/info/refs")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	executor := newJobExecutor(newScriptedRunner(), nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Type = models.NodeTypeRepoClone
		n.Data = map[string]any{"repo_url": server.URL + "/app.git", "branch": "release"}
	})

	result, err := executor.ExecuteNode(context.Background(), nodeDef, nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, result.Status)
	assert.Equal(t, "release", result.Artifacts["repo_branch"])
	assert.Equal(t, "app-release", result.Artifacts["workspace"])
}

func TestJobExecutor_RepoClone_UnreachableIsFailure(t *testing.T) {
	executor := newJobExecutor(newScriptedRunner(), nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Type = models.NodeTypeRepoClone
		n.Data = map[string]any{"repo_url": "http://127.0.0.1:1/app.git"}
	})

	result, err := executor.ExecuteNode(context.Background(), nodeDef, nil)
	require.NoError(t, err, "unreachable repository is a job failure, not an executor error")
	assert.Equal(t, models.JobStatusFailure, result.Status)
}

func TestJobExecutor_SecurityScan_FindsPatterns(t *testing.T) {
	suites := map[string]*models.Suite{
		"risky": {
			ID:       "risky",
			Name:     "Risky",
			Language: models.LanguageJavaScript,
			Code:     `eval(userInput); fetch("http://insecure.example.com")`,
		},
	}

	executor := newJobExecutor(newScriptedRunner(), suites)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Type = models.NodeTypeSecurityScan
		n.Data = map[string]any{"suite_id": "risky"}
	})

	result, err := executor.ExecuteNode(context.Background(), nodeDef, nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, result.Status, "findings never fail the scan itself")
	require.NotEmpty(t, result.SecurityResults)

	ruleIDs := make([]string, 0, len(result.SecurityResults))
	for _, finding := range result.SecurityResults {
		ruleIDs = append(ruleIDs, finding.RuleID)
	}

	assert.Contains(t, ruleIDs, "dynamic-eval")
	assert.Contains(t, ruleIDs, "insecure-url")
}

func TestJobExecutor_SecurityGate_BlocksAtThreshold(t *testing.T) {
	executor := newJobExecutor(newScriptedRunner(), nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Type = models.NodeTypeSecurityGate
		n.Data = map[string]any{"fail_on": "high"}
	})

	inputs := map[string]any{
		"security_findings": []models.SecurityFinding{
			{RuleID: "dynamic-eval", Severity: "high"},
			{RuleID: "insecure-url", Severity: "low"},
		},
	}

	result, err := executor.ExecuteNode(context.Background(), nodeDef, inputs)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailure, result.Status)
	require.Len(t, result.SecurityResults, 1)
	assert.Equal(t, "dynamic-eval", result.SecurityResults[0].RuleID)
}

func TestJobExecutor_SecurityGate_PassesBelowThreshold(t *testing.T) {
	executor := newJobExecutor(newScriptedRunner(), nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Type = models.NodeTypeSecurityGate
		n.Data = map[string]any{"fail_on": "critical"}
	})

	inputs := map[string]any{
		"security_findings": []models.SecurityFinding{
			{RuleID: "dynamic-eval", Severity: "high"},
		},
	}

	result, err := executor.ExecuteNode(context.Background(), nodeDef, inputs)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, result.Status)
}

func TestJobExecutor_SecurityGate_ReadsJSONRoundTrippedFindings(t *testing.T) {
	executor := newJobExecutor(newScriptedRunner(), nil)

	nodeDef := testutil.CreateTestNode(func(n *models.Node) {
		n.Type = models.NodeTypeSecurityGate
		n.Data = map[string]any{"fail_on": "medium"}
	})

	// The shape findings take after persisting artifacts as JSON.
	inputs := map[string]any{
		"security_findings": []any{
			map[string]any{"rule_id": "cookie-access", "severity": "medium", "detail": "direct cookie access"},
		},
	}

	result, err := executor.ExecuteNode(context.Background(), nodeDef, inputs)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailure, result.Status)
}
