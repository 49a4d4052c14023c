package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/protocol"
)

// SuiteSource resolves suites for jobs that need to inspect suite code.
type SuiteSource interface {
	SuiteByID(ctx context.Context, id string) (*models.Suite, error)
}

// JobExecutor is the default NodeExecutor: it routes a node's job kind to
// the matching built-in handler. Suite execution goes through the suite
// runner; the scan and gate jobs run in-process.
type JobExecutor struct {
	suiteRunner protocol.SuiteRunner
	suites      SuiteSource
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewJobExecutor creates a job executor.
func NewJobExecutor(suiteRunner protocol.SuiteRunner, suites SuiteSource, logger *slog.Logger) *JobExecutor {
	return &JobExecutor{
		suiteRunner: suiteRunner,
		suites:      suites,
		httpClient:  &http.Client{},
		logger:      logger.With("module", "job_executor"),
	}
}

// ExecuteNode dispatches the node to its job-kind handler. An unknown job
// kind is an executor error: the definition said something this engine
// cannot schedule, so the run cannot continue safely.
func (j *JobExecutor) ExecuteNode(ctx context.Context, node *models.Node, inputs map[string]any) (*models.JobResult, error) {
	switch node.Type {
	case models.NodeTypeSuiteRun:
		return j.runSuite(ctx, node, inputs, false)
	case models.NodeTypeUnitTestRunner:
		return j.runUnitTests(ctx, node, inputs)
	case models.NodeTypeRepoClone:
		return j.cloneRepo(ctx, node)
	case models.NodeTypeSecurityScan:
		return j.scanSuites(ctx, node)
	case models.NodeTypeSecurityGate:
		return j.evaluateGate(node, inputs)
	default:
		return nil, fmt.Errorf("unknown job kind %q for node %s", node.Type, node.ID)
	}
}

func (j *JobExecutor) runSuite(ctx context.Context, node *models.Node, inputs map[string]any, silent bool) (*models.JobResult, error) {
	suiteID, ok := node.Data["suite_id"].(string)
	if !ok || suiteID == "" {
		return nil, fmt.Errorf("node %s is missing suite_id", node.ID)
	}

	runResult, err := j.suiteRunner.Run(ctx, suiteID, silent, inputs)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", suiteID, err)
	}

	return &models.JobResult{
		Status:    runResult.Status,
		Output:    runResult.Log,
		Artifacts: runResult.Artifacts,
	}, nil
}

func (j *JobExecutor) runUnitTests(ctx context.Context, node *models.Node, inputs map[string]any) (*models.JobResult, error) {
	result, err := j.runSuite(ctx, node, inputs, true)
	if err != nil {
		return nil, err
	}

	if result.Artifacts == nil {
		result.Artifacts = make(map[string]any)
	}

	result.Artifacts["unit_tests_passed"] = result.Status == models.JobStatusSuccess

	return result, nil
}

// cloneRepo checks the repository is reachable over the git smart HTTP
// protocol and records the checkout coordinates as artifacts for later jobs.
// The actual working copy is materialized by the backend that consumes it.
func (j *JobExecutor) cloneRepo(ctx context.Context, node *models.Node) (*models.JobResult, error) {
	repoURL, ok := node.Data["repo_url"].(string)
	if !ok || repoURL == "" {
		return nil, fmt.Errorf("node %s is missing repo_url", node.ID)
	}

	branch, _ := node.Data["branch"].(string)
	if branch == "" {
		branch = "main"
	}

	refsURL := strings.TrimSuffix(repoURL, "/") + "/info/refs?service=git-upload-pack"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, refsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build repo probe request: %w", err)
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return &models.JobResult{
			Status:  models.JobStatusFailure,
			Message: "repository unreachable",
			Error:   err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &models.JobResult{
			Status:  models.JobStatusFailure,
			Message: fmt.Sprintf("repository probe returned status %d", resp.StatusCode),
		}, nil
	}

	return &models.JobResult{
		Status:  models.JobStatusSuccess,
		Message: "repository reachable",
		Artifacts: map[string]any{
			"repo_url":    repoURL,
			"repo_branch": branch,
			"workspace":   workspaceName(repoURL, branch),
		},
	}, nil
}

// scanSuites applies the static pattern rules to each referenced suite's
// code. Findings never fail the scan itself; blocking on them is the
// security gate's decision.
func (j *JobExecutor) scanSuites(ctx context.Context, node *models.Node) (*models.JobResult, error) {
	suiteIDs := suiteIDsFromData(node.Data)
	if len(suiteIDs) == 0 {
		return nil, fmt.Errorf("node %s references no suites to scan", node.ID)
	}

	findings := make([]models.SecurityFinding, 0)

	for _, suiteID := range suiteIDs {
		suite, err := j.suites.SuiteByID(ctx, suiteID)
		if err != nil {
			return &models.JobResult{
				Status:  models.JobStatusFailure,
				Message: fmt.Sprintf("failed to load suite %s for scanning", suiteID),
				Error:   err.Error(),
			}, nil
		}

		findings = append(findings, scanCode(suite)...)
	}

	j.logger.InfoContext(ctx, "Security scan completed", "node_id", node.ID, "findings", len(findings))

	return &models.JobResult{
		Status:          models.JobStatusSuccess,
		Message:         fmt.Sprintf("scanned %d suites, %d findings", len(suiteIDs), len(findings)),
		SecurityResults: findings,
		Artifacts: map[string]any{
			"security_findings": findings,
		},
	}, nil
}

// evaluateGate blocks the pipeline when upstream scan findings reach the
// configured severity. The findings arrive through the artifact context, so
// the gate works with or without a direct edge from the scan node.
func (j *JobExecutor) evaluateGate(node *models.Node, inputs map[string]any) (*models.JobResult, error) {
	failOn, _ := node.Data["fail_on"].(string)
	if failOn == "" {
		failOn = "high"
	}

	threshold, ok := severityRank[failOn]
	if !ok {
		return nil, fmt.Errorf("node %s has unknown fail_on severity %q", node.ID, failOn)
	}

	findings := findingsFromArtifacts(inputs["security_findings"])

	blocked := make([]models.SecurityFinding, 0)

	for _, finding := range findings {
		if severityRank[finding.Severity] >= threshold {
			blocked = append(blocked, finding)
		}
	}

	if len(blocked) > 0 {
		return &models.JobResult{
			Status:          models.JobStatusFailure,
			Message:         fmt.Sprintf("security gate blocked: %d findings at or above %s", len(blocked), failOn),
			SecurityResults: blocked,
		}, nil
	}

	return &models.JobResult{
		Status:  models.JobStatusSuccess,
		Message: fmt.Sprintf("security gate passed (%d findings below %s)", len(findings), failOn),
	}, nil
}

var severityRank = map[string]int{
	"low":      1,
	"medium":   2,
	"high":     3,
	"critical": 4,
}

// scanRules are the static patterns the security-scan job applies to suite
// code. Severity names must exist in severityRank.
var scanRules = []struct {
	id       string
	severity string
	pattern  *regexp.Regexp
	detail   string
}{
	{"dynamic-eval", "high", regexp.MustCompile(`\beval\s*\(`), "dynamic code evaluation"},
	{"shell-exec", "high", regexp.MustCompile(`child_process|os\.system|subprocess\.|exec\.Command`), "shell command execution"},
	{"hardcoded-secret", "high", regexp.MustCompile(`(?i)(password|api_key|secret|token)\s*[:=]\s*["'][^"']{4,}["']`), "hardcoded credential"},
	{"cookie-access", "medium", regexp.MustCompile(`document\.cookie`), "direct cookie access"},
	{"insecure-url", "low", regexp.MustCompile(`http://[^\s"']+`), "insecure http url"},
}

func scanCode(suite *models.Suite) []models.SecurityFinding {
	findings := make([]models.SecurityFinding, 0)

	for _, rule := range scanRules {
		if rule.pattern.MatchString(suite.Code) {
			findings = append(findings, models.SecurityFinding{
				RuleID:   rule.id,
				Severity: rule.severity,
				Detail:   rule.detail,
				SuiteID:  suite.ID,
			})
		}
	}

	return findings
}

func suiteIDsFromData(data map[string]any) []string {
	if id, ok := data["suite_id"].(string); ok && id != "" {
		return []string{id}
	}

	raw, ok := data["suite_ids"].([]any)
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(raw))

	for _, v := range raw {
		if id, ok := v.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

// findingsFromArtifacts accepts both the in-process finding slice and the
// generic shape it takes after a JSON round trip.
func findingsFromArtifacts(value any) []models.SecurityFinding {
	switch v := value.(type) {
	case []models.SecurityFinding:
		return v
	case []any:
		findings := make([]models.SecurityFinding, 0, len(v))

		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}

			finding := models.SecurityFinding{}
			finding.RuleID, _ = entry["rule_id"].(string)
			finding.Severity, _ = entry["severity"].(string)
			finding.Detail, _ = entry["detail"].(string)
			finding.SuiteID, _ = entry["suite_id"].(string)
			findings = append(findings, finding)
		}

		return findings
	default:
		return nil
	}
}

var workspaceSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func workspaceName(repoURL, branch string) string {
	base := repoURL
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}

	base = strings.TrimSuffix(base, ".git")

	return workspaceSanitizer.ReplaceAllString(base+"-"+branch, "-")
}
