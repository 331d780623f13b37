package driven

import (
	"context"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

// WorkflowRun is the subset of a GitHub Actions workflow run needed to match
// check runs to jobs.
type WorkflowRun struct {
	ID           int64
	Name         string
	CheckSuiteID int64
	HeadBranch   string
	HTMLURL      string
	LogsURL      string
}

// WorkflowJob is one job of a workflow run. Its ID equals the ID of the check
// run GitHub creates for it.
type WorkflowJob struct {
	ID      int64
	RunID   int64
	Name    string
	HTMLURL string
	Steps   []model.LogStep
}

// GitHubClient defines the driven port for reading check data from GitHub.
type GitHubClient interface {
	// FetchCheckRuns returns all check runs for the given ref.
	FetchCheckRuns(ctx context.Context, repoFullName, ref string) ([]model.CheckResult, error)
	// FetchCommitStatuses returns the legacy commit statuses for the given ref.
	FetchCommitStatuses(ctx context.Context, repoFullName, ref string) ([]model.CheckResult, error)
	// ListWorkflowRunsForBranch returns workflow runs triggered for the branch.
	ListWorkflowRunsForBranch(ctx context.Context, repoFullName, branch string) ([]WorkflowRun, error)
	// ListWorkflowJobs returns the jobs of a workflow run (latest attempt).
	ListWorkflowJobs(ctx context.Context, repoFullName string, runID int64) ([]WorkflowJob, error)
	// FetchJobLogs downloads the plain-text log of a workflow job.
	FetchJobLogs(ctx context.Context, repoFullName string, jobID int64) (string, error)
}
