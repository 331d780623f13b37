// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
	"github.com/ericfisherdev/checkpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// maxJobLogBytes caps a downloaded job log.
const maxJobLogBytes = 16 << 20

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh *gh.Client
	// logs downloads job logs from the pre-signed URLs GitHub redirects to.
	// It carries no credentials.
	logs *http.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client, authenticated when token is set)
//
// apiURL selects a GitHub Enterprise Server API endpoint; empty means github.com.
func NewClient(token, apiURL string) (*Client, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if apiURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("configuring enterprise URL %q: %w", apiURL, err)
		}
	}

	return &Client{
		gh:   client,
		logs: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	return &Client{gh: client, logs: httpClient}, nil
}

// FetchCheckRuns retrieves the latest check runs for the given ref.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchCheckRuns(ctx context.Context, repoFullName, ref string) ([]model.CheckResult, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListCheckRunsOptions{
		Filter:      gh.Ptr("latest"),
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allRuns []model.CheckResult

	for {
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, opts)
		if err != nil {
			return nil, fmt.Errorf("listing check runs for %s@%s (page %d): %w", repoFullName, ref, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/check-runs", opts.Page, len(result.CheckRuns))

		for _, cr := range result.CheckRuns {
			allRuns = append(allRuns, mapCheckRun(cr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allRuns, nil
}

// FetchCommitStatuses returns the latest commit status per context for the
// given ref.
func (c *Client) FetchCommitStatuses(ctx context.Context, repoFullName, ref string) ([]model.CheckResult, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var allStatuses []model.CheckResult

	for {
		cs, resp, err := c.gh.Repositories.GetCombinedStatus(ctx, owner, repo, ref, opts)
		if err != nil {
			return nil, fmt.Errorf("fetching combined status for %s@%s (page %d): %w", repoFullName, ref, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/status", opts.Page, len(cs.Statuses))

		for _, s := range cs.Statuses {
			allStatuses = append(allStatuses, mapRepoStatus(s))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allStatuses, nil
}

// ListWorkflowRunsForBranch returns the most recent workflow runs for the
// branch, newest first. Only the first page is read.
func (c *Client) ListWorkflowRunsForBranch(ctx context.Context, repoFullName, branch string) ([]driven.WorkflowRun, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListWorkflowRunsOptions{
		Branch:      branch,
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	result, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing workflow runs for %s@%s: %w", repoFullName, branch, err)
	}

	logRateLimit(resp, repoFullName+"/workflow-runs", 0, len(result.WorkflowRuns))

	runs := make([]driven.WorkflowRun, 0, len(result.WorkflowRuns))
	for _, r := range result.WorkflowRuns {
		runs = append(runs, driven.WorkflowRun{
			ID:           r.GetID(),
			Name:         r.GetName(),
			CheckSuiteID: r.GetCheckSuiteID(),
			HeadBranch:   r.GetHeadBranch(),
			HTMLURL:      r.GetHTMLURL(),
			LogsURL:      r.GetLogsURL(),
		})
	}

	return runs, nil
}

// ListWorkflowJobs returns the jobs of the latest attempt of a workflow run.
func (c *Client) ListWorkflowJobs(ctx context.Context, repoFullName string, runID int64) ([]driven.WorkflowJob, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListWorkflowJobsOptions{
		Filter:      "latest",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allJobs []driven.WorkflowJob

	for {
		result, resp, err := c.gh.Actions.ListWorkflowJobs(ctx, owner, repo, runID, opts)
		if err != nil {
			return nil, fmt.Errorf("listing jobs for %s run %d (page %d): %w", repoFullName, runID, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/jobs", opts.Page, len(result.Jobs))

		for _, j := range result.Jobs {
			allJobs = append(allJobs, mapWorkflowJob(j))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allJobs, nil
}

// FetchJobLogs resolves the job's log download URL and returns the plain-text
// log, truncated to maxJobLogBytes.
func (c *Client) FetchJobLogs(ctx context.Context, repoFullName string, jobID int64) (string, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return "", err
	}

	logURL, resp, err := c.gh.Actions.GetWorkflowJobLogs(ctx, owner, repo, jobID, 1)
	if err != nil {
		return "", fmt.Errorf("resolving log URL for %s job %d: %w", repoFullName, jobID, err)
	}

	logRateLimit(resp, repoFullName+"/job-logs", 0, 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("building log request for job %d: %w", jobID, err)
	}

	res, err := c.logs.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading log for %s job %d: %w", repoFullName, jobID, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading log for %s job %d: unexpected status %d", repoFullName, jobID, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxJobLogBytes))
	if err != nil {
		return "", fmt.Errorf("reading log for %s job %d: %w", repoFullName, jobID, err)
	}

	return string(body), nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapCheckRun converts a go-github CheckRun to a domain model CheckResult.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapCheckRun(cr *gh.CheckRun) model.CheckResult {
	var suiteID *int64
	if cr.CheckSuite != nil && cr.GetCheckSuite().ID != nil {
		id := cr.GetCheckSuite().GetID()
		suiteID = &id
	}

	htmlURL := cr.GetHTMLURL()
	if htmlURL == "" {
		htmlURL = cr.GetDetailsURL()
	}

	return model.CheckResult{
		ID:            cr.GetID(),
		Name:          cr.GetName(),
		Description:   cr.GetOutput().GetTitle(),
		Conclusion:    checkRunConclusion(cr.GetStatus(), cr.GetConclusion()),
		Source:        model.CheckSourceCheckRun,
		HTMLURL:       htmlURL,
		CheckSuiteID:  suiteID,
		AppName:       cr.GetApp().GetName(),
		OutputSummary: cr.GetOutput().GetSummary(),
		StartedAt:     cr.GetStartedAt().Time,
		CompletedAt:   cr.GetCompletedAt().Time,
	}
}

// checkRunConclusion folds a check run's status and conclusion into one
// classifier. Unfinished runs report their status.
func checkRunConclusion(status, conclusion string) model.Conclusion {
	switch status {
	case "completed":
		return model.Conclusion(strings.ToLower(conclusion))
	case "queued":
		return model.ConclusionQueued
	case "in_progress":
		return model.ConclusionInProgress
	default:
		// waiting, requested, pending
		return model.ConclusionPending
	}
}

// mapRepoStatus converts a legacy commit status to a domain model CheckResult.
func mapRepoStatus(s *gh.RepoStatus) model.CheckResult {
	var conclusion model.Conclusion
	switch s.GetState() {
	case "success":
		conclusion = model.ConclusionSuccess
	case "failure", "error":
		conclusion = model.ConclusionFailure
	default:
		conclusion = model.ConclusionPending
	}

	c := model.CheckResult{
		ID:          s.GetID(),
		Name:        s.GetContext(),
		Description: s.GetDescription(),
		Conclusion:  conclusion,
		Source:      model.CheckSourceCommitStatus,
		HTMLURL:     s.GetTargetURL(),
		StartedAt:   s.GetCreatedAt().Time,
	}
	if conclusion.IsCompleted() {
		c.CompletedAt = s.GetUpdatedAt().Time
	}
	return c
}

// mapWorkflowJob converts a go-github WorkflowJob to a driven.WorkflowJob.
func mapWorkflowJob(j *gh.WorkflowJob) driven.WorkflowJob {
	steps := make([]model.LogStep, 0, len(j.Steps))
	for _, s := range j.Steps {
		steps = append(steps, model.LogStep{
			Number:      s.GetNumber(),
			Name:        s.GetName(),
			Conclusion:  checkRunConclusion(s.GetStatus(), s.GetConclusion()),
			StartedAt:   s.GetStartedAt().Time,
			CompletedAt: s.GetCompletedAt().Time,
		})
	}

	return driven.WorkflowJob{
		ID:      j.GetID(),
		RunID:   j.GetRunID(),
		Name:    j.GetName(),
		HTMLURL: j.GetHTMLURL(),
		Steps:   steps,
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
