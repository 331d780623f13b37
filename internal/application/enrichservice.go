package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
	"github.com/ericfisherdev/checkpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CheckEnricher = (*EnrichService)(nil)

// EnrichService matches check runs to GitHub Actions workflow jobs and
// attaches job URLs, step lists and parsed job logs.
type EnrichService struct {
	ghClient driven.GitHubClient
}

// NewEnrichService creates a new EnrichService.
func NewEnrichService(ghClient driven.GitHubClient) *EnrichService {
	return &EnrichService{ghClient: ghClient}
}

// EnrichWithJobURLs lists the branch's workflow runs, matches each check to a
// run by check suite and to a job by ID, and returns a copy of checks with the
// job metadata attached. Checks that are not Actions jobs come back unchanged.
// Jobs are listed once per run; a failed job listing only skips that run.
func (s *EnrichService) EnrichWithJobURLs(ctx context.Context, repo model.Repository, ref, branchName string, checks []model.CheckResult) ([]model.CheckResult, error) {
	out := model.CloneChecks(checks)
	if branchName == "" || len(out) == 0 {
		return out, nil
	}

	runs, err := s.ghClient.ListWorkflowRunsForBranch(ctx, repo.FullName(), branchName)
	if err != nil {
		return nil, fmt.Errorf("listing workflow runs for %s@%s: %w", repo.FullName(), branchName, err)
	}

	runsBySuite := make(map[int64]driven.WorkflowRun, len(runs))
	for _, run := range runs {
		// Runs are newest first; keep the newest run of a suite.
		if _, ok := runsBySuite[run.CheckSuiteID]; !ok {
			runsBySuite[run.CheckSuiteID] = run
		}
	}

	jobsByRun := make(map[int64]map[int64]driven.WorkflowJob)
	var matched int

	for i, c := range out {
		if c.CheckSuiteID == nil {
			continue
		}
		run, ok := runsBySuite[*c.CheckSuiteID]
		if !ok {
			continue
		}

		jobs, ok := jobsByRun[run.ID]
		if !ok {
			jobs, err = s.listJobs(ctx, repo, run.ID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				slog.Error("list workflow jobs failed", "repo", repo.FullName(), "run", run.ID, "error", err)
			}
			jobsByRun[run.ID] = jobs
		}

		job, ok := jobs[c.ID]
		if !ok {
			continue
		}

		out[i] = withJob(c, run, job)
		matched++
	}

	slog.Debug("job urls enriched",
		"repo", repo.FullName(),
		"ref", ref,
		"checks", len(out),
		"workflow_runs", len(runs),
		"matched", matched,
	)

	return out, nil
}

// FetchAndParseWorkflowLogs downloads the log of every check matched to a
// workflow job and splits it across the job's steps. A failed download skips
// that check; only cancellation fails the call.
func (s *EnrichService) FetchAndParseWorkflowLogs(ctx context.Context, repo model.Repository, ref string, checks []model.CheckResult) ([]model.CheckResult, error) {
	out := model.CloneChecks(checks)

	var parsed int
	for i, c := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.IsActionsJob() {
			continue
		}

		raw, err := s.ghClient.FetchJobLogs(ctx, repo.FullName(), c.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("fetch job logs failed", "repo", repo.FullName(), "job", c.ID, "error", err)
			continue
		}

		out[i] = c.WithSteps(ParseJobLog(raw, c.Steps))
		parsed++
	}

	slog.Debug("workflow logs parsed", "repo", repo.FullName(), "ref", ref, "parsed", parsed)

	return out, nil
}

func (s *EnrichService) listJobs(ctx context.Context, repo model.Repository, runID int64) (map[int64]driven.WorkflowJob, error) {
	jobs, err := s.ghClient.ListWorkflowJobs(ctx, repo.FullName(), runID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]driven.WorkflowJob, len(jobs))
	for _, job := range jobs {
		byID[job.ID] = job
	}
	return byID, nil
}

// withJob returns a copy of c carrying the run and job metadata. Step URLs
// point at the step anchor on the job page.
func withJob(c model.CheckResult, run driven.WorkflowRun, job driven.WorkflowJob) model.CheckResult {
	c.WorkflowRunID = run.ID
	c.LogsURL = run.LogsURL
	c.JobHTMLURL = job.HTMLURL
	if c.HTMLURL == "" {
		c.HTMLURL = job.HTMLURL
	}

	steps := make([]model.LogStep, len(job.Steps))
	for i, step := range job.Steps {
		if job.HTMLURL != "" {
			step.HTMLURL = fmt.Sprintf("%s#step:%d:1", job.HTMLURL, step.Number)
		}
		steps[i] = step
	}
	c.Steps = steps

	return c
}
