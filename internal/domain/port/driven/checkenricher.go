package driven

import (
	"context"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

// CheckEnricher attaches GitHub Actions metadata to raw check results.
// Both methods return new slices and never mutate their input.
type CheckEnricher interface {
	// EnrichWithJobURLs matches checks to workflow jobs on the branch and
	// attaches job/log URLs and step lists.
	EnrichWithJobURLs(ctx context.Context, repo model.Repository, ref, branchName string, checks []model.CheckResult) ([]model.CheckResult, error)

	// FetchAndParseWorkflowLogs downloads the job logs of enriched checks and
	// attaches the parsed log section of every step.
	FetchAndParseWorkflowLogs(ctx context.Context, repo model.Repository, ref string, checks []model.CheckResult) ([]model.CheckResult, error)
}
