package model

import "time"

// CheckResult is one CI check or commit status entry for a ref.
// Values are treated as immutable: enrichment produces copies.
type CheckResult struct {
	ID            int64
	Name          string
	Description   string
	Conclusion    Conclusion
	Source        CheckSource
	HTMLURL       string // Optional; empty when the provider exposes no page.
	CheckSuiteID  *int64 // Nil for commit statuses and third-party checks without a suite.
	AppName       string
	OutputSummary string // Markdown summary reported by the check.
	StartedAt     time.Time
	CompletedAt   time.Time

	// Enrichment fields, populated for GitHub Actions jobs only.
	WorkflowRunID int64
	JobHTMLURL    string
	LogsURL       string
	Steps         []LogStep
}

// LogStep is one step of a GitHub Actions job, optionally carrying the
// parsed section of the job log that belongs to it.
type LogStep struct {
	Number      int64
	Name        string
	Conclusion  Conclusion
	StartedAt   time.Time
	CompletedAt time.Time
	HTMLURL     string
	Log         string
	ErrorLines  []string
}

// IsActionsJob reports whether the check has been matched to a workflow job.
func (c CheckResult) IsActionsJob() bool {
	return c.WorkflowRunID != 0
}

// WithSteps returns a copy of c whose Steps slice is replaced by steps.
func (c CheckResult) WithSteps(steps []LogStep) CheckResult {
	c.Steps = steps
	return c
}

// CloneChecks returns a shallow copy of checks with fresh Steps slices, so
// callers can hand the result out without sharing backing arrays.
func CloneChecks(checks []CheckResult) []CheckResult {
	if checks == nil {
		return nil
	}
	out := make([]CheckResult, len(checks))
	for i, c := range checks {
		if c.Steps != nil {
			c.Steps = append([]LogStep(nil), c.Steps...)
		}
		out[i] = c
	}
	return out
}
