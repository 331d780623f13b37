package model

import (
	"fmt"
	"time"
)

// CombinedStatus is the aggregate view of every check on a ref at the time
// it was fetched. It is produced by the status store and handed out as a
// read-only snapshot.
type CombinedStatus struct {
	Ref       string
	Checks    []CheckResult
	FetchedAt time.Time
}

// PullRequestRef returns the ref that tracks the head of the given pull request.
func PullRequestRef(prNumber int) string {
	return fmt.Sprintf("refs/pull/%d/head", prNumber)
}

// State aggregates every check into a single CIStatus.
// Priority: failing > pending > passing > unknown.
func (s *CombinedStatus) State() CIStatus {
	if s == nil || len(s.Checks) == 0 {
		return CIStatusUnknown
	}
	return ComputeCIStatus(s.Checks)
}

// ComputeCIStatus aggregates a check list into a CIStatus.
func ComputeCIStatus(checks []CheckResult) CIStatus {
	if len(checks) == 0 {
		return CIStatusUnknown
	}

	var hasFailing, hasPending bool
	for _, c := range checks {
		switch {
		case !c.Conclusion.IsCompleted():
			hasPending = true
		case c.Conclusion.IsFailure():
			hasFailing = true
		}
	}

	if hasFailing {
		return CIStatusFailing
	}
	if hasPending {
		return CIStatusPending
	}
	return CIStatusPassing
}
