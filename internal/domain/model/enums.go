package model

// Conclusion is the terminal or in-progress outcome category of a check.
// Pending states (queued, in_progress, pending) share the type so a check
// carries a single classifier regardless of whether it has finished.
type Conclusion string

const (
	ConclusionSuccess        Conclusion = "success"
	ConclusionFailure        Conclusion = "failure"
	ConclusionNeutral        Conclusion = "neutral"
	ConclusionCancelled      Conclusion = "cancelled" //nolint:misspell // GitHub API uses British "cancelled"
	ConclusionSkipped        Conclusion = "skipped"
	ConclusionTimedOut       Conclusion = "timed_out"
	ConclusionActionRequired Conclusion = "action_required"
	ConclusionStale          Conclusion = "stale"
	ConclusionPending        Conclusion = "pending"
	ConclusionQueued         Conclusion = "queued"
	ConclusionInProgress     Conclusion = "in_progress"
	ConclusionUnknown        Conclusion = ""
)

// Adjective returns the lower-cased human adjective used when summarizing
// checks, e.g. "successful" or "timed out". Unfinished and unrecognized
// conclusions read as "in progress".
func (c Conclusion) Adjective() string {
	switch c {
	case ConclusionSuccess:
		return "successful"
	case ConclusionFailure:
		return "failed"
	case ConclusionNeutral:
		return "neutral"
	case ConclusionCancelled:
		return "cancelled" //nolint:misspell // matches the API spelling
	case ConclusionSkipped:
		return "skipped"
	case ConclusionTimedOut:
		return "timed out"
	case ConclusionActionRequired:
		return "action required"
	case ConclusionStale:
		return "marked as stale"
	default:
		return "in progress"
	}
}

// IsCompleted reports whether the conclusion is terminal.
func (c Conclusion) IsCompleted() bool {
	switch c {
	case ConclusionPending, ConclusionQueued, ConclusionInProgress, ConclusionUnknown:
		return false
	default:
		return true
	}
}

// IsFailure reports whether the conclusion should count against the PR.
func (c Conclusion) IsFailure() bool {
	switch c {
	case ConclusionFailure, ConclusionCancelled, ConclusionTimedOut, ConclusionActionRequired:
		return true
	default:
		return false
	}
}

// CIStatus represents the aggregated state of all checks on a ref.
type CIStatus string

const (
	CIStatusPassing CIStatus = "passing"
	CIStatusFailing CIStatus = "failing"
	CIStatusPending CIStatus = "pending"
	CIStatusUnknown CIStatus = "unknown"
)

// CheckSource distinguishes Checks API runs from legacy commit statuses.
type CheckSource string

const (
	CheckSourceCheckRun     CheckSource = "check_run"
	CheckSourceCommitStatus CheckSource = "commit_status"
)
