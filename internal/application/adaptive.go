package application

import (
	"time"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

// ActivityTier represents the polling frequency classification for a ref
// based on whether its checks are still running and how recently they finished.
type ActivityTier int

const (
	// TierHot indicates at least one check is still running. Polls every 30 seconds.
	TierHot ActivityTier = iota
	// TierActive indicates a check finished within the last hour. Polls every minute.
	TierActive
	// TierWarm indicates a check finished within the last day. Polls every 5 minutes.
	TierWarm
	// TierStale indicates nothing finished in the last day. Polls every 15 minutes.
	TierStale
)

// Polling intervals per activity tier.
const (
	intervalHot    = 30 * time.Second
	intervalActive = 1 * time.Minute
	intervalWarm   = 5 * time.Minute
	intervalStale  = 15 * time.Minute
)

// String returns a human-readable name for the activity tier.
func (t ActivityTier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierActive:
		return "active"
	case TierWarm:
		return "warm"
	case TierStale:
		return "stale"
	default:
		return "unknown"
	}
}

// tierInterval returns the polling interval for the given activity tier.
func tierInterval(tier ActivityTier) time.Duration {
	switch tier {
	case TierHot:
		return intervalHot
	case TierActive:
		return intervalActive
	case TierWarm:
		return intervalWarm
	case TierStale:
		return intervalStale
	default:
		return intervalActive
	}
}

// classifyActivity determines the activity tier based on the time elapsed
// since the last check completed. A zero-value time is treated as TierStale.
func classifyActivity(lastActivity time.Time) ActivityTier {
	if lastActivity.IsZero() {
		return TierStale
	}

	elapsed := time.Since(lastActivity)

	switch {
	case elapsed < 1*time.Hour:
		return TierActive
	case elapsed < 24*time.Hour:
		return TierWarm
	default:
		return TierStale
	}
}

// classifyChecks picks the tier for a ref: hot while anything is running,
// otherwise by the most recent completion.
func classifyChecks(checks []model.CheckResult) ActivityTier {
	for _, c := range checks {
		if !c.Conclusion.IsCompleted() {
			return TierHot
		}
	}
	return classifyActivity(freshestCompletion(checks))
}

// refSchedule tracks per-ref adaptive polling state.
type refSchedule struct {
	tier       ActivityTier
	nextPollAt time.Time
	lastPolled time.Time
}

// ScheduleInfo is an exported view of a ref's adaptive polling schedule,
// used for observability and testing.
type ScheduleInfo struct {
	Tier       ActivityTier
	NextPollAt time.Time
	LastPolled time.Time
}

// freshestCompletion finds the most recent CompletedAt across all checks.
// Returns the zero time if the slice is empty, which classifies as TierStale.
func freshestCompletion(checks []model.CheckResult) time.Time {
	var newest time.Time
	for _, c := range checks {
		if c.CompletedAt.After(newest) {
			newest = c.CompletedAt
		}
	}
	return newest
}
