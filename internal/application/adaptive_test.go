package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

func TestClassifyActivity(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		wantTier ActivityTier
	}{
		{"30 minutes ago is active", 30 * time.Minute, TierActive},
		{"59 minutes ago is active (boundary)", 59 * time.Minute, TierActive},
		{"61 minutes ago is warm (boundary)", 61 * time.Minute, TierWarm},
		{"12 hours ago is warm", 12 * time.Hour, TierWarm},
		{"25 hours ago is stale", 25 * time.Hour, TierStale},
		{"zero time is stale", 0, TierStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lastActivity time.Time
			if tt.elapsed > 0 {
				lastActivity = time.Now().Add(-tt.elapsed)
			}
			got := classifyActivity(lastActivity)
			assert.Equal(t, tt.wantTier, got)
		})
	}
}

func TestClassifyChecks(t *testing.T) {
	now := time.Now()

	t.Run("running check is hot", func(t *testing.T) {
		checks := []model.CheckResult{
			{Conclusion: model.ConclusionSuccess, CompletedAt: now.Add(-48 * time.Hour)},
			{Conclusion: model.ConclusionInProgress},
		}
		assert.Equal(t, TierHot, classifyChecks(checks))
	})

	t.Run("recent completion is active", func(t *testing.T) {
		checks := []model.CheckResult{
			{Conclusion: model.ConclusionSuccess, CompletedAt: now.Add(-48 * time.Hour)},
			{Conclusion: model.ConclusionFailure, CompletedAt: now.Add(-5 * time.Minute)},
		}
		assert.Equal(t, TierActive, classifyChecks(checks))
	})

	t.Run("no checks is stale", func(t *testing.T) {
		assert.Equal(t, TierStale, classifyChecks(nil))
	})
}

func TestTierInterval(t *testing.T) {
	tests := []struct {
		tier    ActivityTier
		wantDur time.Duration
	}{
		{TierHot, 30 * time.Second},
		{TierActive, 1 * time.Minute},
		{TierWarm, 5 * time.Minute},
		{TierStale, 15 * time.Minute},
		{ActivityTier(99), 1 * time.Minute}, // unknown defaults to active
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			got := tierInterval(tt.tier)
			assert.Equal(t, tt.wantDur, got)
		})
	}
}

func TestFreshestCompletion(t *testing.T) {
	t.Run("empty slice returns zero time", func(t *testing.T) {
		got := freshestCompletion(nil)
		assert.True(t, got.IsZero())
	})

	t.Run("multiple checks returns the most recent", func(t *testing.T) {
		now := time.Now().Truncate(time.Second)
		checks := []model.CheckResult{
			{CompletedAt: now.Add(-2 * time.Hour)},
			{CompletedAt: now},
			{},
		}
		assert.Equal(t, now, freshestCompletion(checks))
	})
}

func TestActivityTierString(t *testing.T) {
	tests := []struct {
		tier ActivityTier
		want string
	}{
		{TierHot, "hot"},
		{TierActive, "active"},
		{TierWarm, "warm"},
		{TierStale, "stale"},
		{ActivityTier(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tier.String())
		})
	}
}
