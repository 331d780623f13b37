package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRef = "refs/pull/1/head"

func makeStatus(fetchedAt time.Time, checks ...model.CheckResult) model.CombinedStatus {
	return model.CombinedStatus{Ref: testRef, Checks: checks, FetchedAt: fetchedAt}
}

func TestCheckRepo_ReplaceAndGet(t *testing.T) {
	db := setupTestDB(t)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()

	started := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	completed := time.Date(2026, 2, 10, 10, 5, 0, 0, time.UTC)
	fetched := time.Date(2026, 2, 10, 10, 6, 0, 123000000, time.UTC)
	suite := int64(500)

	status := makeStatus(fetched,
		model.CheckResult{
			ID:            1002,
			Name:          "lint",
			Description:   "Lint failed",
			Conclusion:    model.ConclusionFailure,
			Source:        model.CheckSourceCheckRun,
			HTMLURL:       "https://github.com/octocat/hello-world/runs/1002",
			CheckSuiteID:  &suite,
			AppName:       "GitHub Actions",
			OutputSummary: "2 problems",
			StartedAt:     started,
			CompletedAt:   completed,
			WorkflowRunID: 77,
			JobHTMLURL:    "https://github.com/octocat/hello-world/actions/runs/77/job/1002",
			LogsURL:       "https://api.github.com/repos/octocat/hello-world/actions/runs/77/logs",
			Steps: []model.LogStep{
				{Number: 1, Name: "Set up job", Conclusion: model.ConclusionSuccess, StartedAt: started},
				{Number: 2, Name: "Run lint", Conclusion: model.ConclusionFailure, Log: "bad\nworse", ErrorLines: []string{"worse"}},
			},
		},
		model.CheckResult{
			ID:         9,
			Name:       "ci/jenkins",
			Conclusion: model.ConclusionPending,
			Source:     model.CheckSourceCommitStatus,
		},
	)

	require.NoError(t, checkRepo.ReplaceStatus(ctx, "octocat/hello-world", status))

	got, err := checkRepo.GetStatus(ctx, "octocat/hello-world", testRef)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, testRef, got.Ref)
	assert.Equal(t, fetched, got.FetchedAt)
	require.Len(t, got.Checks, 2)

	// Checks keep their stored order.
	assert.Equal(t, status.Checks[0], got.Checks[0])
	assert.Equal(t, status.Checks[1], got.Checks[1])
	assert.Nil(t, got.Checks[1].CheckSuiteID)
	assert.True(t, got.Checks[1].StartedAt.IsZero())
}

func TestCheckRepo_ReplaceOverwrites(t *testing.T) {
	db := setupTestDB(t)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()
	now := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)

	first := makeStatus(now,
		model.CheckResult{ID: 1, Name: "build", Conclusion: model.ConclusionInProgress, Source: model.CheckSourceCheckRun},
		model.CheckResult{ID: 2, Name: "test", Conclusion: model.ConclusionQueued, Source: model.CheckSourceCheckRun},
	)
	require.NoError(t, checkRepo.ReplaceStatus(ctx, "octocat/hello-world", first))

	second := makeStatus(now.Add(time.Minute),
		model.CheckResult{ID: 1, Name: "build", Conclusion: model.ConclusionSuccess, Source: model.CheckSourceCheckRun},
	)
	require.NoError(t, checkRepo.ReplaceStatus(ctx, "octocat/hello-world", second))

	got, err := checkRepo.GetStatus(ctx, "octocat/hello-world", testRef)
	require.NoError(t, err)
	require.Len(t, got.Checks, 1)
	assert.Equal(t, model.ConclusionSuccess, got.Checks[0].Conclusion)
	assert.Equal(t, now.Add(time.Minute), got.FetchedAt)
}

func TestCheckRepo_EmptySnapshot(t *testing.T) {
	db := setupTestDB(t)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()

	require.NoError(t, checkRepo.ReplaceStatus(ctx, "octocat/hello-world", makeStatus(time.Now())))

	got, err := checkRepo.GetStatus(ctx, "octocat/hello-world", testRef)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Checks)
}

func TestCheckRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	checkRepo := NewCheckRepo(db)

	got, err := checkRepo.GetStatus(context.Background(), "octocat/hello-world", testRef)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCheckRepo_IsolatesRepositoriesAndRefs(t *testing.T) {
	db := setupTestDB(t)
	checkRepo := NewCheckRepo(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, checkRepo.ReplaceStatus(ctx, "octocat/hello-world",
		makeStatus(now, model.CheckResult{ID: 1, Name: "a", Source: model.CheckSourceCheckRun})))
	require.NoError(t, checkRepo.ReplaceStatus(ctx, "octocat/spoon-knife",
		makeStatus(now, model.CheckResult{ID: 2, Name: "b", Source: model.CheckSourceCheckRun})))

	other := makeStatus(now, model.CheckResult{ID: 3, Name: "c", Source: model.CheckSourceCheckRun})
	other.Ref = "refs/pull/2/head"
	require.NoError(t, checkRepo.ReplaceStatus(ctx, "octocat/hello-world", other))

	got, err := checkRepo.GetStatus(ctx, "octocat/hello-world", testRef)
	require.NoError(t, err)
	require.Len(t, got.Checks, 1)
	assert.Equal(t, int64(1), got.Checks[0].ID)

	got, err = checkRepo.GetStatus(ctx, "octocat/spoon-knife", testRef)
	require.NoError(t, err)
	require.Len(t, got.Checks, 1)
	assert.Equal(t, int64(2), got.Checks[0].ID)
}
