package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/checkpanel/internal/application"
	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

func TestRenderView(t *testing.T) {
	repo, err := model.ParseRepository("octocat/hello-world", "https://github.com/octocat/hello-world")
	assert.NoError(t, err)

	checks := []model.CheckResult{
		{ID: 1, Name: "build", Conclusion: model.ConclusionSuccess},
		{
			ID:          2,
			Name:        "test",
			Conclusion:  model.ConclusionFailure,
			Description: "2 tests failed",
			Steps: []model.LogStep{
				{Number: 1, Name: "Checkout", Conclusion: model.ConclusionSuccess},
				{Number: 3, Name: "Run tests", Conclusion: model.ConclusionFailure, ErrorLines: []string{"##[error]exit code 1"}},
			},
		},
	}

	out := renderView(application.PanelView{
		Repository: repo,
		PRNumber:   42,
		Summary:    application.Summarize(checks),
		Checks:     checks,
		CIStatus:   model.ComputeCIStatus(checks),
	}, time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC))

	assert.Contains(t, out, "octocat/hello-world#42")
	assert.Contains(t, out, "failing")
	assert.Contains(t, out, "1 successful, and 1 failed checks")
	assert.Contains(t, out, "09:30:00")
	assert.Contains(t, out, "2 tests failed")
	assert.Contains(t, out, "step 3 Run tests")
	assert.Contains(t, out, "##[error]exit code 1")
	assert.NotContains(t, out, "Checkout")
}

func TestRenderView_LoadingHints(t *testing.T) {
	tests := []struct {
		name string
		view application.PanelView
		want string
	}{
		{name: "workflows", view: application.PanelView{LoadingWorkflows: true, LoadingJobLogs: true}, want: "(loading workflows)"},
		{name: "logs", view: application.PanelView{LoadingJobLogs: true}, want: "(loading logs)"},
		{name: "failed", view: application.PanelView{EnrichmentFailed: true, LoadingJobLogs: true}, want: "(job details unavailable)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, renderView(tt.view, time.Now()), tt.want)
		})
	}
}

func TestFindCheck(t *testing.T) {
	checks := []model.CheckResult{{ID: 1, Name: "build"}, {ID: 2, Name: "test"}}

	got, ok := findCheck(checks, "test")
	assert.True(t, ok)
	assert.Equal(t, int64(2), got.ID)

	_, ok = findCheck(checks, "deploy")
	assert.False(t, ok)
}
