package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/checkpanel/internal/application"
	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// PanelRequest is the JSON request body for opening or re-activating a panel.
type PanelRequest struct {
	Repository string `json:"repository"`
	HTMLURL    string `json:"html_url"`
	Branch     string `json:"branch"`
	PRNumber   int    `json:"pr_number"`
}

// PanelResponse is the JSON representation of a panel's view.
type PanelResponse struct {
	ID               string          `json:"id"`
	Repository       string          `json:"repository"`
	HTMLURL          string          `json:"html_url,omitempty"`
	Branch           string          `json:"branch"`
	PRNumber         int             `json:"pr_number"`
	Ref              string          `json:"ref"`
	Summary          string          `json:"summary"`
	CIStatus         string          `json:"ci_status"`
	LoadingJobLogs   bool            `json:"loading_job_logs"`
	LoadingWorkflows bool            `json:"loading_workflows"`
	EnrichmentFailed bool            `json:"enrichment_failed"`
	Active           bool            `json:"active"`
	Checks           []CheckResponse `json:"checks"`
}

// CheckResponse is the JSON representation of one check.
type CheckResponse struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Conclusion    string         `json:"conclusion"`
	Adjective     string         `json:"adjective"`
	Source        string         `json:"source"`
	HTMLURL       string         `json:"html_url,omitempty"`
	CheckSuiteID  *int64         `json:"check_suite_id,omitempty"`
	AppName       string         `json:"app_name,omitempty"`
	SummaryHTML   string         `json:"summary_html,omitempty"`
	StartedAt     string         `json:"started_at,omitempty"`
	CompletedAt   string         `json:"completed_at,omitempty"`
	WorkflowRunID int64          `json:"workflow_run_id,omitempty"`
	JobHTMLURL    string         `json:"job_html_url,omitempty"`
	LogsURL       string         `json:"logs_url,omitempty"`
	Steps         []StepResponse `json:"steps,omitempty"`
}

// StepResponse is the JSON representation of one workflow job step.
type StepResponse struct {
	Number     int64    `json:"number"`
	Name       string   `json:"name"`
	Conclusion string   `json:"conclusion"`
	HTMLURL    string   `json:"html_url,omitempty"`
	Log        string   `json:"log,omitempty"`
	ErrorLines []string `json:"error_lines,omitempty"`
}

// RerunResponse lists the check suites that were re-requested.
type RerunResponse struct {
	CheckSuiteIDs []int64 `json:"check_suite_ids"`
}

// HealthResponse is the JSON response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Panels int    `json:"panels"`
	Time   string `json:"time"`
}

func toPanelResponse(id string, v application.PanelView) PanelResponse {
	checks := make([]CheckResponse, 0, len(v.Checks))
	for _, c := range v.Checks {
		checks = append(checks, toCheckResponse(c))
	}

	return PanelResponse{
		ID:               id,
		Repository:       v.Repository.FullName(),
		HTMLURL:          v.Repository.HTMLURL,
		Branch:           v.BranchName,
		PRNumber:         v.PRNumber,
		Ref:              v.Ref,
		Summary:          v.Summary,
		CIStatus:         string(v.CIStatus),
		LoadingJobLogs:   v.LoadingJobLogs,
		LoadingWorkflows: v.LoadingWorkflows,
		EnrichmentFailed: v.EnrichmentFailed,
		Active:           v.Active,
		Checks:           checks,
	}
}

func toCheckResponse(c model.CheckResult) CheckResponse {
	var steps []StepResponse
	for _, s := range c.Steps {
		steps = append(steps, StepResponse{
			Number:     s.Number,
			Name:       s.Name,
			Conclusion: string(s.Conclusion),
			HTMLURL:    s.HTMLURL,
			Log:        s.Log,
			ErrorLines: s.ErrorLines,
		})
	}

	return CheckResponse{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Conclusion:    string(c.Conclusion),
		Adjective:     c.Conclusion.Adjective(),
		Source:        string(c.Source),
		HTMLURL:       c.HTMLURL,
		CheckSuiteID:  c.CheckSuiteID,
		AppName:       c.AppName,
		SummaryHTML:   RenderMarkdown(c.OutputSummary),
		StartedAt:     formatTime(c.StartedAt),
		CompletedAt:   formatTime(c.CompletedAt),
		WorkflowRunID: c.WorkflowRunID,
		JobHTMLURL:    c.JobHTMLURL,
		LogsURL:       c.LogsURL,
		Steps:         steps,
	}
}

// formatTime renders t as RFC 3339 in UTC, or "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
