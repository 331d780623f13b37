// Package httphandler is the HTTP driving adapter that exposes status panels
// as a JSON API.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/checkpanel/internal/application"
	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

// StatusRefresher forces an immediate fetch of a ref's checks.
type StatusRefresher interface {
	Refresh(ctx context.Context, repo model.Repository, ref string) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	panels    *application.PanelRegistry
	refresher StatusRefresher
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
// refresher may be nil, which disables the refresh endpoint.
func NewHandler(panels *application.PanelRegistry, refresher StatusRefresher, logger *slog.Logger) *Handler {
	return &Handler{
		panels:    panels,
		refresher: refresher,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/panels", h.OpenPanel)
	mux.HandleFunc("GET /api/v1/panels/{id}", h.GetPanel)
	mux.HandleFunc("PUT /api/v1/panels/{id}", h.ReactivatePanel)
	mux.HandleFunc("DELETE /api/v1/panels/{id}", h.ClosePanel)
	mux.HandleFunc("POST /api/v1/panels/{id}/rerun", h.Rerun)
	mux.HandleFunc("POST /api/v1/panels/{id}/refresh", h.Refresh)
	mux.HandleFunc("POST /api/v1/panels/{id}/checks/{checkID}/open", h.OpenCheck)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// OpenPanel creates and activates a panel for a pull request.
func (h *Handler) OpenPanel(w http.ResponseWriter, r *http.Request) {
	repo, req, ok := decodePanelRequest(w, r)
	if !ok {
		return
	}

	id, panel := h.panels.Open(repo, req.Branch, req.PRNumber)

	writeJSON(w, http.StatusCreated, toPanelResponse(id, panel.View()))
}

// GetPanel returns the current view of a panel.
func (h *Handler) GetPanel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	panel, ok := h.lookup(w, id)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toPanelResponse(id, panel.View()))
}

// ReactivatePanel points an existing panel at a (possibly different) pull request.
func (h *Handler) ReactivatePanel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	repo, req, ok := decodePanelRequest(w, r)
	if !ok {
		return
	}

	panel, err := h.panels.Reactivate(id, repo, req.Branch, req.PRNumber)
	if err != nil {
		h.writePanelError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, toPanelResponse(id, panel.View()))
}

// ClosePanel tears a panel down and forgets it.
func (h *Handler) ClosePanel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.panels.Close(id); err != nil {
		h.writePanelError(w, id, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Rerun re-requests every check suite behind the panel's checks.
func (h *Handler) Rerun(w http.ResponseWriter, r *http.Request) {
	panel, ok := h.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}

	ids := panel.Rerun(r.Context())
	if ids == nil {
		ids = []int64{}
	}

	writeJSON(w, http.StatusOK, RerunResponse{CheckSuiteIDs: ids})
}

// Refresh fetches the panel's ref from GitHub now and returns the view.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	panel, ok := h.lookup(w, id)
	if !ok {
		return
	}

	if h.refresher == nil {
		writeError(w, http.StatusNotImplemented, "refresh is not available")
		return
	}

	view := panel.View()
	if err := h.refresher.Refresh(r.Context(), view.Repository, view.Ref); err != nil {
		h.logger.Error("refresh failed", "panel", id, "repo", view.Repository.FullName(), "ref", view.Ref, "error", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, toPanelResponse(id, panel.View()))
}

// OpenCheck opens a check, or the pull request as a fallback, in the browser.
func (h *Handler) OpenCheck(w http.ResponseWriter, r *http.Request) {
	panel, ok := h.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}

	checkID, err := strconv.ParseInt(r.PathValue("checkID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check id")
		return
	}

	check, found := panel.Check(checkID)
	if !found {
		writeError(w, http.StatusNotFound, "check not found")
		return
	}

	if !panel.OpenOnProvider(check) {
		writeError(w, http.StatusUnprocessableEntity, "no URL available for check")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Panels: h.panels.Len(),
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, id string) (*application.StatusPanel, bool) {
	panel, err := h.panels.Get(id)
	if err != nil {
		h.writePanelError(w, id, err)
		return nil, false
	}
	return panel, true
}

func (h *Handler) writePanelError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, application.ErrPanelNotFound) {
		writeError(w, http.StatusNotFound, "panel not found")
		return
	}
	h.logger.Error("panel operation failed", "panel", id, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// decodePanelRequest parses and validates a PanelRequest, writing a 400 on failure.
func decodePanelRequest(w http.ResponseWriter, r *http.Request) (model.Repository, PanelRequest, bool) {
	var req PanelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return model.Repository{}, req, false
	}

	if !isValidRepoName(req.Repository) {
		writeError(w, http.StatusBadRequest, "invalid repository name: expected owner/repo format")
		return model.Repository{}, req, false
	}

	if req.PRNumber <= 0 {
		writeError(w, http.StatusBadRequest, "pr_number must be positive")
		return model.Repository{}, req, false
	}

	if req.HTMLURL != "" && !strings.HasPrefix(req.HTMLURL, "https://") && !strings.HasPrefix(req.HTMLURL, "http://") {
		writeError(w, http.StatusBadRequest, "html_url must be an http(s) URL")
		return model.Repository{}, req, false
	}

	repo, err := model.ParseRepository(req.Repository, req.HTMLURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return model.Repository{}, req, false
	}

	return repo, req, true
}

// isValidRepoName validates that name is in owner/repo format where each part
// contains only alphanumeric characters, hyphens, dots, or underscores.
func isValidRepoName(name string) bool {
	parts := strings.SplitN(name, "/", 3)
	if len(parts) != 2 {
		return false
	}

	for _, part := range parts {
		if part == "" {
			return false
		}
		for _, ch := range part {
			if !isValidRepoChar(ch) {
				return false
			}
		}
	}

	return true
}

// isValidRepoChar returns true if the rune is allowed in a repository owner or name.
func isValidRepoChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '.' || ch == '_'
}
