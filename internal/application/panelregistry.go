package application

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
	"github.com/ericfisherdev/checkpanel/internal/domain/port/driven"
)

// ErrPanelNotFound indicates the requested panel does not exist or was closed.
var ErrPanelNotFound = errors.New("panel not found")

// PanelRegistry owns the panels opened through the HTTP API. Each panel gets a
// random ID and is removed from the registry when closed.
type PanelRegistry struct {
	status   driven.StatusSource
	enricher driven.CheckEnricher
	rerunner driven.CheckSuiteRerunner
	opener   driven.URLOpener

	mu     sync.RWMutex
	panels map[string]*StatusPanel
}

// NewPanelRegistry creates an empty registry whose panels share the given
// collaborators.
func NewPanelRegistry(
	status driven.StatusSource,
	enricher driven.CheckEnricher,
	rerunner driven.CheckSuiteRerunner,
	opener driven.URLOpener,
) *PanelRegistry {
	return &PanelRegistry{
		status:   status,
		enricher: enricher,
		rerunner: rerunner,
		opener:   opener,
		panels:   make(map[string]*StatusPanel),
	}
}

// Open creates and activates a panel for the pull request and returns its ID.
func (r *PanelRegistry) Open(repo model.Repository, branchName string, prNumber int) (string, *StatusPanel) {
	id := uuid.NewString()

	panel := NewStatusPanel(PanelDeps{
		Status:   r.status,
		Enricher: r.enricher,
		Rerunner: r.rerunner,
		Opener:   r.opener,
		OnClose:  func() { r.remove(id) },
	})

	r.mu.Lock()
	r.panels[id] = panel
	r.mu.Unlock()

	panel.Activate(repo, branchName, prNumber)

	slog.Info("panel opened", "panel", id, "repo", repo.FullName(), "pr", prNumber)

	return id, panel
}

// Get returns the panel with the given ID.
func (r *PanelRegistry) Get(id string) (*StatusPanel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	panel, ok := r.panels[id]
	if !ok {
		return nil, ErrPanelNotFound
	}
	return panel, nil
}

// Reactivate points an existing panel at a (possibly different) pull request.
func (r *PanelRegistry) Reactivate(id string, repo model.Repository, branchName string, prNumber int) (*StatusPanel, error) {
	panel, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	panel.Activate(repo, branchName, prNumber)
	return panel, nil
}

// Close tears the panel down and removes it from the registry.
func (r *PanelRegistry) Close(id string) error {
	panel, err := r.Get(id)
	if err != nil {
		return err
	}
	panel.Close()
	slog.Info("panel closed", "panel", id)
	return nil
}

// CloseAll closes every panel and waits for their enrichment passes to return.
func (r *PanelRegistry) CloseAll() {
	r.mu.RLock()
	panels := make([]*StatusPanel, 0, len(r.panels))
	for _, p := range r.panels {
		panels = append(panels, p)
	}
	r.mu.RUnlock()

	for _, p := range panels {
		p.Close()
	}
	for _, p := range panels {
		p.Wait()
	}
}

// Len returns the number of open panels.
func (r *PanelRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.panels)
}

func (r *PanelRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.panels, id)
}
