package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
	"github.com/ericfisherdev/checkpanel/internal/domain/port/driven"
)

// PanelDeps carries the collaborators a StatusPanel dispatches to.
// OnChange and OnClose are optional.
type PanelDeps struct {
	Status   driven.StatusSource
	Enricher driven.CheckEnricher
	Rerunner driven.CheckSuiteRerunner
	Opener   driven.URLOpener

	// OnChange receives the new view after every visible state change.
	// It is never called while the panel holds its lock, but it may run on a
	// subscription delivery, so it must not call Activate or Teardown inline.
	OnChange func(PanelView)
	// OnClose runs once, after the panel has been torn down by Close.
	OnClose func()
}

// PanelView is a read-only copy of a panel's visible state.
type PanelView struct {
	Repository       model.Repository
	BranchName       string
	PRNumber         int
	Ref              string
	Summary          string
	Checks           []model.CheckResult
	CIStatus         model.CIStatus
	LoadingJobLogs   bool
	LoadingWorkflows bool
	EnrichmentFailed bool
	Active           bool
}

// panelIdentity is what decides whether an activation is a change.
type panelIdentity struct {
	repo model.Repository
	ref  string
}

// StatusPanel tracks the CI status of one pull request while it is active.
// It snapshots the status store, holds exactly one subscription, and runs a
// two-phase enrichment (job URLs, then parsed logs) for every status it sees.
//
// Each activation and each delivered status starts a new generation. An
// enrichment result is applied only if its generation is still current, so a
// slow pass can never overwrite the result of a newer one.
type StatusPanel struct {
	deps PanelDeps

	// lifecycle serializes Activate and Teardown. It may be held while
	// disposing a subscription; mu never is.
	lifecycle sync.Mutex

	mu         sync.Mutex
	identity   panelIdentity
	branchName string
	prNumber   int
	active     bool
	generation uint64
	cancel     context.CancelFunc
	sub        driven.Subscription

	checks           []model.CheckResult
	loadingJobLogs   bool
	loadingWorkflows bool
	enrichmentFailed bool
	version          uint64

	notifyMu     sync.Mutex
	lastNotified uint64

	// pending counts enrichment passes that have not returned; idle is
	// signaled on mu when it drops to zero.
	pending int
	idle    *sync.Cond

	closeOnce sync.Once
}

// NewStatusPanel creates an inactive panel. Call Activate to start tracking.
func NewStatusPanel(deps PanelDeps) *StatusPanel {
	p := &StatusPanel{
		deps:             deps,
		loadingJobLogs:   true,
		loadingWorkflows: true,
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Activate starts tracking the pull request's head ref in repo. Calling it
// again with the same repository and PR number is a no-op apart from updating
// the branch name; any other identity replaces the subscription and restarts
// enrichment from a fresh snapshot.
func (p *StatusPanel) Activate(repo model.Repository, branchName string, prNumber int) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	id := panelIdentity{repo: repo, ref: model.PullRequestRef(prNumber)}

	p.mu.Lock()
	if p.active && p.identity == id {
		p.branchName = branchName
		p.mu.Unlock()
		return
	}
	old := p.sub
	p.sub = nil
	p.identity = id
	p.branchName = branchName
	p.prNumber = prNumber
	p.active = true
	p.mu.Unlock()

	if old != nil {
		old.Dispose()
	}

	slog.Debug("status panel activated", "repo", repo.FullName(), "ref", id.ref)

	p.startPass(id, p.deps.Status.GetCachedStatus(repo, id.ref))

	sub := p.deps.Status.Subscribe(repo, id.ref, func(status *model.CombinedStatus) {
		p.startPass(id, status)
	})

	p.mu.Lock()
	p.sub = sub
	p.mu.Unlock()
}

// Teardown disposes the subscription and marks the panel inactive. Results of
// enrichment calls still in flight are discarded when they complete.
func (p *StatusPanel) Teardown() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	sub := p.sub
	p.sub = nil
	ref := p.identity.ref
	p.mu.Unlock()

	if sub != nil {
		sub.Dispose()
	}

	slog.Debug("status panel torn down", "ref", ref)
}

// Close tears the panel down and runs the OnClose callback once.
func (p *StatusPanel) Close() {
	p.Teardown()
	p.closeOnce.Do(func() {
		if p.deps.OnClose != nil {
			p.deps.OnClose()
		}
	})
}

// Wait blocks until no enrichment pass is running. Passes started by
// deliveries that arrive while waiting are waited for as well.
func (p *StatusPanel) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending > 0 {
		p.idle.Wait()
	}
}

// View returns a copy of the current visible state.
func (p *StatusPanel) View() PanelView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// Check returns the visible check with the given ID.
func (p *StatusPanel) Check(id int64) (model.CheckResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.checks {
		if c.ID == id {
			return c, true
		}
	}
	return model.CheckResult{}, false
}

// Rerun re-requests every distinct check suite behind the visible checks,
// once per suite, and returns the suite IDs in first-seen order. Checks
// without a suite are skipped. Failures are logged, not returned.
func (p *StatusPanel) Rerun(ctx context.Context) []int64 {
	p.mu.Lock()
	checks := p.checks
	repo := p.identity.repo
	p.mu.Unlock()

	seen := make(map[int64]bool)
	var suiteIDs []int64
	for _, c := range checks {
		if c.CheckSuiteID == nil || seen[*c.CheckSuiteID] {
			continue
		}
		seen[*c.CheckSuiteID] = true
		suiteIDs = append(suiteIDs, *c.CheckSuiteID)
	}

	for _, id := range suiteIDs {
		if err := p.deps.Rerunner.RerequestCheckSuite(ctx, repo.FullName(), id); err != nil {
			slog.Error("rerequest check suite failed", "repo", repo.FullName(), "check_suite", id, "error", err)
		}
	}

	return suiteIDs
}

// OpenOnProvider opens the check's page, falling back to the pull request
// page. It reports false, and does nothing, when neither URL resolves.
func (p *StatusPanel) OpenOnProvider(c model.CheckResult) bool {
	url := c.HTMLURL
	if url == "" {
		p.mu.Lock()
		url = p.identity.repo.PullRequestURL(p.prNumber)
		p.mu.Unlock()
	}
	if url == "" {
		return false
	}

	if err := p.deps.Opener.OpenURL(url); err != nil {
		slog.Warn("open url failed", "url", url, "error", err)
	}
	return true
}

// startPass begins a new generation from status. An empty status settles the
// panel immediately; otherwise enrichment continues on its own goroutine.
func (p *StatusPanel) startPass(id panelIdentity, status *model.CombinedStatus) {
	p.mu.Lock()
	if !p.active || p.identity != id {
		p.mu.Unlock()
		return
	}

	p.generation++
	gen := p.generation
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	var checks []model.CheckResult
	if status != nil {
		checks = model.CloneChecks(status.Checks)
	}

	p.checks = checks
	p.enrichmentFailed = false

	if len(checks) == 0 {
		p.loadingJobLogs = false
		p.loadingWorkflows = false
		view, version := p.bumpLocked()
		p.mu.Unlock()
		p.notify(view, version)
		return
	}

	p.loadingJobLogs = true
	p.loadingWorkflows = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	branch := p.branchName
	view, version := p.bumpLocked()
	p.pending++
	p.mu.Unlock()

	p.notify(view, version)

	go p.enrich(ctx, gen, id, branch, checks)
}

// enrich runs the jobs/URLs phase followed by the log-parsing phase.
func (p *StatusPanel) enrich(ctx context.Context, gen uint64, id panelIdentity, branch string, checks []model.CheckResult) {
	defer p.passDone()

	enriched, err := p.deps.Enricher.EnrichWithJobURLs(ctx, id.repo, id.ref, branch, checks)
	if err != nil {
		p.fail(gen, id, "job urls", err)
		return
	}

	applied := p.apply(gen, func() {
		p.checks = model.CloneChecks(enriched)
		p.loadingWorkflows = false
	})
	if !applied {
		return
	}

	parsed, err := p.deps.Enricher.FetchAndParseWorkflowLogs(ctx, id.repo, id.ref, enriched)
	if err != nil {
		p.fail(gen, id, "workflow logs", err)
		return
	}

	p.apply(gen, func() {
		p.checks = model.CloneChecks(parsed)
		p.loadingJobLogs = false
	})
}

func (p *StatusPanel) passDone() {
	p.mu.Lock()
	p.pending--
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

// apply runs mutate under the lock if gen is still current.
func (p *StatusPanel) apply(gen uint64, mutate func()) bool {
	p.mu.Lock()
	if !p.active || gen != p.generation {
		p.mu.Unlock()
		return false
	}
	mutate()
	view, version := p.bumpLocked()
	p.mu.Unlock()

	p.notify(view, version)
	return true
}

// fail records a failed phase. Loading flags keep their last value.
func (p *StatusPanel) fail(gen uint64, id panelIdentity, phase string, err error) {
	if errors.Is(err, context.Canceled) {
		slog.Debug("enrichment canceled", "repo", id.repo.FullName(), "ref", id.ref, "phase", phase)
		return
	}

	applied := p.apply(gen, func() {
		p.enrichmentFailed = true
	})
	if applied {
		slog.Error("enrichment failed", "repo", id.repo.FullName(), "ref", id.ref, "phase", phase, "error", err)
	}
}

func (p *StatusPanel) bumpLocked() (PanelView, uint64) {
	p.version++
	return p.viewLocked(), p.version
}

func (p *StatusPanel) viewLocked() PanelView {
	checks := model.CloneChecks(p.checks)
	return PanelView{
		Repository:       p.identity.repo,
		BranchName:       p.branchName,
		PRNumber:         p.prNumber,
		Ref:              p.identity.ref,
		Summary:          Summarize(checks),
		Checks:           checks,
		CIStatus:         model.ComputeCIStatus(checks),
		LoadingJobLogs:   p.loadingJobLogs,
		LoadingWorkflows: p.loadingWorkflows,
		EnrichmentFailed: p.enrichmentFailed,
		Active:           p.active,
	}
}

// notify hands view to OnChange unless a newer view was already delivered.
func (p *StatusPanel) notify(view PanelView, version uint64) {
	if p.deps.OnChange == nil {
		return
	}

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	if version <= p.lastNotified {
		return
	}
	p.lastNotified = version
	p.deps.OnChange(view)
}
