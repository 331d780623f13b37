package application

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
	"github.com/ericfisherdev/checkpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.StatusSource = (*CommitStatusStore)(nil)

// statusKey identifies a ref within a repository.
type statusKey struct {
	repoFullName string
	ref          string
}

// refreshRequest represents a manual refresh trigger.
type refreshRequest struct {
	repo model.Repository
	ref  string
	done chan error
}

// watchedRef is a ref with at least one live subscription.
type watchedRef struct {
	repo     model.Repository
	ref      string
	subs     map[uint64]*subscription
	schedule refSchedule
	loaded   bool // persisted snapshot already consulted
}

// CommitStatusStore polls GitHub for the checks of every subscribed ref,
// caches the latest CombinedStatus per ref, persists it through a CheckStore
// and notifies subscribers when the check list changes. Refs are polled on an
// adaptive schedule: faster while checks are running.
type CommitStatusStore struct {
	ghClient   driven.GitHubClient
	checkStore driven.CheckStore
	tick       time.Duration

	mu        sync.Mutex
	cache     map[statusKey]*model.CombinedStatus
	watched   map[statusKey]*watchedRef
	nextSubID uint64

	wakeCh    chan struct{}
	refreshCh chan refreshRequest
}

// NewCommitStatusStore creates a store that checks for due refs every tick.
// checkStore may be nil, in which case snapshots are kept in memory only.
func NewCommitStatusStore(ghClient driven.GitHubClient, checkStore driven.CheckStore, tick time.Duration) *CommitStatusStore {
	return &CommitStatusStore{
		ghClient:   ghClient,
		checkStore: checkStore,
		tick:       tick,
		cache:      make(map[statusKey]*model.CombinedStatus),
		watched:    make(map[statusKey]*watchedRef),
		wakeCh:     make(chan struct{}, 1),
		refreshCh:  make(chan refreshRequest),
	}
}

// GetCachedStatus returns the most recent status for the ref without
// touching the network, or nil if the ref has never been fetched.
func (s *CommitStatusStore) GetCachedStatus(repo model.Repository, ref string) *model.CombinedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache[statusKey{repoFullName: repo.FullName(), ref: ref}]
}

// Subscribe registers callback for updates of the ref and schedules an
// immediate poll. Callbacks run on the store's polling goroutine and must not
// dispose their own subscription inline.
func (s *CommitStatusStore) Subscribe(repo model.Repository, ref string, callback func(*model.CombinedStatus)) driven.Subscription {
	key := statusKey{repoFullName: repo.FullName(), ref: ref}

	s.mu.Lock()
	w, ok := s.watched[key]
	if !ok {
		w = &watchedRef{
			repo: repo,
			ref:  ref,
			subs: make(map[uint64]*subscription),
		}
		s.watched[key] = w
	}
	s.nextSubID++
	sub := &subscription{
		store:    s,
		key:      key,
		id:       s.nextSubID,
		callback: callback,
	}
	w.subs[sub.id] = sub
	w.schedule.nextPollAt = time.Time{}
	s.mu.Unlock()

	slog.Debug("status subscription added", "repo", key.repoFullName, "ref", ref, "subscription", sub.id)

	s.wake()
	return sub
}

// Schedule returns the adaptive polling schedule of a watched ref.
func (s *CommitStatusStore) Schedule(repo model.Repository, ref string) (ScheduleInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watched[statusKey{repoFullName: repo.FullName(), ref: ref}]
	if !ok {
		return ScheduleInfo{}, false
	}
	return ScheduleInfo{
		Tier:       w.schedule.tier,
		NextPollAt: w.schedule.nextPollAt,
		LastPolled: w.schedule.lastPolled,
	}, true
}

// Start runs the polling loop until the context is canceled. It polls due
// refs on every tick, immediately after a new subscription, and on manual
// refresh requests.
func (s *CommitStatusStore) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("commit status store stopped")
			return
		case <-ticker.C:
			s.pollDue(ctx)
		case <-s.wakeCh:
			s.pollDue(ctx)
		case req := <-s.refreshCh:
			req.done <- s.pollRef(ctx, req.repo, req.ref)
		}
	}
}

// Refresh fetches the ref now, bypassing its schedule. It blocks until the
// refresh completes or the context is canceled.
func (s *CommitStatusStore) Refresh(ctx context.Context, repo model.Repository, ref string) error {
	done := make(chan error, 1)
	req := refreshRequest{repo: repo, ref: ref, done: done}

	select {
	case s.refreshCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CommitStatusStore) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// pollDue polls every watched ref whose next poll time has passed.
func (s *CommitStatusStore) pollDue(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var due []*watchedRef
	for _, w := range s.watched {
		if !w.schedule.nextPollAt.After(now) {
			due = append(due, w)
		}
	}
	s.mu.Unlock()

	for _, w := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.pollRef(ctx, w.repo, w.ref); err != nil {
			slog.Error("status poll failed", "repo", w.repo.FullName(), "ref", w.ref, "error", err)
		}
	}
}

// pollRef fetches check runs and commit statuses for one ref, updates the
// cache, persists the snapshot and notifies subscribers on change. The first
// poll of a watched ref delivers the persisted snapshot before hitting GitHub.
func (s *CommitStatusStore) pollRef(ctx context.Context, repo model.Repository, ref string) error {
	key := statusKey{repoFullName: repo.FullName(), ref: ref}

	s.loadPersisted(ctx, key)

	runs, err := s.ghClient.FetchCheckRuns(ctx, key.repoFullName, ref)
	if err != nil {
		s.reschedule(key, TierActive)
		return err
	}

	statuses, err := s.ghClient.FetchCommitStatuses(ctx, key.repoFullName, ref)
	if err != nil {
		slog.Error("fetch commit statuses failed", "repo", key.repoFullName, "ref", ref, "error", err)
		// Continue with check runs only.
	}

	checks := make([]model.CheckResult, 0, len(runs)+len(statuses))
	checks = append(checks, runs...)
	checks = append(checks, statuses...)
	sortChecks(checks)

	status := &model.CombinedStatus{
		Ref:       ref,
		Checks:    checks,
		FetchedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	prev := s.cache[key]
	changed := prev == nil || !sameChecks(prev.Checks, checks)
	s.cache[key] = status
	subs := s.subscribersLocked(key)
	s.mu.Unlock()

	tier := classifyChecks(checks)
	s.reschedule(key, tier)

	if s.checkStore != nil {
		if err := s.checkStore.ReplaceStatus(ctx, key.repoFullName, *status); err != nil {
			slog.Error("persist status failed", "repo", key.repoFullName, "ref", ref, "error", err)
		}
	}

	slog.Debug("status polled",
		"repo", key.repoFullName,
		"ref", ref,
		"checks", len(checks),
		"changed", changed,
		"tier", tier.String(),
		"subscribers", len(subs),
	)

	if changed {
		for _, sub := range subs {
			sub.deliver(status)
		}
	}

	return nil
}

// loadPersisted seeds the cache from the CheckStore the first time a watched
// ref is polled, and delivers the snapshot to subscribers.
func (s *CommitStatusStore) loadPersisted(ctx context.Context, key statusKey) {
	if s.checkStore == nil {
		return
	}

	s.mu.Lock()
	w, ok := s.watched[key]
	if !ok || w.loaded {
		s.mu.Unlock()
		return
	}
	w.loaded = true
	_, cached := s.cache[key]
	s.mu.Unlock()

	if cached {
		return
	}

	stored, err := s.checkStore.GetStatus(ctx, key.repoFullName, key.ref)
	if err != nil {
		slog.Error("load persisted status failed", "repo", key.repoFullName, "ref", key.ref, "error", err)
		return
	}
	if stored == nil {
		return
	}

	s.mu.Lock()
	if _, cached := s.cache[key]; cached {
		s.mu.Unlock()
		return
	}
	s.cache[key] = stored
	subs := s.subscribersLocked(key)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(stored)
	}
}

func (s *CommitStatusStore) reschedule(key statusKey, tier ActivityTier) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.watched[key]; ok {
		w.schedule = refSchedule{
			tier:       tier,
			nextPollAt: now.Add(tierInterval(tier)),
			lastPolled: now,
		}
	}
}

func (s *CommitStatusStore) subscribersLocked(key statusKey) []*subscription {
	w, ok := s.watched[key]
	if !ok {
		return nil
	}
	subs := make([]*subscription, 0, len(w.subs))
	for _, sub := range w.subs {
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}

func (s *CommitStatusStore) unsubscribe(key statusKey, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.watched[key]
	if !ok {
		return
	}
	delete(w.subs, id)
	if len(w.subs) == 0 {
		delete(s.watched, key)
	}
	slog.Debug("status subscription disposed", "repo", key.repoFullName, "ref", key.ref, "subscription", id)
}

// sortChecks orders checks by name, case-insensitively, keeping the API order
// for equal names.
func sortChecks(checks []model.CheckResult) {
	sort.SliceStable(checks, func(i, j int) bool {
		return strings.ToLower(checks[i].Name) < strings.ToLower(checks[j].Name)
	})
}

func sameChecks(a, b []model.CheckResult) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || reflect.DeepEqual(a, b)
}

// subscription is the CommitStatusStore's Subscription. Deliveries hold mu,
// so Dispose waits for an in-flight callback and no callback starts after it.
type subscription struct {
	store    *CommitStatusStore
	key      statusKey
	id       uint64
	callback func(*model.CombinedStatus)

	mu       sync.Mutex
	disposed bool
}

func (s *subscription) deliver(status *model.CombinedStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.callback(status)
}

// Dispose implements driven.Subscription.
func (s *subscription) Dispose() {
	s.mu.Lock()
	already := s.disposed
	s.disposed = true
	s.mu.Unlock()

	if !already {
		s.store.unsubscribe(s.key, s.id)
	}
}
