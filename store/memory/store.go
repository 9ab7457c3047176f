// Package memory provides an in-memory Store implementation for unit testing
// and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/cascade"
	"github.com/xraph/cascade/dispatch"
	"github.com/xraph/cascade/dlq"
	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
	"github.com/xraph/cascade/ledger"
	"github.com/xraph/cascade/rule"
	cascadestore "github.com/xraph/cascade/store"
)

// compile-time interface check.
var _ cascadestore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	rules      map[string]*rule.Rule     // keyed by ID string
	processed  map[string]ledgerEntry    // keyed by ledger.Key
	jobs       map[string]*dispatch.Job  // keyed by ID string
	locked     map[string]bool           // simulates SKIP LOCKED
	dlqEntries map[string]*dlq.Entry     // keyed by ID string

	closed bool
}

type ledgerEntry struct {
	rec       *ledger.Record
	expiresAt time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		rules:      make(map[string]*rule.Rule),
		processed:  make(map[string]ledgerEntry),
		jobs:       make(map[string]*dispatch.Job),
		locked:     make(map[string]bool),
		dlqEntries: make(map[string]*dlq.Entry),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return cascade.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// rule.Store
// ──────────────────────────────────────────────────

// CreateRule persists a new rule.
func (s *Store) CreateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[r.ID.String()] = r
	return nil
}

// GetRule returns a copy of the rule by ID.
func (s *Store) GetRule(_ context.Context, ruleID id.ID) (*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[ruleID.String()]
	if !ok {
		return nil, cascade.ErrRuleNotFound
	}
	return copyRule(r), nil
}

// UpdateRule replaces the stored rule document.
func (s *Store) UpdateRule(_ context.Context, r *rule.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[r.ID.String()]; !ok {
		return cascade.ErrRuleNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	s.rules[r.ID.String()] = copyRule(r)
	return nil
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(_ context.Context, ruleID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[ruleID.String()]; !ok {
		return cascade.ErrRuleNotFound
	}
	delete(s.rules, ruleID.String())
	return nil
}

// FindActiveRules returns active rules for (tenant, event type) in dispatch order.
func (s *Store) FindActiveRules(_ context.Context, tenantID, eventType string) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*rule.Rule
	for _, r := range s.rules {
		if r.TenantID != tenantID || r.EventType != eventType || !r.Active {
			continue
		}
		result = append(result, copyRule(r))
	}

	rule.SortForDispatch(result)
	return result, nil
}

// ListRules returns a tenant's rules, optionally filtered.
func (s *Store) ListRules(_ context.Context, tenantID string, opts rule.ListOpts) ([]*rule.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*rule.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.TenantID != tenantID {
			continue
		}
		if opts.EventType != "" && r.EventType != opts.EventType {
			continue
		}
		if opts.Active != nil && r.Active != *opts.Active {
			continue
		}
		result = append(result, copyRule(r))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// copyRule returns a shallow copy with its own history slice so callers can
// mutate without racing the stored document.
func copyRule(r *rule.Rule) *rule.Rule {
	cp := *r
	cp.History = append([]rule.ExecutionRecord(nil), r.History...)
	return &cp
}

// ──────────────────────────────────────────────────
// ledger.Store
// ──────────────────────────────────────────────────

// MarkProcessed records the triple if no unexpired record exists.
func (s *Store) MarkProcessed(_ context.Context, rec *ledger.Record, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledger.Key(rec.TenantID, rec.EventType, rec.EntityID)
	now := time.Now()

	if existing, ok := s.processed[key]; ok && existing.expiresAt.After(now) {
		return false, nil
	}

	if ttl <= 0 {
		ttl = ledger.DefaultTTL
	}
	s.processed[key] = ledgerEntry{rec: rec, expiresAt: now.Add(ttl)}
	return true, nil
}

// GetProcessed returns the unexpired record for a triple, or nil.
func (s *Store) GetProcessed(_ context.Context, tenantID, eventType, entityID string) (*ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.processed[ledger.Key(tenantID, eventType, entityID)]
	if !ok || !e.expiresAt.After(time.Now()) {
		return nil, nil
	}
	return e.rec, nil
}

// ──────────────────────────────────────────────────
// dispatch.Store
// ──────────────────────────────────────────────────

// EnqueueJob persists a pending job.
func (s *Store) EnqueueJob(_ context.Context, j *dispatch.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[j.ID.String()] = j
	return nil
}

// copyJob returns a shallow copy of the job.
func copyJob(j *dispatch.Job) *dispatch.Job {
	cp := *j
	return &cp
}

// DequeueJobs claims pending jobs whose NextAttemptAt has passed.
// Returns copies so callers can mutate without holding a lock.
func (s *Store) DequeueJobs(_ context.Context, limit int) ([]*dispatch.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	candidates := make([]*dispatch.Job, 0, len(s.jobs))

	for _, j := range s.jobs {
		if j.State != dispatch.StatePending {
			continue
		}
		if j.NextAttemptAt.After(now) {
			continue
		}
		if s.locked[j.ID.String()] {
			continue
		}
		candidates = append(candidates, j)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].NextAttemptAt.Before(candidates[j].NextAttemptAt)
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	result := make([]*dispatch.Job, 0, len(candidates))
	for _, j := range candidates {
		s.locked[j.ID.String()] = true
		result = append(result, copyJob(j))
	}

	return result, nil
}

// UpdateJob modifies a job and releases its claim.
func (s *Store) UpdateJob(_ context.Context, j *dispatch.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[j.ID.String()]; !ok {
		return cascade.ErrJobNotFound
	}
	j.UpdatedAt = time.Now().UTC()
	s.jobs[j.ID.String()] = j
	delete(s.locked, j.ID.String())
	return nil
}

// GetJob returns a copy of the job by ID.
func (s *Store) GetJob(_ context.Context, jobID id.ID) (*dispatch.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[jobID.String()]
	if !ok {
		return nil, cascade.ErrJobNotFound
	}
	return copyJob(j), nil
}

// ListJobs returns jobs matching the given options, newest first.
func (s *Store) ListJobs(_ context.Context, opts dispatch.JobListOpts) ([]*dispatch.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*dispatch.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if opts.State != nil && j.State != *opts.State {
			continue
		}
		result = append(result, copyJob(j))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// CountPendingJobs returns the number of jobs awaiting dispatch.
func (s *Store) CountPendingJobs(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, j := range s.jobs {
		if j.State == dispatch.StatePending {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// dlq.Store
// ──────────────────────────────────────────────────

// Push moves a permanently failed job into the DLQ.
func (s *Store) Push(_ context.Context, entry *dlq.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dlqEntries[entry.ID.String()] = entry
	return nil
}

// ListDLQ returns DLQ entries, optionally filtered.
func (s *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*dlq.Entry, 0, len(s.dlqEntries))
	for _, e := range s.dlqEntries {
		if opts.TenantID != "" && e.TenantID != opts.TenantID {
			continue
		}
		if opts.EventType != "" && e.EventType != opts.EventType {
			continue
		}
		if opts.From != nil && e.FailedAt.Before(*opts.From) {
			continue
		}
		if opts.To != nil && e.FailedAt.After(*opts.To) {
			continue
		}
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FailedAt.After(result[j].FailedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// GetDLQ returns a DLQ entry by ID.
func (s *Store) GetDLQ(_ context.Context, dlqID id.ID) (*dlq.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.dlqEntries[dlqID.String()]
	if !ok {
		return nil, cascade.ErrDLQNotFound
	}
	return e, nil
}

// Replay stamps the entry and re-enqueues its event as a fresh pending job.
func (s *Store) Replay(_ context.Context, dlqID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.dlqEntries[dlqID.String()]
	if !ok {
		return cascade.ErrDLQNotFound
	}

	now := time.Now().UTC()
	e.ReplayedAt = &now
	j := s.replayJobFor(e, now)
	s.jobs[j.ID.String()] = j
	return nil
}

// ReplayBulk replays all unreplayed DLQ entries in a time window.
func (s *Store) ReplayBulk(_ context.Context, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	var count int64

	for _, e := range s.dlqEntries {
		if e.FailedAt.Before(from) || e.FailedAt.After(to) {
			continue
		}
		if e.ReplayedAt != nil {
			continue
		}

		e.ReplayedAt = &now
		j := s.replayJobFor(e, now)
		s.jobs[j.ID.String()] = j
		count++
	}
	return count, nil
}

// Purge deletes DLQ entries older than a threshold.
func (s *Store) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for k, e := range s.dlqEntries {
		if e.CreatedAt.Before(before) {
			delete(s.dlqEntries, k)
			count++
		}
	}
	return count, nil
}

// CountDLQ returns the total number of DLQ entries.
func (s *Store) CountDLQ(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.dlqEntries)), nil
}

// replayJobFor rebuilds a pending job from a DLQ entry's preserved event.
func (s *Store) replayJobFor(e *dlq.Entry, now time.Time) *dispatch.Job {
	return &dispatch.Job{
		Entity:    entity.New(),
		ID:        id.NewJobID(),
		EventID:   e.EventID,
		TenantID:  e.TenantID,
		EventType: e.EventType,
		Event: &event.Event{
			ID:         e.EventID,
			Type:       e.EventType,
			TenantID:   e.TenantID,
			EntityID:   e.EntityID,
			Payload:    e.Payload,
			OccurredAt: e.FailedAt,
		},
		State:         dispatch.StatePending,
		MaxAttempts:   3,
		NextAttemptAt: now,
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
