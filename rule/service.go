package rule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
)

// Service is the cached front for rule persistence. Dispatch-path loads go
// through a per-(tenant, event type) cache with a short TTL; mutations write
// through and invalidate.
type Service struct {
	store     Store
	validator *Validator
	cacheTTL  time.Duration

	mu       sync.RWMutex
	cache    map[string][]*Rule
	loadedAt map[string]time.Time

	logger *slog.Logger
}

// Config configures the rule service.
type Config struct {
	// CacheTTL bounds staleness of the dispatch-path rule cache.
	// Zero disables caching.
	CacheTTL time.Duration
}

// NewService creates a rule service backed by the given store.
func NewService(store Store, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		validator: NewValidator(),
		cacheTTL:  cfg.CacheTTL,
		cache:     make(map[string][]*Rule),
		loadedAt:  make(map[string]time.Time),
		logger:    logger,
	}
}

// Input is the caller-supplied definition for creating a rule.
type Input struct {
	TenantID   string
	Name       string
	EventType  string
	Conditions []Condition
	Actions    []Action
	Priority   int
	Limits     Limits
}

// Create validates and persists a new rule. New rules start active with fresh
// throttle windows.
func (s *Service) Create(ctx context.Context, in Input) (*Rule, error) {
	r := &Rule{
		Entity:     entity.New(),
		ID:         id.NewRuleID(),
		TenantID:   in.TenantID,
		Name:       in.Name,
		EventType:  in.EventType,
		Conditions: in.Conditions,
		Actions:    in.Actions,
		Active:     true,
		Priority:   in.Priority,
		Limits:     in.Limits,
	}
	now := time.Now().UTC()
	r.Throttle.HourResetAt = now
	r.Throttle.DayResetAt = now

	if err := s.validator.ValidateRule(r); err != nil {
		return nil, err
	}

	if err := s.store.CreateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("cascade: create rule: %w", err)
	}

	s.invalidate(r.TenantID, r.EventType)
	return r, nil
}

// Update validates and persists changes to a rule's definition fields.
func (s *Service) Update(ctx context.Context, r *Rule) error {
	if err := s.validator.ValidateRule(r); err != nil {
		return err
	}

	r.Touch()
	if err := s.store.UpdateRule(ctx, r); err != nil {
		return fmt.Errorf("cascade: update rule: %w", err)
	}

	s.invalidate(r.TenantID, r.EventType)
	return nil
}

// SetActive toggles a rule active or inactive.
func (s *Service) SetActive(ctx context.Context, ruleID id.ID, active bool) error {
	r, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}

	r.Active = active
	r.Touch()
	if err := s.store.UpdateRule(ctx, r); err != nil {
		return fmt.Errorf("cascade: set rule active: %w", err)
	}

	s.invalidate(r.TenantID, r.EventType)
	return nil
}

// Get returns a rule by ID, bypassing the cache.
func (s *Service) Get(ctx context.Context, ruleID id.ID) (*Rule, error) {
	return s.store.GetRule(ctx, ruleID)
}

// List returns a tenant's rules.
func (s *Service) List(ctx context.Context, tenantID string, opts ListOpts) ([]*Rule, error) {
	return s.store.ListRules(ctx, tenantID, opts)
}

// Delete removes a rule and drops it from the cache. In-flight executions
// complete against the snapshot they already loaded.
func (s *Service) Delete(ctx context.Context, ruleID id.ID) error {
	r, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteRule(ctx, ruleID); err != nil {
		return fmt.Errorf("cascade: delete rule: %w", err)
	}

	s.invalidate(r.TenantID, r.EventType)
	return nil
}

// ActiveForEvent returns the active rules for (tenant, event type) ordered by
// priority descending then creation ascending, using the cache when fresh.
func (s *Service) ActiveForEvent(ctx context.Context, tenantID, eventType string) ([]*Rule, error) {
	key := cacheKey(tenantID, eventType)

	s.mu.RLock()
	if rules, ok := s.cache[key]; ok && !s.expired(key) {
		s.mu.RUnlock()
		return rules, nil
	}
	s.mu.RUnlock()

	rules, err := s.store.FindActiveRules(ctx, tenantID, eventType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = rules
	s.loadedAt[key] = time.Now()
	s.mu.Unlock()

	return rules, nil
}

// InvalidateCache clears the whole rule cache, forcing fresh reads.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.cache = make(map[string][]*Rule)
	s.loadedAt = make(map[string]time.Time)
	s.mu.Unlock()
}

func (s *Service) invalidate(tenantID, eventType string) {
	s.mu.Lock()
	delete(s.cache, cacheKey(tenantID, eventType))
	s.mu.Unlock()
}

// expired reports whether a cache key is past its TTL. Caller holds at least RLock.
func (s *Service) expired(key string) bool {
	if s.cacheTTL == 0 {
		return true // caching disabled
	}
	return time.Since(s.loadedAt[key]) > s.cacheTTL
}

func cacheKey(tenantID, eventType string) string {
	return tenantID + "\x00" + eventType
}
