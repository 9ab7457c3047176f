package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/cascade"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/rule"
)

// Rules are stored as their domain JSON document under cascade:rule:<id>.
// The document round-trips through encoding/json, so no separate model type
// is needed the way fixed-column backends would require.

func (s *Store) CreateRule(ctx context.Context, r *rule.Rule) error {
	key := entityKey(prefixRule, r.ID.String())
	if err := s.setEntity(ctx, key, r); err != nil {
		return fmt.Errorf("cascade/redis: create rule: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zRuleTenant+r.TenantID, goredis.Z{Score: scoreFromTime(r.CreatedAt), Member: r.ID.String()})
	if r.Active {
		pipe.ZAdd(ctx, activeSetKey(r.TenantID, r.EventType), goredis.Z{Score: scoreFromTime(r.CreatedAt), Member: r.ID.String()})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cascade/redis: create rule indexes: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, ruleID id.ID) (*rule.Rule, error) {
	var r rule.Rule
	if err := s.getEntity(ctx, entityKey(prefixRule, ruleID.String()), &r); err != nil {
		if isNotFound(err) {
			return nil, cascade.ErrRuleNotFound
		}
		return nil, fmt.Errorf("cascade/redis: get rule: %w", err)
	}
	return &r, nil
}

func (s *Store) UpdateRule(ctx context.Context, r *rule.Rule) error {
	// The active index is keyed by (tenant, event type), both mutable, so the
	// old document decides which index entry to drop.
	old, err := s.GetRule(ctx, r.ID)
	if err != nil {
		return err
	}

	r.Touch()
	if err := s.setEntity(ctx, entityKey(prefixRule, r.ID.String()), r); err != nil {
		return fmt.Errorf("cascade/redis: update rule: %w", err)
	}

	pipe := s.rdb.Pipeline()
	if old.Active && (!r.Active || old.EventType != r.EventType || old.TenantID != r.TenantID) {
		pipe.ZRem(ctx, activeSetKey(old.TenantID, old.EventType), r.ID.String())
	}
	if r.Active {
		pipe.ZAdd(ctx, activeSetKey(r.TenantID, r.EventType), goredis.Z{Score: scoreFromTime(r.CreatedAt), Member: r.ID.String()})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cascade/redis: update rule indexes: %w", err)
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, ruleID id.ID) error {
	r, err := s.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, entityKey(prefixRule, ruleID.String()))
	pipe.ZRem(ctx, zRuleTenant+r.TenantID, ruleID.String())
	pipe.ZRem(ctx, activeSetKey(r.TenantID, r.EventType), ruleID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cascade/redis: delete rule: %w", err)
	}
	return nil
}

func (s *Store) FindActiveRules(ctx context.Context, tenantID, eventType string) ([]*rule.Rule, error) {
	ids, err := s.rdb.ZRange(ctx, activeSetKey(tenantID, eventType), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cascade/redis: find active rules: %w", err)
	}

	result := make([]*rule.Rule, 0, len(ids))
	for _, ruleID := range ids {
		var r rule.Rule
		if err := s.getEntity(ctx, entityKey(prefixRule, ruleID), &r); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if !r.Active {
			continue
		}
		result = append(result, &r)
	}

	rule.SortForDispatch(result)
	return result, nil
}

func (s *Store) ListRules(ctx context.Context, tenantID string, opts rule.ListOpts) ([]*rule.Rule, error) {
	ids, err := s.rdb.ZRange(ctx, zRuleTenant+tenantID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cascade/redis: list rules: %w", err)
	}

	result := make([]*rule.Rule, 0, len(ids))
	for _, ruleID := range ids {
		var r rule.Rule
		if err := s.getEntity(ctx, entityKey(prefixRule, ruleID), &r); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.EventType != "" && r.EventType != opts.EventType {
			continue
		}
		if opts.Active != nil && r.Active != *opts.Active {
			continue
		}
		result = append(result, &r)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}
