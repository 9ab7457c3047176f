package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/cascade"
	"github.com/xraph/cascade/dispatch"
	"github.com/xraph/cascade/dlq"
	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
)

func (s *Store) Push(ctx context.Context, e *dlq.Entry) error {
	key := entityKey(prefixDLQ, e.ID.String())
	if err := s.setEntity(ctx, key, e); err != nil {
		return fmt.Errorf("cascade/redis: push dlq: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zDLQAll, goredis.Z{Score: scoreFromTime(e.FailedAt), Member: e.ID.String()})
	if e.TenantID != "" {
		pipe.ZAdd(ctx, zDLQTenant+e.TenantID, goredis.Z{Score: scoreFromTime(e.FailedAt), Member: e.ID.String()})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cascade/redis: push dlq indexes: %w", err)
	}
	return nil
}

func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	zKey := zDLQAll
	if opts.TenantID != "" {
		zKey = zDLQTenant + opts.TenantID
	}

	minScore := math.Inf(-1)
	maxScore := math.Inf(1)
	if opts.From != nil {
		minScore = scoreFromTime(*opts.From)
	}
	if opts.To != nil {
		maxScore = scoreFromTime(*opts.To)
	}

	ids, err := s.zRangeByScoreIDs(ctx, zKey, minScore, maxScore)
	if err != nil {
		return nil, fmt.Errorf("cascade/redis: list dlq: %w", err)
	}

	result := make([]*dlq.Entry, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // reverse for DESC order
		var e dlq.Entry
		if err := s.getEntity(ctx, entityKey(prefixDLQ, ids[i]), &e); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.EventType != "" && e.EventType != opts.EventType {
			continue
		}
		result = append(result, &e)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) GetDLQ(ctx context.Context, dlqID id.ID) (*dlq.Entry, error) {
	var e dlq.Entry
	if err := s.getEntity(ctx, entityKey(prefixDLQ, dlqID.String()), &e); err != nil {
		if isNotFound(err) {
			return nil, cascade.ErrDLQNotFound
		}
		return nil, fmt.Errorf("cascade/redis: get dlq: %w", err)
	}
	return &e, nil
}

func (s *Store) Replay(ctx context.Context, dlqID id.ID) error {
	e, err := s.GetDLQ(ctx, dlqID)
	if err != nil {
		return err
	}

	if err := s.EnqueueJob(ctx, replayJob(e)); err != nil {
		return err
	}

	replayed := now()
	e.ReplayedAt = &replayed
	return s.setEntity(ctx, entityKey(prefixDLQ, e.ID.String()), e)
}

func (s *Store) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	ids, err := s.zRangeByScoreIDs(ctx, zDLQAll, scoreFromTime(from), scoreFromTime(to))
	if err != nil {
		return 0, fmt.Errorf("cascade/redis: replay bulk list: %w", err)
	}

	var count int64
	for _, entryID := range ids {
		var e dlq.Entry
		if err := s.getEntity(ctx, entityKey(prefixDLQ, entryID), &e); err != nil {
			if isNotFound(err) {
				continue
			}
			return count, err
		}
		if e.ReplayedAt != nil {
			continue
		}

		if err := s.EnqueueJob(ctx, replayJob(&e)); err != nil {
			return count, err
		}

		replayed := now()
		e.ReplayedAt = &replayed
		if err := s.setEntity(ctx, entityKey(prefixDLQ, entryID), &e); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	ids, err := s.zRangeByScoreIDs(ctx, zDLQAll, math.Inf(-1), scoreFromTime(before))
	if err != nil {
		return 0, fmt.Errorf("cascade/redis: purge list: %w", err)
	}

	var count int64
	for _, entryID := range ids {
		var e dlq.Entry
		if err := s.getEntity(ctx, entityKey(prefixDLQ, entryID), &e); err != nil {
			if isNotFound(err) {
				continue
			}
			return count, err
		}

		pipe := s.rdb.Pipeline()
		pipe.Del(ctx, entityKey(prefixDLQ, entryID))
		pipe.ZRem(ctx, zDLQAll, entryID)
		if e.TenantID != "" {
			pipe.ZRem(ctx, zDLQTenant+e.TenantID, entryID)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	count, err := s.rdb.ZCard(ctx, zDLQAll).Result()
	if err != nil {
		return 0, fmt.Errorf("cascade/redis: count dlq: %w", err)
	}
	return count, nil
}

// replayJob rebuilds a pending job from a DLQ entry's preserved event.
func replayJob(e *dlq.Entry) *dispatch.Job {
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
		NextAttemptAt: now(),
	}
}
