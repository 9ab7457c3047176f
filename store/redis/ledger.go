package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/cascade/ledger"
)

// The ledger uses SET NX with a TTL: the claim and the duplicate check are a
// single atomic Redis operation, so two workers racing on the same triple
// cannot both own it.

func (s *Store) MarkProcessed(ctx context.Context, rec *ledger.Record, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = ledger.DefaultTTL
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("cascade/redis: marshal ledger record: %w", err)
	}

	key := prefixLedger + ledger.Key(rec.TenantID, rec.EventType, rec.EntityID)
	ok, err := s.rdb.SetNX(ctx, key, raw, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cascade/redis: mark processed: %w", err)
	}
	return ok, nil
}

func (s *Store) GetProcessed(ctx context.Context, tenantID, eventType, entityID string) (*ledger.Record, error) {
	key := prefixLedger + ledger.Key(tenantID, eventType, entityID)
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if isRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cascade/redis: get processed: %w", err)
	}

	var rec ledger.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("cascade/redis: unmarshal ledger record: %w", err)
	}
	return &rec, nil
}
