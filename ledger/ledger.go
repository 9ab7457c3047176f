// Package ledger records which logical events have already been processed so
// duplicate deliveries of the same (tenant, event type, entity) triple are
// suppressed within a retention window.
package ledger

import (
	"context"
	"time"
)

// DefaultTTL is how long a processed-event record suppresses duplicates.
// After expiry the same triple processes again.
const DefaultTTL = 7 * 24 * time.Hour

// Record is one processed-event entry.
type Record struct {
	TenantID    string    `json:"tenant_id"`
	EventType   string    `json:"event_type"`
	EntityID    string    `json:"entity_id"`
	EventID     string    `json:"event_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Key returns the unique dedup key for a triple.
func Key(tenantID, eventType, entityID string) string {
	return tenantID + ":" + eventType + ":" + entityID
}

// Store is the persistence contract for the idempotency ledger.
type Store interface {
	// MarkProcessed records the triple if no unexpired record exists, in one
	// atomic operation (write-then-process). It returns true when this call
	// created the record — the caller owns processing — and false when an
	// unexpired record already exists, meaning the event is a duplicate.
	MarkProcessed(ctx context.Context, rec *Record, ttl time.Duration) (bool, error)

	// GetProcessed returns the unexpired record for a triple, or nil.
	GetProcessed(ctx context.Context, tenantID, eventType, entityID string) (*Record, error)
}
