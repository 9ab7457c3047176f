// Package dlq retains dispatch jobs that exhausted their retry budget and
// supports inspecting, replaying and purging them.
package dlq

import (
	"time"

	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
)

// Entry represents a permanently failed dispatch job in the dead letter queue.
type Entry struct {
	entity.Entity

	// ID is the unique TypeID for this DLQ entry.
	ID id.ID `json:"id"`

	// JobID references the failed dispatch job.
	JobID id.ID `json:"job_id"`

	// EventID references the original trigger event.
	EventID id.ID `json:"event_id"`

	// EventType is the trigger event type for filtering.
	EventType string `json:"event_type"`

	// TenantID identifies the tenant that owns the event.
	TenantID string `json:"tenant_id"`

	// EntityID is the primary entity the event concerned, when known.
	EntityID string `json:"entity_id,omitempty"`

	// Payload is the event payload that failed to dispatch, preserved so the
	// entry can be replayed.
	Payload map[string]any `json:"payload"`

	// Error is the error message from the final attempt.
	Error string `json:"error"`

	// AttemptCount is the total number of attempts made.
	AttemptCount int `json:"attempt_count"`

	// ReplayedAt is set when the entry has been replayed.
	ReplayedAt *time.Time `json:"replayed_at,omitempty"`

	// FailedAt is when the job permanently failed.
	FailedAt time.Time `json:"failed_at"`
}

// ListOpts configures filtering and pagination for DLQ listing.
type ListOpts struct {
	Offset    int
	Limit     int
	TenantID  string
	EventType string
	From      *time.Time
	To        *time.Time
}
