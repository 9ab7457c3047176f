// Package event defines the trigger event passed through the automation engine.
package event

import (
	"time"

	"github.com/xraph/cascade/id"
)

// Well-known event type names. Tenant rules subscribe to these; producers may
// also define their own dot-separated names.
const (
	ApplicationStatusChanged = "application.status_changed"
	ApplicationStageChanged  = "application.stage_changed"
	ApplicationReceived      = "application.received"
	InterviewScheduled       = "interview.scheduled"
	InterviewCancelled       = "interview.cancelled"
	MessageReceived          = "message.received"
	JobDeadlineApproaching   = "job.deadline_approaching"
)

// MaxDepth is the hard cascade limit: an event whose Depth exceeds this value
// is rejected by the dispatcher without loading any rules.
const MaxDepth = 3

// Event is a single trigger occurrence flowing through the engine. It is
// ephemeral: it lives on the call stack or inside a queue job and is discarded
// after processing.
type Event struct {
	// ID identifies one logical trigger attempt across retries and cascades.
	// Assigned by the queue if the producer did not supply one.
	ID id.ID `json:"id"`

	// Type is the dot-separated event type name (e.g. "application.stage_changed").
	Type string `json:"type"`

	// TenantID identifies the tenant whose rules this event is evaluated against.
	TenantID string `json:"tenant_id"`

	// EntityID is the idempotency key for this event. When empty, duplicate
	// suppression is skipped entirely for this event.
	EntityID string `json:"entity_id,omitempty"`

	// Depth counts chained trigger invocations caused by actions that
	// themselves re-trigger the engine. Producers start at 0.
	Depth int `json:"depth"`

	// Payload carries the domain fields consumed by conditions and templates
	// (e.g. oldStatus, newStatus, applicantName, jobTitle).
	Payload map[string]any `json:"payload"`

	// OccurredAt is when the producer observed the occurrence.
	OccurredAt time.Time `json:"occurred_at"`
}

// Child returns a copy of the event re-typed for a cascading trigger, with the
// depth counter incremented and a fresh identity. The payload is shared, not
// copied; cascading actions build their own payload.
func (e *Event) Child(eventType string, payload map[string]any) *Event {
	return &Event{
		ID:         id.NewEventID(),
		Type:       eventType,
		TenantID:   e.TenantID,
		EntityID:   e.EntityID,
		Depth:      e.Depth + 1,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Field resolves a dotted path (e.g. "application.status") into the payload.
// The second return is false when any intermediate key is absent or not a map.
func (e *Event) Field(path string) (any, bool) {
	return Lookup(e.Payload, path)
}

// Lookup resolves a dotted path into a nested string-keyed map.
func Lookup(payload map[string]any, path string) (any, bool) {
	if payload == nil || path == "" {
		return nil, false
	}

	var cur any = payload
	start := 0
	for i := 0; i <= len(path); i++ {
		if i < len(path) && path[i] != '.' {
			continue
		}
		key := path[start:i]
		start = i + 1

		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
