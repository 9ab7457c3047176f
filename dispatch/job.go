// Package dispatch carries trigger events from producers to rule execution:
// a durable, at-least-once job queue with retry/backoff, the dispatcher that
// guards idempotency and recursion depth, and the orchestrator that runs a
// matched rule's actions.
package dispatch

import (
	"time"

	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
)

// State represents the current state of a dispatch job.
type State string

const (
	// StatePending indicates the job is awaiting an attempt.
	StatePending State = "pending"

	// StateDone indicates the job was dispatched.
	StateDone State = "done"

	// StateFailed indicates the job exhausted its attempts and was retained
	// in the DLQ for inspection.
	StateFailed State = "failed"
)

// Job is one queued trigger request. The event it carries is discarded once
// the job completes; jobs themselves are retained for traceability.
type Job struct {
	entity.Entity

	// ID is the unique TypeID for this job.
	ID id.ID `json:"id"`

	// EventID ties retries and duplicate-producer scenarios back to one
	// logical trigger attempt.
	EventID id.ID `json:"event_id"`

	// TenantID and EventType are denormalized for queue inspection.
	TenantID  string `json:"tenant_id"`
	EventType string `json:"event_type"`

	// Event is the full trigger event to dispatch.
	Event *event.Event `json:"event"`

	// State is the current job state.
	State State `json:"state"`

	// AttemptCount is the number of dispatch attempts made so far.
	AttemptCount int `json:"attempt_count"`

	// MaxAttempts is the maximum number of attempts before the job fails.
	MaxAttempts int `json:"max_attempts"`

	// NextAttemptAt is when the next attempt should occur.
	NextAttemptAt time.Time `json:"next_attempt_at"`

	// LastError is the error message from the most recent failed attempt.
	LastError string `json:"last_error,omitempty"`

	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobListOpts configures filtering and pagination for job listing.
type JobListOpts struct {
	Offset int
	Limit  int
	State  *State
}
