// Package rule defines tenant-scoped automation rules: the trigger event type
// they subscribe to, the conditions an event must satisfy, the ordered actions
// to run on a match, and the rate-limit state that throttles execution.
package rule

import (
	"context"
	"sort"
	"time"

	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
)

// HistorySize is the number of execution records retained per rule.
const HistorySize = 10

// Operator is a condition comparison operator.
type Operator string

// Condition operators.
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "not_exists"
)

// Operators lists every supported condition operator.
var Operators = []Operator{
	OpEquals, OpNotEquals,
	OpContains, OpNotContains,
	OpGreaterThan, OpLessThan,
	OpIn, OpNotIn,
	OpExists, OpNotExists,
}

// Condition is one predicate over the event payload. All conditions on a rule
// must hold (logical AND); a rule with zero conditions matches every event.
//
// Equality is loose: "5" equals 5 evaluates true. This matches the relaxed
// comparison tenant-authored rules were written against.
type Condition struct {
	// Field is a dotted path into the event payload (e.g. "application.status").
	Field string `json:"field"`

	// Operator selects the comparison.
	Operator Operator `json:"operator"`

	// Value is the comparison operand. For in/not_in it must be an array;
	// anything else makes the condition evaluate false, not error.
	Value any `json:"value,omitempty"`
}

// ActionType identifies an action handler.
type ActionType string

// Action types executable by a rule.
const (
	ActionNotification      ActionType = "notification"
	ActionOpenThread        ActionType = "open_thread"
	ActionSendMessage       ActionType = "send_message"
	ActionSendEmail         ActionType = "send_email"
	ActionSendSMS           ActionType = "send_sms"
	ActionScheduleInterview ActionType = "schedule_interview"
	ActionAssignStage       ActionType = "assign_stage"
	ActionAddTag            ActionType = "add_tag"
	ActionSetField          ActionType = "set_field"
	ActionWebhook           ActionType = "webhook"
)

// Action is one configured effect a rule performs when matched.
type Action struct {
	// Type selects the handler.
	Type ActionType `json:"type"`

	// Order positions this action within the rule. Actions run sequentially
	// in ascending order since later actions may depend on earlier side
	// effects (a thread must exist before a message is posted to it).
	Order int `json:"order"`

	// Enabled actions run; disabled actions are skipped silently.
	Enabled bool `json:"enabled"`

	// Config is the handler-specific configuration blob, validated against
	// the handler's JSON Schema when the rule is saved.
	Config map[string]any `json:"config,omitempty"`
}

// Limits caps how often a rule may execute. Zero values mean unlimited.
type Limits struct {
	MaxPerHour      int `json:"max_per_hour,omitempty"`
	MaxPerDay       int `json:"max_per_day,omitempty"`
	CooldownMinutes int `json:"cooldown_minutes,omitempty"`
}

// ExecutionRecord is one entry in a rule's bounded execution history,
// kept for tenant-facing observability: it shows whether an automation
// was throttled, didn't match, or had a failing action.
type ExecutionRecord struct {
	At              time.Time     `json:"at"`
	EventID         string        `json:"event_id"`
	Matched         bool          `json:"matched"`
	Throttled       bool          `json:"throttled"`
	ActionsExecuted int           `json:"actions_executed"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Stats holds cumulative execution counters for a rule.
type Stats struct {
	Executions    int64      `json:"executions"`
	Successes     int64      `json:"successes"`
	Failures      int64      `json:"failures"`
	LastExecuted  *time.Time `json:"last_executed,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}

// Rule is a tenant-configured trigger/condition/action definition.
//
// A rule is never hard-deleted mid-execution: in-flight executions complete
// against the snapshot they loaded.
type Rule struct {
	entity.Entity

	// ID is the unique TypeID for this rule.
	ID id.ID `json:"id"`

	// TenantID identifies the owning tenant.
	TenantID string `json:"tenant_id"`

	// Name is the tenant-facing display name.
	Name string `json:"name"`

	// EventType is the trigger event type this rule subscribes to.
	EventType string `json:"event_type"`

	// Conditions must all hold for the rule to match. Empty means match-all.
	Conditions []Condition `json:"conditions,omitempty"`

	// Actions run in ascending Order when the rule matches.
	Actions []Action `json:"actions"`

	// Active rules are loaded for dispatch; inactive rules are ignored.
	Active bool `json:"active"`

	// Priority orders execution among rules matching the same event,
	// descending. Ties break by creation time, ascending.
	Priority int `json:"priority"`

	// Limits caps execution frequency.
	Limits Limits `json:"limits"`

	// Throttle is the mutable rate-limit state, persisted with the rule.
	Throttle Throttle `json:"throttle"`

	// History is the rolling execution record ring, capped at HistorySize.
	History []ExecutionRecord `json:"history,omitempty"`

	// Stats holds cumulative counters.
	Stats Stats `json:"stats"`
}

// OrderedActions returns the rule's enabled actions sorted by ascending Order.
func (r *Rule) OrderedActions() []Action {
	actions := make([]Action, 0, len(r.Actions))
	for _, a := range r.Actions {
		if a.Enabled {
			actions = append(actions, a)
		}
	}
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})
	return actions
}

// RecordOutcome appends an execution record to the history ring and updates
// the cumulative counters. Call it only for actual executions; the caller
// persists the rule afterwards.
func (r *Rule) RecordOutcome(rec ExecutionRecord) {
	r.RecordSkip(rec)

	at := rec.At
	r.Stats.Executions++
	r.Stats.LastExecuted = &at
	if rec.Success {
		r.Stats.Successes++
		r.Stats.LastSuccessAt = &at
	} else {
		r.Stats.Failures++
		r.Stats.LastFailureAt = &at
	}
}

// RecordSkip appends a history record without touching the cumulative
// counters. Used for throttled evaluations, which are visible in history for
// observability but are not executions.
func (r *Rule) RecordSkip(rec ExecutionRecord) {
	r.History = append(r.History, rec)
	if len(r.History) > HistorySize {
		r.History = r.History[len(r.History)-HistorySize:]
	}
}

// ListOpts configures filtering and pagination for rule listing.
type ListOpts struct {
	Offset    int
	Limit     int
	EventType string
	Active    *bool
}

// Store is the persistence contract for rules.
type Store interface {
	// CreateRule persists a new rule.
	CreateRule(ctx context.Context, r *Rule) error

	// GetRule returns a rule by ID.
	GetRule(ctx context.Context, ruleID id.ID) (*Rule, error)

	// UpdateRule persists rule mutations, including throttle state, history
	// and counters. Implementations should write the whole document in one
	// operation so concurrent workers do not interleave partial updates.
	UpdateRule(ctx context.Context, r *Rule) error

	// DeleteRule removes a rule. In-flight executions keep their snapshot.
	DeleteRule(ctx context.Context, ruleID id.ID) error

	// FindActiveRules returns the active rules for (tenant, event type),
	// ordered by priority descending, then creation time ascending.
	FindActiveRules(ctx context.Context, tenantID, eventType string) ([]*Rule, error)

	// ListRules returns a tenant's rules with optional filters.
	ListRules(ctx context.Context, tenantID string, opts ListOpts) ([]*Rule, error)
}

// SortForDispatch orders rules by priority descending, creation ascending.
// Store implementations may delegate here to satisfy FindActiveRules ordering.
func SortForDispatch(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
}
