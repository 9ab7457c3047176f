package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/cascade/action"
	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/observability"
	"github.com/xraph/cascade/rule"
)

// RuleExecutionResult is the outcome of evaluating one rule against one event.
// "Throttled" and "no match" are distinct non-error outcomes so tenants can
// diagnose why an automation did not run.
type RuleExecutionResult struct {
	// RuleID identifies the evaluated rule.
	RuleID string `json:"rule_id"`

	// RuleName is the tenant-facing rule name.
	RuleName string `json:"rule_name,omitempty"`

	// Matched reports whether the event satisfied the rule's conditions.
	Matched bool `json:"matched"`

	// Throttled reports whether the rule's limits suppressed execution.
	Throttled bool `json:"throttled"`

	// ThrottleReason explains which limit suppressed execution.
	ThrottleReason rule.ThrottleReason `json:"throttle_reason,omitempty"`

	// ActionsExecuted counts actions that ran, including failed ones.
	ActionsExecuted int `json:"actions_executed"`

	// Outcomes holds the per-action results in execution order.
	Outcomes []action.Outcome `json:"outcomes,omitempty"`

	// Success is true when every executed action succeeded.
	Success bool `json:"success"`

	// Error carries an orchestration-level failure (not an action failure).
	Error string `json:"error,omitempty"`

	// Duration is the total evaluation time.
	Duration time.Duration `json:"duration"`
}

// Orchestrator runs a single rule against an event: condition match, throttle
// check, ordered action execution with per-action failure isolation, then
// persistence of the rule's throttle state, history and counters.
type Orchestrator struct {
	store    rule.Store
	executor *action.Executor
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewOrchestrator creates a rule orchestrator.
func NewOrchestrator(store rule.Store, executor *action.Executor, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    store,
		executor: executor,
		metrics:  metrics,
		logger:   logger,
	}
}

// Execute evaluates and, when matched and unthrottled, runs the rule's
// actions, persisting updated rule state.
func (o *Orchestrator) Execute(ctx context.Context, r *rule.Rule, evt *event.Event) *RuleExecutionResult {
	return o.execute(ctx, r, evt, false)
}

// ExecuteDry evaluates and runs the rule like Execute but consults no
// throttle state and persists nothing. Used by rule previews: a dry run must
// not consume a tenant's execution budget.
func (o *Orchestrator) ExecuteDry(ctx context.Context, r *rule.Rule, evt *event.Event) *RuleExecutionResult {
	return o.execute(ctx, r, evt, true)
}

func (o *Orchestrator) execute(ctx context.Context, r *rule.Rule, evt *event.Event, dry bool) *RuleExecutionResult {
	start := time.Now()
	now := start.UTC()

	res := &RuleExecutionResult{
		RuleID:   r.ID.String(),
		RuleName: r.Name,
	}

	// No match is a pure skip: nothing recorded, nothing persisted.
	if !rule.Matches(r.Conditions, evt.Payload) {
		res.Duration = time.Since(start)
		o.record("no_match")
		return res
	}
	res.Matched = true

	if !dry {
		if throttled, reason := r.IsThrottled(now); throttled {
			res.Throttled = true
			res.ThrottleReason = reason
			res.Duration = time.Since(start)

			// Throttled evaluations appear in history for observability but
			// do not count as executions.
			r.RecordSkip(rule.ExecutionRecord{
				At:        now,
				EventID:   evt.ID.String(),
				Matched:   true,
				Throttled: true,
				Duration:  res.Duration,
			})
			o.persist(ctx, r)
			o.record("throttled")
			return res
		}

		// Exactly once per actual execution, before the actions run: an
		// execution with failing actions still consumed its slot.
		r.RecordExecution(now)
	}

	for _, act := range r.OrderedActions() {
		out := o.executor.Run(ctx, action.Invocation{
			Rule:   r,
			Action: act,
			Event:  evt,
		})
		res.Outcomes = append(res.Outcomes, out)
		res.ActionsExecuted++

		if o.metrics != nil {
			status := "success"
			if !out.Success {
				status = "failure"
			}
			o.metrics.RecordAction(string(act.Type), status)
		}
		// A failed action never blocks the ones after it.
	}

	res.Success = true
	var firstErr string
	for _, out := range res.Outcomes {
		if !out.Success {
			res.Success = false
			if firstErr == "" {
				firstErr = out.Error
			}
		}
	}
	res.Duration = time.Since(start)

	if !dry {
		r.RecordOutcome(rule.ExecutionRecord{
			At:              now,
			EventID:         evt.ID.String(),
			Matched:         true,
			ActionsExecuted: res.ActionsExecuted,
			Success:         res.Success,
			Error:           firstErr,
			Duration:        res.Duration,
		})
		o.persist(ctx, r)
	}

	o.record("executed")
	return res
}

// persist saves throttle/history/stat updates; a failed save is logged, not
// propagated — the actions already ran.
func (o *Orchestrator) persist(ctx context.Context, r *rule.Rule) {
	if err := o.store.UpdateRule(ctx, r); err != nil {
		o.logger.ErrorContext(ctx, "persist rule state failed",
			"rule_id", r.ID, "error", err)
	}
}

func (o *Orchestrator) record(status string) {
	if o.metrics != nil {
		o.metrics.RecordRule(status)
	}
}
