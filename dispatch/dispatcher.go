package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/ledger"
	"github.com/xraph/cascade/observability"
	"github.com/xraph/cascade/rule"
	"go.opentelemetry.io/otel/trace"
)

// Result summarizes the dispatch of one event across all matching rules.
type Result struct {
	// EventID identifies the dispatched event.
	EventID string `json:"event_id"`

	// Executed counts rules whose actions actually ran.
	Executed int `json:"executed"`

	// Duplicate is true when another dispatch already claimed this
	// tenant/type/entity combination and the event was skipped whole.
	Duplicate bool `json:"duplicate"`

	// RecursionLimited is true when the event's cascade depth exceeded the
	// cap and no rules were evaluated.
	RecursionLimited bool `json:"recursion_limited"`

	// Error carries an infrastructure-level failure (rule load, ledger).
	Error string `json:"error,omitempty"`

	// Results holds the per-rule outcomes in evaluation order.
	Results []*RuleExecutionResult `json:"results,omitempty"`
}

// Dispatcher fans one event out to every active rule for its tenant and type.
// It is the single place recursion depth and idempotency are enforced, so
// both the durable queue path and the degraded in-process path share the
// same guarantees.
type Dispatcher struct {
	rules        *rule.Service
	orchestrator *Orchestrator
	ledger       ledger.Store
	ledgerTTL    time.Duration
	metrics      *observability.Metrics
	tracer       *observability.Tracer
	logger       *slog.Logger
}

// NewDispatcher creates a dispatcher. metrics and tracer may be nil.
func NewDispatcher(rules *rule.Service, orchestrator *Orchestrator, lg ledger.Store, ledgerTTL time.Duration, metrics *observability.Metrics, tracer *observability.Tracer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if ledgerTTL <= 0 {
		ledgerTTL = ledger.DefaultTTL
	}
	return &Dispatcher{
		rules:        rules,
		orchestrator: orchestrator,
		ledger:       lg,
		ledgerTTL:    ledgerTTL,
		metrics:      metrics,
		tracer:       tracer,
		logger:       logger,
	}
}

// Dispatch processes one event: recursion guard, idempotency claim, rule
// fan-out. Per-rule failures are isolated; only infrastructure failures
// (rule load, ledger write) surface in Result.Error, and those are the only
// dispatches a caller should retry.
func (d *Dispatcher) Dispatch(ctx context.Context, evt *event.Event) *Result {
	start := time.Now()
	res := &Result{EventID: evt.ID.String()}

	if d.tracer != nil {
		var sp trace.Span
		ctx, sp = d.tracer.StartDispatchSpan(ctx, evt.ID.String(), evt.Type, evt.TenantID, evt.Depth)
		defer func() {
			d.tracer.EndDispatchSpan(sp, res.Executed, res.Duplicate, res.Error)
		}()
	}

	if evt.Depth > event.MaxDepth {
		res.RecursionLimited = true
		d.logger.WarnContext(ctx, "event dropped, cascade depth exceeded",
			"event_id", evt.ID, "event_type", evt.Type,
			"tenant_id", evt.TenantID, "depth", evt.Depth)
		return res
	}

	// Claim before processing. Events without an entity have no natural
	// dedup key and always run.
	if evt.EntityID != "" {
		first, err := d.ledger.MarkProcessed(ctx, &ledger.Record{
			TenantID:    evt.TenantID,
			EventType:   evt.Type,
			EntityID:    evt.EntityID,
			EventID:     evt.ID.String(),
			ProcessedAt: time.Now().UTC(),
		}, d.ledgerTTL)
		if err != nil {
			res.Error = fmt.Sprintf("idempotency claim: %v", err)
			return res
		}
		if !first {
			res.Duplicate = true
			if d.metrics != nil {
				d.metrics.EventsDedupedTotal.Inc()
			}
			d.logger.DebugContext(ctx, "duplicate event skipped",
				"event_id", evt.ID, "event_type", evt.Type,
				"tenant_id", evt.TenantID, "entity_id", evt.EntityID)
			return res
		}
	}

	rules, err := d.rules.ActiveForEvent(ctx, evt.TenantID, evt.Type)
	if err != nil {
		res.Error = fmt.Sprintf("load rules: %v", err)
		return res
	}

	for _, r := range rules {
		rr := d.executeSafe(ctx, r, evt)
		res.Results = append(res.Results, rr)
		if rr.Matched && !rr.Throttled && rr.Error == "" {
			res.Executed++
		}
	}

	if d.metrics != nil {
		d.metrics.RecordDispatch(time.Since(start).Seconds())
	}
	return res
}

// executeSafe runs one rule and converts a panic into a failed result so a
// misbehaving rule cannot take down the batch.
func (d *Dispatcher) executeSafe(ctx context.Context, r *rule.Rule, evt *event.Event) (res *RuleExecutionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.ErrorContext(ctx, "rule execution panicked",
				"rule_id", r.ID, "event_id", evt.ID, "panic", rec)
			res = &RuleExecutionResult{
				RuleID:   r.ID.String(),
				RuleName: r.Name,
				Error:    fmt.Sprintf("panic: %v", rec),
			}
			if d.metrics != nil {
				d.metrics.RecordRule("error")
			}
		}
	}()
	return d.orchestrator.Execute(ctx, r, evt)
}
