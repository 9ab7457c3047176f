// Package action executes the configured effects of a matched rule. Each
// action type has an independent handler; handlers share the event payload for
// template variables and report a structured Outcome, never an error that
// could abort sibling actions.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/rule"
)

// Outcome is the structured result of one action execution.
type Outcome struct {
	// Type is the action type that produced this outcome.
	Type rule.ActionType `json:"type"`

	// Success reports whether the action completed.
	Success bool `json:"success"`

	// NoOp is set when the action short-circuited idempotently
	// (e.g. assigning a stage the entity already holds).
	NoOp bool `json:"noop,omitempty"`

	// Error is the human-readable failure reason.
	Error string `json:"error,omitempty"`

	// SideEffectID references the created side effect (notification id,
	// thread id, message id, interview id) when the channel returns one.
	SideEffectID string `json:"side_effect_id,omitempty"`

	// LatencyMs is how long the handler took.
	LatencyMs int `json:"latency_ms,omitempty"`
}

// Invocation carries everything a handler needs for one execution.
type Invocation struct {
	// Rule is the snapshot of the matched rule.
	Rule *rule.Rule

	// Action is the action being executed, including its config blob.
	Action rule.Action

	// Event is the trigger event, source of template variables.
	Event *event.Event
}

// Handler executes one action type.
type Handler interface {
	// Type returns the action type this handler serves.
	Type() rule.ActionType

	// Execute runs the action. Failures are reported in the Outcome;
	// handlers never panic past this boundary.
	Execute(ctx context.Context, inv Invocation) Outcome
}

// Executor dispatches action descriptors to registered handlers.
// Registration happens at engine construction; reads are concurrent.
type Executor struct {
	mu       sync.RWMutex
	handlers map[rule.ActionType]Handler
	logger   *slog.Logger
}

// NewExecutor creates an executor with no handlers registered.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		handlers: make(map[rule.ActionType]Handler),
		logger:   logger,
	}
}

// Register adds a handler. Panics on a duplicate type to surface
// misconfiguration at startup.
func (e *Executor) Register(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.handlers[h.Type()]; exists {
		panic(fmt.Sprintf("cascade: duplicate action handler for type %q", h.Type()))
	}
	e.handlers[h.Type()] = h
}

// Run executes a single action and returns its outcome. An unregistered
// action type is a configuration error reported as a failed outcome,
// not a crash.
func (e *Executor) Run(ctx context.Context, inv Invocation) Outcome {
	e.mu.RLock()
	h, ok := e.handlers[inv.Action.Type]
	e.mu.RUnlock()

	if !ok {
		return Outcome{
			Type:    inv.Action.Type,
			Success: false,
			Error:   fmt.Sprintf("unsupported action type %q", inv.Action.Type),
		}
	}

	start := time.Now()
	out := h.Execute(ctx, inv)
	out.Type = inv.Action.Type
	out.LatencyMs = int(time.Since(start).Milliseconds())

	if !out.Success {
		e.logger.DebugContext(ctx, "action failed",
			"type", inv.Action.Type,
			"rule_id", inv.Rule.ID,
			"error", out.Error,
		)
	}

	return out
}

// ──────────────────────────────────────────────────
// Handler helpers
// ──────────────────────────────────────────────────

// failure builds a failed outcome with a formatted reason.
func failure(format string, args ...any) Outcome {
	return Outcome{Success: false, Error: fmt.Sprintf(format, args...)}
}

// success builds a successful outcome referencing a side effect.
func success(sideEffectID string) Outcome {
	return Outcome{Success: true, SideEffectID: sideEffectID}
}

// cfgString reads a string config value, empty when absent or mistyped.
func cfgString(cfg map[string]any, key string) string {
	if cfg == nil {
		return ""
	}
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return ""
}

// rendered reads a string config value and interpolates {{key}} template
// variables from the event payload.
func rendered(cfg map[string]any, key string, evt *event.Event) string {
	return Render(cfgString(cfg, key), evt.Payload)
}

// payloadString resolves a payload field to its string form, empty if absent.
func payloadString(evt *event.Event, path string) string {
	v, ok := event.Lookup(evt.Payload, path)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
