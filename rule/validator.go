package rule

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalid is wrapped by every validation failure, so callers can
// distinguish a bad rule definition from an infrastructure error with
// errors.Is. The root package re-exports it as cascade.ErrRuleInvalid.
var ErrInvalid = errors.New("cascade: rule is invalid")

// Validator checks rule definitions at save time: known operators, known
// action types, and each action's config blob against the handler's JSON
// Schema. Dispatch never sees a rule this validator rejected, so handler code
// can assume its required config keys are present.
type Validator struct {
	mu    sync.RWMutex
	cache map[ActionType]*jsonschema.Schema
}

// NewValidator creates a rule validator.
func NewValidator() *Validator {
	return &Validator{
		cache: make(map[ActionType]*jsonschema.Schema),
	}
}

// actionSchemas declares the required shape of each action's config blob.
// Keys not listed here pass through untouched; handlers treat them as
// template inputs or ignore them.
var actionSchemas = map[ActionType]map[string]any{
	ActionNotification: {
		"type":     "object",
		"required": []any{"title"},
		"properties": map[string]any{
			"recipient_id": map[string]any{"type": "string"},
			"title":        map[string]any{"type": "string", "minLength": 1},
			"body":         map[string]any{"type": "string"},
		},
	},
	ActionOpenThread: {
		"type": "object",
	},
	ActionSendMessage: {
		"type":     "object",
		"required": []any{"body"},
		"properties": map[string]any{
			"body": map[string]any{"type": "string", "minLength": 1},
		},
	},
	ActionSendEmail: {
		"type":     "object",
		"required": []any{"to", "subject"},
		"properties": map[string]any{
			"to":      map[string]any{"type": "string", "minLength": 1},
			"subject": map[string]any{"type": "string", "minLength": 1},
			"body":    map[string]any{"type": "string"},
		},
	},
	ActionSendSMS: {
		"type":     "object",
		"required": []any{"to", "body"},
		"properties": map[string]any{
			"to":   map[string]any{"type": "string", "minLength": 1},
			"body": map[string]any{"type": "string", "minLength": 1},
		},
	},
	ActionScheduleInterview: {
		"type": "object",
		"properties": map[string]any{
			"at":    map[string]any{"type": "string"},
			"notes": map[string]any{"type": "string"},
		},
	},
	ActionAssignStage: {
		"type":     "object",
		"required": []any{"stage"},
		"properties": map[string]any{
			"stage": map[string]any{"type": "string", "minLength": 1},
		},
	},
	ActionAddTag: {
		"type":     "object",
		"required": []any{"tag"},
		"properties": map[string]any{
			"tag": map[string]any{"type": "string", "minLength": 1},
		},
	},
	ActionSetField: {
		"type":     "object",
		"required": []any{"field"},
		"properties": map[string]any{
			"field": map[string]any{"type": "string", "minLength": 1},
		},
	},
	ActionWebhook: {
		"type":     "object",
		"required": []any{"url"},
		"properties": map[string]any{
			"url":    map[string]any{"type": "string", "minLength": 1},
			"method": map[string]any{"type": "string"},
			"secret": map[string]any{"type": "string"},
			"headers": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
		},
	},
}

// ValidateRule checks the full rule definition.
func (v *Validator) ValidateRule(r *Rule) error {
	if r.TenantID == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalid)
	}
	if r.EventType == "" {
		return fmt.Errorf("%w: event type is required", ErrInvalid)
	}

	for i, c := range r.Conditions {
		if !validOperator(c.Operator) {
			return fmt.Errorf("%w: condition %d: unknown operator %q", ErrInvalid, i, c.Operator)
		}
		if c.Field == "" {
			return fmt.Errorf("%w: condition %d: field is required", ErrInvalid, i)
		}
	}

	for i, a := range r.Actions {
		if err := v.ValidateAction(a); err != nil {
			return fmt.Errorf("%w: action %d: %v", ErrInvalid, i, err)
		}
	}

	return nil
}

// ValidateAction checks one action's type and config blob.
func (v *Validator) ValidateAction(a Action) error {
	schema, known := actionSchemas[a.Type]
	if !known {
		return fmt.Errorf("unsupported action type %q", a.Type)
	}

	compiled, err := v.compile(a.Type, schema)
	if err != nil {
		return fmt.Errorf("compile config schema for %q: %w", a.Type, err)
	}

	cfg := a.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	// Round-trip through JSON so typed values (int, time.Time) normalize to
	// what the schema compiler expects.
	doc, err := normalize(cfg)
	if err != nil {
		return fmt.Errorf("normalize config for %q: %w", a.Type, err)
	}

	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("config for %q: %w", a.Type, err)
	}
	return nil
}

// compile returns the compiled schema for an action type, caching the result.
func (v *Validator) compile(at ActionType, schema map[string]any) (*jsonschema.Schema, error) {
	v.mu.RLock()
	if cached, ok := v.cache[at]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	doc, err := normalize(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	url := "cascade://schema/action/" + string(at)

	c := jsonschema.NewCompiler()
	if addErr := c.AddResource(url, doc); addErr != nil {
		return nil, fmt.Errorf("add schema resource: %w", addErr)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.mu.Lock()
	v.cache[at] = compiled
	v.mu.Unlock()

	return compiled, nil
}

// normalize round-trips a value through JSON into the generic form the schema
// library operates on.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func validOperator(op Operator) bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}
