package action

import (
	"context"

	"github.com/xraph/cascade/rule"
)

// recordEntityID resolves the record an action mutates: the event's entity id,
// falling back to the payload's applicationId.
func recordEntityID(inv Invocation) string {
	if inv.Event.EntityID != "" {
		return inv.Event.EntityID
	}
	return payloadString(inv.Event, "applicationId")
}

// TagHandler adds a tag to the event's record.
//
// Config: tag (template, required).
type TagHandler struct {
	records RecordStore
}

// NewTagHandler creates the add-tag handler.
func NewTagHandler(records RecordStore) *TagHandler {
	return &TagHandler{records: records}
}

// Type implements Handler.
func (h *TagHandler) Type() rule.ActionType { return rule.ActionAddTag }

// Execute implements Handler.
func (h *TagHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.records == nil {
		return failure("record channel not configured")
	}

	entityID := recordEntityID(inv)
	if entityID == "" {
		return failure("add tag: no entity id on event")
	}

	tag := rendered(inv.Action.Config, "tag", inv.Event)
	if tag == "" {
		return failure("add tag: tag resolved to empty")
	}

	if err := h.records.AddTag(ctx, inv.Event.TenantID, entityID, tag); err != nil {
		return failure("add tag: %v", err)
	}
	return Outcome{Success: true}
}

// FieldHandler sets a field on the event's record.
//
// Config: field (required), value (templated when a string).
type FieldHandler struct {
	records RecordStore
}

// NewFieldHandler creates the set-field handler.
func NewFieldHandler(records RecordStore) *FieldHandler {
	return &FieldHandler{records: records}
}

// Type implements Handler.
func (h *FieldHandler) Type() rule.ActionType { return rule.ActionSetField }

// Execute implements Handler.
func (h *FieldHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.records == nil {
		return failure("record channel not configured")
	}

	entityID := recordEntityID(inv)
	if entityID == "" {
		return failure("set field: no entity id on event")
	}

	field := cfgString(inv.Action.Config, "field")
	if field == "" {
		return failure("set field: field is required")
	}

	value := inv.Action.Config["value"]
	if s, ok := value.(string); ok {
		value = Render(s, inv.Event.Payload)
	}

	if err := h.records.SetField(ctx, inv.Event.TenantID, entityID, field, value); err != nil {
		return failure("set field: %v", err)
	}
	return Outcome{Success: true}
}
