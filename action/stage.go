package action

import (
	"context"
	"log/slog"

	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/rule"
)

// StageHandler reassigns an application's pipeline stage. This is the cascade
// point of the engine: a successful stage change schedules a follow-up
// "stage changed" trigger with an incremented depth counter, via the dispatch
// queue, and returns without waiting on it — the rule's own outcome is never
// held hostage by a downstream chain.
//
// Assigning the stage the entity already holds is an idempotent no-op success
// and schedules no cascade.
//
// Config: stage (template, required).
type StageHandler struct {
	records  RecordStore
	cascader Cascader
	logger   *slog.Logger
}

// NewStageHandler creates the stage-assign handler.
func NewStageHandler(records RecordStore, cascader Cascader, logger *slog.Logger) *StageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StageHandler{records: records, cascader: cascader, logger: logger}
}

// Type implements Handler.
func (h *StageHandler) Type() rule.ActionType { return rule.ActionAssignStage }

// Execute implements Handler.
func (h *StageHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.records == nil {
		return failure("record channel not configured")
	}

	entityID := inv.Event.EntityID
	if entityID == "" {
		entityID = payloadString(inv.Event, "applicationId")
	}
	if entityID == "" {
		return failure("assign stage: no entity id on event")
	}

	stage := rendered(inv.Action.Config, "stage", inv.Event)
	if stage == "" {
		return failure("assign stage: stage resolved to empty")
	}

	current, err := h.records.GetStage(ctx, inv.Event.TenantID, entityID)
	if err != nil {
		return failure("assign stage: read current stage: %v", err)
	}

	if current == stage {
		return Outcome{Success: true, NoOp: true}
	}

	if err := h.records.SetStage(ctx, inv.Event.TenantID, entityID, stage); err != nil {
		return failure("assign stage: %v", err)
	}

	// Fire-and-forget cascade: enqueue the follow-up event and return. A
	// failed enqueue does not fail the stage change itself.
	if h.cascader != nil {
		child := inv.Event.Child(event.ApplicationStageChanged, map[string]any{
			"applicationId": entityID,
			"oldStage":      current,
			"newStage":      stage,
		})
		// The parent event may identify the application only in its payload;
		// the child must carry the resolved id so dedup sees it.
		child.EntityID = entityID
		if cascadeErr := h.cascader.Cascade(ctx, child); cascadeErr != nil {
			h.logger.WarnContext(ctx, "cascade enqueue failed",
				"rule_id", inv.Rule.ID,
				"entity_id", entityID,
				"error", cascadeErr,
			)
		}
	}

	return Outcome{Success: true}
}
