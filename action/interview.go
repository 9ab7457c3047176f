package action

import (
	"context"
	"time"

	"github.com/xraph/cascade/rule"
)

// InterviewHandler schedules an interview for the event's application.
//
// Config: at (template, RFC 3339 timestamp; defaults to 24h from now),
// notes (template).
type InterviewHandler struct {
	channel InterviewScheduler
}

// NewInterviewHandler creates the interview handler.
func NewInterviewHandler(channel InterviewScheduler) *InterviewHandler {
	return &InterviewHandler{channel: channel}
}

// Type implements Handler.
func (h *InterviewHandler) Type() rule.ActionType { return rule.ActionScheduleInterview }

// Execute implements Handler.
func (h *InterviewHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.channel == nil {
		return failure("interview channel not configured")
	}

	applicationID := payloadString(inv.Event, "applicationId")
	if applicationID == "" {
		applicationID = inv.Event.EntityID
	}
	if applicationID == "" {
		return failure("schedule interview: no application id on event")
	}

	at := time.Now().UTC().Add(24 * time.Hour)
	if raw := rendered(inv.Action.Config, "at", inv.Event); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return failure("schedule interview: invalid time %q: %v", raw, err)
		}
		at = parsed
	}

	notes := rendered(inv.Action.Config, "notes", inv.Event)

	interviewID, err := h.channel.CreateInterview(ctx, inv.Event.TenantID, applicationID, at, notes)
	if err != nil {
		return failure("schedule interview: %v", err)
	}
	return success(interviewID)
}
