package action

import (
	"context"

	"github.com/xraph/cascade/rule"
)

// threadFor resolves (or creates) the message thread for the event's
// application. Shared by the open-thread and send-message handlers.
func threadFor(ctx context.Context, threads ThreadStore, inv Invocation) (string, error) {
	applicationID := payloadString(inv.Event, "applicationId")
	if applicationID == "" {
		applicationID = inv.Event.EntityID
	}
	jobID := payloadString(inv.Event, "jobId")
	applicantID := payloadString(inv.Event, "applicantId")

	return threads.FindOrCreateThread(ctx, inv.Event.TenantID, applicationID, jobID, applicantID)
}

// OpenThreadHandler opens (or finds) the message thread for an application.
type OpenThreadHandler struct {
	threads ThreadStore
}

// NewOpenThreadHandler creates the open-thread handler.
func NewOpenThreadHandler(threads ThreadStore) *OpenThreadHandler {
	return &OpenThreadHandler{threads: threads}
}

// Type implements Handler.
func (h *OpenThreadHandler) Type() rule.ActionType { return rule.ActionOpenThread }

// Execute implements Handler.
func (h *OpenThreadHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.threads == nil {
		return failure("thread channel not configured")
	}

	threadID, err := threadFor(ctx, h.threads, inv)
	if err != nil {
		return failure("open thread: %v", err)
	}
	return success(threadID)
}

// SendMessageHandler posts a templated message to the application's thread,
// opening the thread first when it does not exist yet.
//
// Config: body (template, required).
type SendMessageHandler struct {
	threads ThreadStore
}

// NewSendMessageHandler creates the send-message handler.
func NewSendMessageHandler(threads ThreadStore) *SendMessageHandler {
	return &SendMessageHandler{threads: threads}
}

// Type implements Handler.
func (h *SendMessageHandler) Type() rule.ActionType { return rule.ActionSendMessage }

// Execute implements Handler.
func (h *SendMessageHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.threads == nil {
		return failure("thread channel not configured")
	}

	threadID, err := threadFor(ctx, h.threads, inv)
	if err != nil {
		return failure("resolve thread: %v", err)
	}

	body := rendered(inv.Action.Config, "body", inv.Event)
	msgID, err := h.threads.PostMessage(ctx, inv.Event.TenantID, threadID, body)
	if err != nil {
		return failure("post message: %v", err)
	}
	return success(msgID)
}
