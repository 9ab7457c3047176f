package action

import (
	"context"

	"github.com/xraph/cascade/rule"
)

// NotificationHandler creates an in-app notification.
//
// Config: recipient_id (template, defaults to the payload's recipientId),
// title (template, required), body (template).
type NotificationHandler struct {
	channel Notifier
}

// NewNotificationHandler creates the notification handler.
func NewNotificationHandler(channel Notifier) *NotificationHandler {
	return &NotificationHandler{channel: channel}
}

// Type implements Handler.
func (h *NotificationHandler) Type() rule.ActionType { return rule.ActionNotification }

// Execute implements Handler.
func (h *NotificationHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.channel == nil {
		return failure("notification channel not configured")
	}

	recipient := rendered(inv.Action.Config, "recipient_id", inv.Event)
	if recipient == "" {
		recipient = payloadString(inv.Event, "recipientId")
	}

	title := rendered(inv.Action.Config, "title", inv.Event)
	body := rendered(inv.Action.Config, "body", inv.Event)

	notifID, err := h.channel.CreateNotification(ctx, inv.Event.TenantID, recipient, title, body)
	if err != nil {
		return failure("create notification: %v", err)
	}
	return success(notifID)
}
