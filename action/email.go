package action

import (
	"context"

	"github.com/xraph/cascade/rule"
)

// EmailHandler sends a templated email.
//
// Config: to (template, required), subject (template, required), body (template).
type EmailHandler struct {
	channel Mailer
}

// NewEmailHandler creates the email handler.
func NewEmailHandler(channel Mailer) *EmailHandler {
	return &EmailHandler{channel: channel}
}

// Type implements Handler.
func (h *EmailHandler) Type() rule.ActionType { return rule.ActionSendEmail }

// Execute implements Handler.
func (h *EmailHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.channel == nil {
		return failure("email channel not configured")
	}

	to := rendered(inv.Action.Config, "to", inv.Event)
	if to == "" {
		return failure("email recipient resolved to empty")
	}
	subject := rendered(inv.Action.Config, "subject", inv.Event)
	body := rendered(inv.Action.Config, "body", inv.Event)

	if err := h.channel.SendEmail(ctx, to, subject, body); err != nil {
		return failure("send email: %v", err)
	}
	return Outcome{Success: true}
}

// SMSHandler sends a templated SMS.
//
// Config: to (template, required), body (template, required).
type SMSHandler struct {
	channel SMSSender
}

// NewSMSHandler creates the SMS handler.
func NewSMSHandler(channel SMSSender) *SMSHandler {
	return &SMSHandler{channel: channel}
}

// Type implements Handler.
func (h *SMSHandler) Type() rule.ActionType { return rule.ActionSendSMS }

// Execute implements Handler.
func (h *SMSHandler) Execute(ctx context.Context, inv Invocation) Outcome {
	if h.channel == nil {
		return failure("sms channel not configured")
	}

	to := rendered(inv.Action.Config, "to", inv.Event)
	if to == "" {
		return failure("sms recipient resolved to empty")
	}
	body := rendered(inv.Action.Config, "body", inv.Event)

	if err := h.channel.SendSMS(ctx, to, body); err != nil {
		return failure("send sms: %v", err)
	}
	return Outcome{Success: true}
}
