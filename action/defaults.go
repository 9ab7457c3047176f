package action

import "log/slog"

// RegisterDefaults registers the full built-in handler set on an executor.
// The engine calls this at construction; applications embedding a custom
// executor may call it directly and add their own handlers alongside.
func RegisterDefaults(e *Executor, ch Channels, cascader Cascader, webhook WebhookConfig, logger *slog.Logger) {
	e.Register(NewNotificationHandler(ch.Notifications))
	e.Register(NewOpenThreadHandler(ch.Threads))
	e.Register(NewSendMessageHandler(ch.Threads))
	e.Register(NewEmailHandler(ch.Email))
	e.Register(NewSMSHandler(ch.SMS))
	e.Register(NewInterviewHandler(ch.Interviews))
	e.Register(NewStageHandler(ch.Records, cascader, logger))
	e.Register(NewTagHandler(ch.Records))
	e.Register(NewFieldHandler(ch.Records))
	e.Register(NewWebhookHandler(webhook))
}
