package action

import (
	"context"
	"time"

	"github.com/xraph/cascade/event"
)

// Channels bundles the delivery-channel collaborators action handlers call
// into. Every field is optional; a handler whose channel is nil fails with a
// "channel not configured" outcome rather than crashing.
type Channels struct {
	Notifications Notifier
	Email         Mailer
	SMS           SMSSender
	Threads       ThreadStore
	Interviews    InterviewScheduler
	Records       RecordStore
}

// Notifier creates in-app notifications.
type Notifier interface {
	CreateNotification(ctx context.Context, tenantID, recipientID, title, body string) (string, error)
}

// Mailer sends email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender sends SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ThreadStore manages message threads between a publisher and an applicant.
type ThreadStore interface {
	// FindOrCreateThread returns the thread for an application, creating it
	// when absent.
	FindOrCreateThread(ctx context.Context, tenantID, applicationID, jobID, applicantID string) (string, error)

	// PostMessage appends a message to a thread and returns the message id.
	PostMessage(ctx context.Context, tenantID, threadID, body string) (string, error)
}

// InterviewScheduler creates interviews.
type InterviewScheduler interface {
	CreateInterview(ctx context.Context, tenantID, applicationID string, at time.Time, notes string) (string, error)
}

// RecordStore reads and mutates the domain records rules act on
// (pipeline stage, tags, arbitrary fields).
type RecordStore interface {
	GetStage(ctx context.Context, tenantID, entityID string) (string, error)
	SetStage(ctx context.Context, tenantID, entityID, stage string) error
	AddTag(ctx context.Context, tenantID, entityID, tag string) error
	SetField(ctx context.Context, tenantID, entityID, field string, value any) error
}

// Cascader schedules a follow-up trigger event. The stage-assign handler uses
// it to re-enter the engine after a stage change: enqueue and return, never
// block on the cascade's completion.
type Cascader interface {
	Cascade(ctx context.Context, evt *event.Event) error
}
