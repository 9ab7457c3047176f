package dlq

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/cascade/dispatch"
	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
)

// Service manages the dead letter queue.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new DLQ service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// PushFailed creates a DLQ entry from a failed dispatch job. Implements
// dispatch.DLQPusher.
func (svc *Service) PushFailed(ctx context.Context, j *dispatch.Job, evt *event.Event, lastError string) error {
	entry := &Entry{
		Entity:       entity.New(),
		ID:           id.NewDLQID(),
		JobID:        j.ID,
		EventID:      j.EventID,
		EventType:    j.EventType,
		TenantID:     j.TenantID,
		AttemptCount: j.AttemptCount,
		Error:        lastError,
		FailedAt:     time.Now().UTC(),
	}
	if evt != nil {
		entry.EntityID = evt.EntityID
		entry.Payload = evt.Payload
	}

	return svc.store.Push(ctx, entry)
}

// List returns DLQ entries matching the given options.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Entry, error) {
	return svc.store.ListDLQ(ctx, opts)
}

// Get returns a DLQ entry by ID.
func (svc *Service) Get(ctx context.Context, dlqID id.ID) (*Entry, error) {
	return svc.store.GetDLQ(ctx, dlqID)
}

// Replay re-enqueues a single DLQ entry for another dispatch attempt.
func (svc *Service) Replay(ctx context.Context, dlqID id.ID) error {
	return svc.store.Replay(ctx, dlqID)
}

// ReplayBulk re-enqueues all DLQ entries that failed within a time range.
func (svc *Service) ReplayBulk(ctx context.Context, from, to time.Time) (int64, error) {
	return svc.store.ReplayBulk(ctx, from, to)
}

// Purge removes old DLQ entries.
func (svc *Service) Purge(ctx context.Context, before time.Time) (int64, error) {
	return svc.store.Purge(ctx, before)
}

// Count returns the total number of DLQ entries.
func (svc *Service) Count(ctx context.Context) (int64, error) {
	return svc.store.CountDLQ(ctx)
}
