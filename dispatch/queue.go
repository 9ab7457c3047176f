package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
	"github.com/xraph/cascade/observability"
)

// fallbackTimeout bounds an in-process dispatch when the durable queue is
// unavailable. The caller's context cannot be used because it may be
// cancelled the moment the triggering request returns.
const fallbackTimeout = time.Minute

// Queue accepts events for asynchronous dispatch. Enqueue persists a pending
// job for the worker engine; when the store is unreachable the queue degrades
// to dispatching in-process on a detached goroutine so automations still run,
// trading retry durability for availability.
type Queue struct {
	store       Store
	dispatcher  *Dispatcher
	maxAttempts int
	metrics     *observability.Metrics
	logger      *slog.Logger

	degraded atomic.Bool
}

// NewQueue creates a dispatch queue.
func NewQueue(store Store, dispatcher *Dispatcher, maxAttempts int, metrics *observability.Metrics, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Queue{
		store:       store,
		dispatcher:  dispatcher,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger,
	}
}

// Enqueue queues an event for dispatch. It never returns an error for a
// storage failure: the degraded fallback guarantees the event is still
// processed, just without retry durability.
func (q *Queue) Enqueue(ctx context.Context, evt *event.Event) error {
	if evt.ID.IsNil() {
		evt.ID = id.NewEventID()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	j := &Job{
		Entity:        entity.New(),
		ID:            id.NewJobID(),
		EventID:       evt.ID,
		TenantID:      evt.TenantID,
		EventType:     evt.Type,
		Event:         evt,
		State:         StatePending,
		MaxAttempts:   q.maxAttempts,
		NextAttemptAt: time.Now().UTC(),
	}

	if err := q.store.EnqueueJob(ctx, j); err != nil {
		q.degraded.Store(true)
		q.logger.WarnContext(ctx, "enqueue failed, dispatching in-process",
			"event_id", evt.ID, "event_type", evt.Type, "error", err)

		go func() {
			dctx, cancel := context.WithTimeout(context.Background(), fallbackTimeout)
			defer cancel()
			res := q.dispatcher.Dispatch(dctx, evt)
			if res.Error != "" {
				q.logger.ErrorContext(dctx, "degraded dispatch failed",
					"event_id", evt.ID, "error", res.Error)
			}
		}()
		return nil
	}

	q.degraded.Store(false)
	if q.metrics != nil {
		q.metrics.PendingJobs.Inc()
	}
	q.logger.DebugContext(ctx, "event enqueued",
		"event_id", evt.ID, "event_type", evt.Type, "job_id", j.ID)
	return nil
}

// Durable reports whether the last enqueue reached the store. False means the
// queue is running in degraded in-process mode.
func (q *Queue) Durable() bool {
	return !q.degraded.Load()
}
