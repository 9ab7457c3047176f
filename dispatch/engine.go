package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/observability"
)

// DLQPusher pushes permanently failed jobs to the dead letter queue.
type DLQPusher interface {
	PushFailed(ctx context.Context, j *Job, evt *event.Event, lastError string) error
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Concurrency   int
	PollInterval  time.Duration
	BatchSize     int
	RetrySchedule []time.Duration
	Metrics       *observability.Metrics
}

// Engine is the worker pool that drains the dispatch queue. Each claimed job
// is dispatched through the shared Dispatcher; a failed dispatch is retried
// on the backoff schedule and moved to the DLQ once attempts are exhausted.
type Engine struct {
	store      Store
	dispatcher *Dispatcher
	retrier    *Retrier
	dlq        DLQPusher
	config     EngineConfig
	logger     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a dispatch engine.
func NewEngine(store Store, dispatcher *Dispatcher, dlq DLQPusher, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		retrier:    NewRetrier(cfg.RetrySchedule),
		dlq:        dlq,
		config:     cfg,
		logger:     logger,
	}
}

// Start begins the dispatch workers and poll loop.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight jobs to complete.
func (e *Engine) Stop(_ context.Context) {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// pollLoop periodically claims due jobs and hands them to workers.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, e.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := e.store.DequeueJobs(ctx, e.config.BatchSize)
			if err != nil {
				e.logger.ErrorContext(ctx, "dequeue failed", "error", err)
				continue
			}

			for _, j := range batch {
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}

				e.wg.Add(1)
				go func(job *Job) {
					defer e.wg.Done()
					defer func() { <-sem }()
					e.process(ctx, job)
				}(j)
			}
		}
	}
}

// process dispatches a single job and persists the attempt outcome.
func (e *Engine) process(ctx context.Context, j *Job) {
	j.AttemptCount++
	res := e.dispatcher.Dispatch(ctx, j.Event)

	if res.Error == "" {
		now := time.Now().UTC()
		j.State = StateDone
		j.LastError = ""
		j.CompletedAt = &now
		if e.config.Metrics != nil {
			e.config.Metrics.PendingJobs.Dec()
		}
		e.logger.DebugContext(ctx, "job dispatched",
			"job_id", j.ID, "event_id", j.EventID,
			"rules_executed", res.Executed, "duplicate", res.Duplicate)
	} else {
		j.LastError = res.Error

		switch e.retrier.Decide(j) {
		case Retry:
			j.NextAttemptAt = e.retrier.ComputeNextAttempt(j.AttemptCount)
			e.logger.DebugContext(ctx, "job retry scheduled",
				"job_id", j.ID, "attempt", j.AttemptCount, "next_at", j.NextAttemptAt)

		case Fail:
			now := time.Now().UTC()
			j.State = StateFailed
			j.CompletedAt = &now
			if e.dlq != nil {
				if dlqErr := e.dlq.PushFailed(ctx, j, j.Event, res.Error); dlqErr != nil {
					e.logger.ErrorContext(ctx, "push to DLQ failed",
						"job_id", j.ID, "error", dlqErr)
				}
			}
			if e.config.Metrics != nil {
				e.config.Metrics.PendingJobs.Dec()
				e.config.Metrics.DLQSize.Inc()
			}
			e.logger.WarnContext(ctx, "job failed permanently",
				"job_id", j.ID, "event_id", j.EventID, "error", res.Error)
		}
	}

	if updateErr := e.store.UpdateJob(ctx, j); updateErr != nil {
		e.logger.ErrorContext(ctx, "update job failed",
			"job_id", j.ID, "error", updateErr)
	}
}
