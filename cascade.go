package cascade

import (
	"context"
	"log/slog"

	"github.com/xraph/cascade/action"
	"github.com/xraph/cascade/dispatch"
	"github.com/xraph/cascade/dlq"
	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/observability"
	"github.com/xraph/cascade/rule"
	"github.com/xraph/cascade/scheduler"
	"github.com/xraph/cascade/store"
)

// Engine is the root automation rule engine.
type Engine struct {
	config          Config
	store           store.Store
	channels        action.Channels
	schedulerSource scheduler.Source
	metrics         *observability.Metrics
	tracer          *observability.Tracer
	logger          *slog.Logger

	rules        *rule.Service
	executor     *action.Executor
	orchestrator *dispatch.Orchestrator
	dispatcher   *dispatch.Dispatcher
	queue        *dispatch.Queue
	workers      *dispatch.Engine
	dlqSvc       *dlq.Service
	sched        *scheduler.Scheduler
}

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.store == nil {
		return nil, ErrNoStore
	}
	e.wireServices()
	return e, nil
}

// wireServices initializes the internal services after options have been
// applied. The action handlers see the Engine itself as their cascade sink,
// so rule-emitted events re-enter the queue with the same guarantees as
// host-emitted ones.
func (e *Engine) wireServices() {
	e.rules = rule.NewService(e.store, rule.Config{
		CacheTTL: e.config.CacheTTL,
	}, e.logger)

	e.executor = action.NewExecutor(e.logger)

	webhookCfg := action.DefaultWebhookConfig()
	webhookCfg.Timeout = e.config.WebhookTimeout
	webhookCfg.AllowPrivateHosts = e.config.AllowPrivateWebhookHosts
	action.RegisterDefaults(e.executor, e.channels, e, webhookCfg, e.logger)

	e.orchestrator = dispatch.NewOrchestrator(e.store, e.executor, e.metrics, e.logger)

	e.dispatcher = dispatch.NewDispatcher(e.rules, e.orchestrator, e.store,
		e.config.LedgerTTL, e.metrics, e.tracer, e.logger)

	e.queue = dispatch.NewQueue(e.store, e.dispatcher, e.config.MaxRetries, e.metrics, e.logger)

	e.dlqSvc = dlq.NewService(e.store, e.logger)

	e.workers = dispatch.NewEngine(e.store, e.dispatcher, e.dlqSvc, dispatch.EngineConfig{
		Concurrency:   e.config.Concurrency,
		PollInterval:  e.config.PollInterval,
		BatchSize:     e.config.BatchSize,
		RetrySchedule: e.config.RetrySchedule,
		Metrics:       e.metrics,
	}, e.logger)

	if e.schedulerSource != nil {
		e.sched = scheduler.New(e.schedulerSource, e.queue, scheduler.Config{
			Interval: e.config.SchedulerInterval,
			Window:   e.config.SchedulerWindow,
		}, e.logger)
	}
}

// Start begins the dispatch workers and, when a source is configured, the
// deadline scheduler.
func (e *Engine) Start(ctx context.Context) {
	e.workers.Start(ctx)
	if e.sched != nil {
		e.sched.Start(ctx)
	}
}

// Stop gracefully shuts down the workers and scheduler, waiting for in-flight
// jobs to complete.
func (e *Engine) Stop(ctx context.Context) {
	if e.sched != nil {
		e.sched.Stop(ctx)
	}
	e.workers.Stop(ctx)
}

// Trigger queues a domain event for rule dispatch. The call returns once the
// event is durably queued (or handed to the degraded in-process path); rule
// evaluation happens asynchronously on the worker pool.
func (e *Engine) Trigger(ctx context.Context, evt *event.Event) error {
	return e.queue.Enqueue(ctx, evt)
}

// Cascade accepts an event emitted by a rule action, for example the status
// change a stage-assign action caused. Implements action.Cascader. The event
// carries its parent's depth plus one, which the dispatcher bounds.
func (e *Engine) Cascade(ctx context.Context, evt *event.Event) error {
	return e.queue.Enqueue(ctx, evt)
}

// Dispatch processes an event synchronously, bypassing the queue. Intended
// for request-path usage where the caller wants the per-rule results; most
// callers should use Trigger.
func (e *Engine) Dispatch(ctx context.Context, evt *event.Event) *dispatch.Result {
	if evt.ID.IsNil() {
		evt.ID = id.NewEventID()
	}
	return e.dispatcher.Dispatch(ctx, evt)
}

// TestRule runs a rule against a sample event without consuming throttle
// budget or recording history, and reports what would have happened. The
// rule's actions DO execute, so point test events at sandbox channels.
func (e *Engine) TestRule(ctx context.Context, ruleID id.ID, evt *event.Event) (*dispatch.RuleExecutionResult, error) {
	r, err := e.rules.Get(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if evt.ID.IsNil() {
		evt.ID = id.NewEventID()
	}
	return e.orchestrator.ExecuteDry(ctx, r, evt), nil
}

// Durable reports whether the dispatch queue is writing to the store. False
// means enqueues are falling back to in-process dispatch without retries.
func (e *Engine) Durable() bool {
	return e.queue.Durable()
}

// Rules returns the rule management service.
func (e *Engine) Rules() *rule.Service {
	return e.rules
}

// Actions returns the action executor, for registering custom handlers.
func (e *Engine) Actions() *action.Executor {
	return e.executor
}

// DLQ returns the dead letter queue service.
func (e *Engine) DLQ() *dlq.Service {
	return e.dlqSvc
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store {
	return e.store
}

// Scheduler returns the deadline scheduler, or nil when no source was
// configured.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.sched
}
