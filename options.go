package cascade

import (
	"log/slog"
	"time"

	"github.com/xraph/cascade/action"
	"github.com/xraph/cascade/observability"
	"github.com/xraph/cascade/scheduler"
	"github.com/xraph/cascade/store"
)

// Option configures an Engine instance.
type Option func(*Engine) error

// WithStore sets the persistence backend for the Engine instance.
func WithStore(s store.Store) Option {
	return func(e *Engine) error {
		e.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Engine instance.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithChannels sets the host-application side-effect channels used by the
// built-in action handlers. Channels left nil make the corresponding action
// fail with a configuration error rather than panic.
func WithChannels(ch action.Channels) Option {
	return func(e *Engine) error {
		e.channels = ch
		return nil
	}
}

// WithMetrics sets the metrics instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) error {
		e.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(e *Engine) error {
		e.tracer = t
		return nil
	}
}

// WithSchedulerSource sets the source scanned for time-based triggers such as
// approaching job deadlines. Without a source the scheduler does not run.
func WithSchedulerSource(src scheduler.Source) Option {
	return func(e *Engine) error {
		e.schedulerSource = src
		return nil
	}
}

// WithConcurrency sets the number of dispatch worker goroutines.
func WithConcurrency(n int) Option {
	return func(e *Engine) error {
		e.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets how often the engine checks for pending jobs.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.PollInterval = d
		return nil
	}
}

// WithBatchSize sets the maximum number of jobs dequeued per poll cycle.
func WithBatchSize(n int) Option {
	return func(e *Engine) error {
		e.config.BatchSize = n
		return nil
	}
}

// WithMaxRetries sets the maximum number of dispatch attempts per job.
func WithMaxRetries(n int) Option {
	return func(e *Engine) error {
		e.config.MaxRetries = n
		return nil
	}
}

// WithRetrySchedule sets the backoff intervals between retry attempts.
func WithRetrySchedule(schedule []time.Duration) Option {
	return func(e *Engine) error {
		e.config.RetrySchedule = schedule
		return nil
	}
}

// WithWebhookTimeout sets the HTTP timeout per webhook action call.
func WithWebhookTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.WebhookTimeout = d
		return nil
	}
}

// WithAllowPrivateWebhookHosts disables the webhook SSRF guard.
// For local development only.
func WithAllowPrivateWebhookHosts(allow bool) Option {
	return func(e *Engine) error {
		e.config.AllowPrivateWebhookHosts = allow
		return nil
	}
}

// WithLedgerTTL sets how long a processed event suppresses duplicates.
func WithLedgerTTL(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.LedgerTTL = d
		return nil
	}
}

// WithCacheTTL sets the TTL for the in-memory active-rule cache.
func WithCacheTTL(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.CacheTTL = d
		return nil
	}
}

// WithSchedulerInterval sets how often the deadline scheduler scans its source.
func WithSchedulerInterval(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.SchedulerInterval = d
		return nil
	}
}

// WithSchedulerWindow sets how far ahead of a deadline an entity counts as due.
func WithSchedulerWindow(d time.Duration) Option {
	return func(e *Engine) error {
		e.config.SchedulerWindow = d
		return nil
	}
}
