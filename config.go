package cascade

import "time"

// Config holds the configuration for an Engine instance.
type Config struct {
	// Concurrency is the number of dispatch worker goroutines.
	Concurrency int

	// PollInterval is how often the engine checks for pending jobs.
	PollInterval time.Duration

	// BatchSize is the maximum number of jobs dequeued per poll cycle.
	BatchSize int

	// MaxRetries is the maximum number of dispatch attempts per job.
	MaxRetries int

	// RetrySchedule defines the backoff intervals between retry attempts.
	RetrySchedule []time.Duration

	// WebhookTimeout is the HTTP timeout per webhook action call.
	WebhookTimeout time.Duration

	// AllowPrivateWebhookHosts disables the webhook SSRF guard.
	// For local development only.
	AllowPrivateWebhookHosts bool

	// LedgerTTL is how long a processed event suppresses duplicates.
	LedgerTTL time.Duration

	// CacheTTL is the TTL for the in-memory active-rule cache.
	// Set to 0 to disable caching.
	CacheTTL time.Duration

	// SchedulerInterval is how often the deadline scheduler scans its source.
	SchedulerInterval time.Duration

	// SchedulerWindow is how far ahead of a deadline an entity counts as due.
	SchedulerWindow time.Duration
}

// DefaultRetrySchedule defines the default backoff intervals between
// dispatch attempts.
var DefaultRetrySchedule = []time.Duration{
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       4,
		PollInterval:      1 * time.Second,
		BatchSize:         25,
		MaxRetries:        3,
		RetrySchedule:     DefaultRetrySchedule,
		WebhookTimeout:    5 * time.Second,
		LedgerTTL:         7 * 24 * time.Hour,
		CacheTTL:          30 * time.Second,
		SchedulerInterval: time.Hour,
		SchedulerWindow:   24 * time.Hour,
	}
}
