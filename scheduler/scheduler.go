// Package scheduler produces time-based trigger events, such as approaching
// job posting deadlines, by periodically scanning a tenant-provided source.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/cascade/event"
)

// Entity is one schedulable item returned by a Source scan.
type Entity struct {
	// TenantID owns the entity.
	TenantID string

	// EntityID identifies the entity, for example a job posting ID.
	EntityID string

	// EventType is the trigger event to emit for this entity.
	EventType string

	// DueAt is the deadline the entity is approaching.
	DueAt time.Time

	// Payload becomes the emitted event's payload.
	Payload map[string]any
}

// Source is the host application's view of schedulable entities. Cascade does
// not own the job posting tables, so the host supplies the scan and the
// triggered flag.
type Source interface {
	// DueEntities returns entities whose deadline falls within the window
	// and that have not been flagged as triggered yet.
	DueEntities(ctx context.Context, within time.Duration) ([]Entity, error)

	// MarkTriggered flags an entity so later scans skip it. The flag is set
	// only after its event was accepted for dispatch.
	MarkTriggered(ctx context.Context, tenantID, entityID string) error
}

// Enqueuer accepts events for dispatch.
type Enqueuer interface {
	Enqueue(ctx context.Context, evt *event.Event) error
}

// Config holds scheduler configuration.
type Config struct {
	// Interval is how often the source is scanned. Defaults to one hour.
	Interval time.Duration

	// Window is how far ahead of the deadline an entity counts as due.
	// Defaults to 24 hours.
	Window time.Duration

	// InitialDelay is the pause before the first scan, so a restart does not
	// hammer the source while the rest of the system is still warming up.
	InitialDelay time.Duration
}

// Scheduler runs periodic scans and emits deadline trigger events.
type Scheduler struct {
	source   Source
	enqueuer Enqueuer
	config   Config
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(source Source, enqueuer Enqueuer, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 10 * time.Second
	}
	return &Scheduler{
		source:   source,
		enqueuer: enqueuer,
		config:   cfg,
		logger:   logger,
	}
}

// Start begins the periodic scan loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

// Stop cancels the scan loop and waits for an in-flight scan to finish.
func (s *Scheduler) Stop(_ context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.config.InitialDelay):
	}

	if err := s.CheckTimeBasedTriggers(ctx); err != nil {
		s.logger.ErrorContext(ctx, "scheduler scan failed", "error", err)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.CheckTimeBasedTriggers(ctx); err != nil {
				s.logger.ErrorContext(ctx, "scheduler scan failed", "error", err)
			}
		}
	}
}

// CheckTimeBasedTriggers scans the source once and enqueues one event per due
// entity. An entity is flagged only after its event was accepted, so an
// enqueue failure leaves it due for the next scan rather than silently
// dropped. Per-entity failures do not stop the scan.
func (s *Scheduler) CheckTimeBasedTriggers(ctx context.Context) error {
	due, err := s.source.DueEntities(ctx, s.config.Window)
	if err != nil {
		return fmt.Errorf("scheduler: scan due entities: %w", err)
	}

	for _, ent := range due {
		evt := &event.Event{
			Type:       ent.EventType,
			TenantID:   ent.TenantID,
			EntityID:   ent.EntityID,
			Payload:    ent.Payload,
			OccurredAt: time.Now().UTC(),
		}
		if evt.Type == "" {
			evt.Type = event.JobDeadlineApproaching
		}

		if err := s.enqueuer.Enqueue(ctx, evt); err != nil {
			s.logger.ErrorContext(ctx, "enqueue deadline event failed",
				"tenant_id", ent.TenantID, "entity_id", ent.EntityID, "error", err)
			continue
		}

		if err := s.source.MarkTriggered(ctx, ent.TenantID, ent.EntityID); err != nil {
			// The event is already queued. A failed flag means the next scan
			// may emit a duplicate, which the dispatch ledger absorbs.
			s.logger.WarnContext(ctx, "mark triggered failed",
				"tenant_id", ent.TenantID, "entity_id", ent.EntityID, "error", err)
		}

		s.logger.DebugContext(ctx, "deadline event emitted",
			"tenant_id", ent.TenantID, "entity_id", ent.EntityID,
			"event_type", evt.Type, "due_at", ent.DueAt)
	}

	return nil
}
