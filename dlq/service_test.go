package dlq_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/cascade/dispatch"
	"github.com/xraph/cascade/dlq"
	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/internal/entity"
	"github.com/xraph/cascade/store/memory"
)

func ctx() context.Context { return context.Background() }

func newService() (*dlq.Service, *memory.Store) {
	store := memory.New()
	svc := dlq.NewService(store, nil)
	return svc, store
}

func failedJob() (*dispatch.Job, *event.Event) {
	evt := &event.Event{
		ID:       id.NewEventID(),
		Type:     "application.status_changed",
		TenantID: "tenant-1",
		EntityID: "app-42",
		Payload:  map[string]any{"newStatus": "rejected"},
	}
	j := &dispatch.Job{
		Entity:       entity.New(),
		ID:           id.NewJobID(),
		EventID:      evt.ID,
		TenantID:     evt.TenantID,
		EventType:    evt.Type,
		Event:        evt,
		State:        dispatch.StateFailed,
		AttemptCount: 3,
	}
	return j, evt
}

func TestPushFailed(t *testing.T) {
	svc, store := newService()

	j, evt := failedJob()
	if err := svc.PushFailed(ctx(), j, evt, "store unreachable"); err != nil {
		t.Fatal(err)
	}

	entries, err := store.ListDLQ(ctx(), dlq.ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.JobID != j.ID {
		t.Fatalf("job ID mismatch: got %v, want %v", entry.JobID, j.ID)
	}
	if entry.EventID != j.EventID {
		t.Fatalf("event ID mismatch")
	}
	if entry.EventType != "application.status_changed" {
		t.Fatalf("event type: got %q", entry.EventType)
	}
	if entry.TenantID != "tenant-1" {
		t.Fatalf("tenant ID: got %q", entry.TenantID)
	}
	if entry.EntityID != "app-42" {
		t.Fatalf("entity ID: got %q", entry.EntityID)
	}
	if entry.Error != "store unreachable" {
		t.Fatalf("error: got %q", entry.Error)
	}
	if entry.AttemptCount != 3 {
		t.Fatalf("attempt count: got %d, want 3", entry.AttemptCount)
	}
	if entry.Payload["newStatus"] != "rejected" {
		t.Fatalf("payload not preserved: %v", entry.Payload)
	}
}

func TestPushMultipleAndList(t *testing.T) {
	svc, _ := newService()

	for range 3 {
		j, evt := failedJob()
		if err := svc.PushFailed(ctx(), j, evt, "err"); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := svc.List(ctx(), dlq.ListOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
}

func TestGetDLQEntry(t *testing.T) {
	svc, _ := newService()

	j, evt := failedJob()
	if err := svc.PushFailed(ctx(), j, evt, "err"); err != nil {
		t.Fatal(err)
	}

	entries, _ := svc.List(ctx(), dlq.ListOpts{Limit: 1})
	if len(entries) == 0 {
		t.Fatal("expected at least 1 entry")
	}

	got, err := svc.Get(ctx(), entries[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != entries[0].ID {
		t.Fatal("ID mismatch on Get")
	}
}

func TestCount(t *testing.T) {
	svc, _ := newService()

	count, err := svc.Count(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}

	for range 5 {
		j, evt := failedJob()
		svc.PushFailed(ctx(), j, evt, "err")
	}

	count, err = svc.Count(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Fatalf("expected 5, got %d", count)
	}
}

func TestReplay(t *testing.T) {
	svc, store := newService()

	j, evt := failedJob()
	svc.PushFailed(ctx(), j, evt, "err")

	entries, _ := svc.List(ctx(), dlq.ListOpts{Limit: 1})
	if len(entries) == 0 {
		t.Fatal("expected entry")
	}

	if err := svc.Replay(ctx(), entries[0].ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetDLQ(ctx(), entries[0].ID)
	if got.ReplayedAt == nil {
		t.Fatal("expected replayed_at to be set")
	}

	// Replay re-enqueues the event as a fresh pending job.
	pending, err := store.CountPendingJobs(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if pending != 1 {
		t.Fatalf("expected 1 pending job after replay, got %d", pending)
	}
}

func TestPurge(t *testing.T) {
	svc, _ := newService()

	for range 3 {
		j, evt := failedJob()
		svc.PushFailed(ctx(), j, evt, "err")
	}

	purged, err := svc.Purge(ctx(), time.Now().Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 3 {
		t.Fatalf("expected 3 purged, got %d", purged)
	}

	count, _ := svc.Count(ctx())
	if count != 0 {
		t.Fatalf("expected 0 after purge, got %d", count)
	}
}
