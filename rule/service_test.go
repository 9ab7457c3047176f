package rule_test

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/rule"
	"github.com/xraph/cascade/store/memory"
)

func ctx() context.Context { return context.Background() }

func newService(cacheTTL time.Duration) (*rule.Service, *memory.Store) {
	s := memory.New()
	svc := rule.NewService(s, rule.Config{CacheTTL: cacheTTL}, nil)
	return svc, s
}

func input(name string, priority int) rule.Input {
	return rule.Input{
		TenantID:  "t1",
		Name:      name,
		EventType: event.ApplicationReceived,
		Actions: []rule.Action{
			{Type: rule.ActionAddTag, Enabled: true, Config: map[string]any{"tag": "x"}},
		},
		Priority: priority,
	}
}

func TestCreateStartsActiveWithFreshWindows(t *testing.T) {
	svc, _ := newService(0)

	r, err := svc.Create(ctx(), input("r", 0))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Active {
		t.Fatal("new rules start active")
	}
	if r.Throttle.HourResetAt.IsZero() || r.Throttle.DayResetAt.IsZero() {
		t.Fatal("expected initialized throttle windows")
	}
	if r.ID.IsNil() {
		t.Fatal("expected assigned ID")
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	svc, _ := newService(0)

	bad := input("r", 0)
	bad.Actions = []rule.Action{{Type: "launch_rocket"}}
	if _, err := svc.Create(ctx(), bad); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestActiveForEventOrdering(t *testing.T) {
	svc, _ := newService(0)

	low, err := svc.Create(ctx(), input("low", 1))
	if err != nil {
		t.Fatal(err)
	}
	high, err := svc.Create(ctx(), input("high", 9))
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.ActiveForEvent(ctx(), "t1", event.ApplicationReceived)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != high.ID || got[1].ID != low.ID {
		t.Fatalf("expected priority order, got %d rules", len(got))
	}
}

func TestActiveForEventCacheServesStale(t *testing.T) {
	svc, s := newService(time.Minute)

	r, err := svc.Create(ctx(), input("r", 0))
	if err != nil {
		t.Fatal(err)
	}

	// Prime the cache.
	if _, err := svc.ActiveForEvent(ctx(), "t1", event.ApplicationReceived); err != nil {
		t.Fatal(err)
	}

	// Mutate behind the service's back; the cache keeps serving.
	if err := s.DeleteRule(ctx(), r.ID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.ActiveForEvent(ctx(), "t1", event.ApplicationReceived)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected cached rule, got %d", len(got))
	}

	// Invalidation forces a fresh read.
	svc.InvalidateCache()
	got, err = svc.ActiveForEvent(ctx(), "t1", event.ApplicationReceived)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected fresh read after invalidation, got %d", len(got))
	}
}

func TestSetActiveDropsFromDispatch(t *testing.T) {
	svc, _ := newService(0)

	r, err := svc.Create(ctx(), input("r", 0))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.SetActive(ctx(), r.ID, false); err != nil {
		t.Fatal(err)
	}

	got, err := svc.ActiveForEvent(ctx(), "t1", event.ApplicationReceived)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no active rules, got %d", len(got))
	}

	stored, err := svc.Get(ctx(), r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Active {
		t.Fatal("expected rule inactive")
	}
}

func TestDeleteRemovesRule(t *testing.T) {
	svc, _ := newService(0)

	r, err := svc.Create(ctx(), input("r", 0))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx(), r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx(), r.ID); err == nil {
		t.Fatal("expected not found after delete")
	}
}
