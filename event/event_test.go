package event

import (
	"testing"

	"github.com/xraph/cascade/id"
)

func TestLookup(t *testing.T) {
	payload := map[string]any{
		"status": "hired",
		"application": map[string]any{
			"job": map[string]any{"title": "SRE"},
		},
	}

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"status", "hired", true},
		{"application.job.title", "SRE", true},
		{"application.job", map[string]any(nil), true}, // value compared below
		{"application.missing", nil, false},
		{"status.deeper", nil, false}, // scalar in the middle of the path
		{"", nil, false},
	}

	for _, tt := range tests {
		got, ok := Lookup(payload, tt.path)
		if ok != tt.ok {
			t.Fatalf("Lookup(%q) ok = %v, want %v", tt.path, ok, tt.ok)
		}
		if !ok {
			continue
		}
		if tt.path == "application.job" {
			if _, isMap := got.(map[string]any); !isMap {
				t.Fatalf("Lookup(%q) = %T, want map", tt.path, got)
			}
			continue
		}
		if got != tt.want {
			t.Fatalf("Lookup(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestLookupNilPayload(t *testing.T) {
	if _, ok := Lookup(nil, "anything"); ok {
		t.Fatal("nil payload should resolve nothing")
	}
}

func TestChild(t *testing.T) {
	parent := &Event{
		ID:       id.NewEventID(),
		Type:     ApplicationStatusChanged,
		TenantID: "t1",
		EntityID: "app-1",
		Depth:    1,
		Payload:  map[string]any{"oldStatus": "screening"},
	}

	child := parent.Child(ApplicationStageChanged, map[string]any{"newStage": "onsite"})

	if child.Depth != 2 {
		t.Fatalf("expected depth 2, got %d", child.Depth)
	}
	if child.ID == parent.ID {
		t.Fatal("child must carry a fresh identity")
	}
	if child.TenantID != "t1" || child.EntityID != "app-1" {
		t.Fatal("child must inherit tenant and entity")
	}
	if child.Type != ApplicationStageChanged {
		t.Fatalf("unexpected child type %q", child.Type)
	}
	if _, ok := child.Field("oldStatus"); ok {
		t.Fatal("child payload is the caller's, not the parent's")
	}
	if child.OccurredAt.IsZero() {
		t.Fatal("expected child timestamp")
	}
}

func TestField(t *testing.T) {
	e := &Event{Payload: map[string]any{"score": 7}}
	v, ok := e.Field("score")
	if !ok || v != 7 {
		t.Fatalf("Field = %v %v", v, ok)
	}
	if _, ok := e.Field("absent"); ok {
		t.Fatal("absent field should not resolve")
	}
}
