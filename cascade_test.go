package cascade_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xraph/cascade"
	"github.com/xraph/cascade/action"
	"github.com/xraph/cascade/event"
	"github.com/xraph/cascade/rule"
	"github.com/xraph/cascade/store/memory"
)

func ctx() context.Context { return context.Background() }

// sandboxMailer records sent emails for assertions.
type sandboxMailer struct {
	sent []string
}

func (m *sandboxMailer) SendEmail(_ context.Context, to, _, _ string) error {
	m.sent = append(m.sent, to)
	return nil
}

func setup(t *testing.T) (*cascade.Engine, *memory.Store, *sandboxMailer) {
	t.Helper()
	s := memory.New()
	mailer := &sandboxMailer{}
	eng, err := cascade.New(
		cascade.WithStore(s),
		cascade.WithChannels(action.Channels{Email: mailer}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s, mailer
}

func emailRule(t *testing.T, eng *cascade.Engine, conditions []rule.Condition) *rule.Rule {
	t.Helper()
	r, err := eng.Rules().Create(ctx(), rule.Input{
		TenantID:   "t1",
		Name:       "rejection email",
		EventType:  event.ApplicationStatusChanged,
		Conditions: conditions,
		Actions: []rule.Action{
			{Type: rule.ActionSendEmail, Enabled: true, Config: map[string]any{
				"to":      "{{applicantEmail}}",
				"subject": "Your application",
				"body":    "Thank you for applying.",
			}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func statusEvent(entityID, status string) *event.Event {
	return &event.Event{
		Type:     event.ApplicationStatusChanged,
		TenantID: "t1",
		EntityID: entityID,
		Payload: map[string]any{
			"newStatus":      status,
			"applicantEmail": "candidate@example.com",
		},
	}
}

func TestTriggerEnqueuesJob(t *testing.T) {
	eng, s, _ := setup(t)

	emailRule(t, eng, nil)

	if err := eng.Trigger(ctx(), statusEvent("app-1", "rejected")); err != nil {
		t.Fatal(err)
	}

	pending, err := s.CountPendingJobs(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if pending != 1 {
		t.Fatalf("expected 1 pending job, got %d", pending)
	}
	if !eng.Durable() {
		t.Fatal("expected durable queue")
	}
}

func TestDispatchRunsMatchingRule(t *testing.T) {
	eng, _, mailer := setup(t)

	emailRule(t, eng, []rule.Condition{
		{Field: "newStatus", Operator: rule.OpEquals, Value: "rejected"},
	})

	res := eng.Dispatch(ctx(), statusEvent("app-1", "rejected"))
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.Executed != 1 {
		t.Fatalf("expected 1 executed rule, got %d", res.Executed)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "candidate@example.com" {
		t.Fatalf("expected email to candidate, got %v", mailer.sent)
	}
}

func TestDispatchNonMatchingRule(t *testing.T) {
	eng, _, mailer := setup(t)

	emailRule(t, eng, []rule.Condition{
		{Field: "newStatus", Operator: rule.OpEquals, Value: "rejected"},
	})

	res := eng.Dispatch(ctx(), statusEvent("app-1", "hired"))
	if res.Executed != 0 {
		t.Fatalf("expected 0 executed, got %d", res.Executed)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no email, got %v", mailer.sent)
	}
}

func TestDispatchDuplicateSuppressed(t *testing.T) {
	eng, _, mailer := setup(t)

	emailRule(t, eng, nil)

	first := eng.Dispatch(ctx(), statusEvent("app-1", "rejected"))
	if first.Duplicate {
		t.Fatal("first dispatch flagged duplicate")
	}

	second := eng.Dispatch(ctx(), statusEvent("app-1", "rejected"))
	if !second.Duplicate {
		t.Fatal("expected second dispatch to be duplicate")
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected exactly 1 email, got %d", len(mailer.sent))
	}
}

func TestDispatchDifferentEntitiesBothRun(t *testing.T) {
	eng, _, mailer := setup(t)

	emailRule(t, eng, nil)

	eng.Dispatch(ctx(), statusEvent("app-1", "rejected"))
	eng.Dispatch(ctx(), statusEvent("app-2", "rejected"))

	if len(mailer.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(mailer.sent))
	}
}

func TestDispatchRecursionLimit(t *testing.T) {
	eng, _, mailer := setup(t)

	emailRule(t, eng, nil)

	evt := statusEvent("app-1", "rejected")
	evt.Depth = event.MaxDepth + 1

	res := eng.Dispatch(ctx(), evt)
	if !res.RecursionLimited {
		t.Fatal("expected recursion limit to trip")
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no actions, got %d emails", len(mailer.sent))
	}
}

func TestTestRuleDryRun(t *testing.T) {
	eng, s, mailer := setup(t)

	r := emailRule(t, eng, []rule.Condition{
		{Field: "newStatus", Operator: rule.OpEquals, Value: "rejected"},
	})

	res, err := eng.TestRule(ctx(), r.ID, statusEvent("app-1", "rejected"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched {
		t.Fatal("expected match")
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected the action to run in test mode, got %d emails", len(mailer.sent))
	}

	// Dry run leaves no trace on the persisted rule.
	stored, err := s.GetRule(ctx(), r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Stats.Executions != 0 {
		t.Fatalf("expected 0 recorded executions, got %d", stored.Stats.Executions)
	}
	if len(stored.History) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(stored.History))
	}
}

func TestTenantIsolation(t *testing.T) {
	eng, _, mailer := setup(t)

	emailRule(t, eng, nil)

	evt := statusEvent("app-1", "rejected")
	evt.TenantID = "t2"

	res := eng.Dispatch(ctx(), evt)
	if res.Executed != 0 {
		t.Fatalf("expected 0 executed for other tenant, got %d", res.Executed)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no email, got %v", mailer.sent)
	}
}

func TestRuleStateRecordedAfterDispatch(t *testing.T) {
	eng, s, _ := setup(t)

	r := emailRule(t, eng, nil)

	eng.Dispatch(ctx(), statusEvent("app-1", "rejected"))

	stored, err := s.GetRule(ctx(), r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Stats.Executions != 1 {
		t.Fatalf("expected 1 execution, got %d", stored.Stats.Executions)
	}
	if stored.Stats.Successes != 1 {
		t.Fatalf("expected 1 success, got %d", stored.Stats.Successes)
	}
	if len(stored.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(stored.History))
	}
	if stored.Throttle.HourCount != 1 || stored.Throttle.DayCount != 1 {
		t.Fatalf("expected throttle counters 1/1, got %d/%d",
			stored.Throttle.HourCount, stored.Throttle.DayCount)
	}
}

func TestAllowPrivateWebhookHostsOption(t *testing.T) {
	received := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	eng, err := cascade.New(
		cascade.WithStore(memory.New()),
		cascade.WithAllowPrivateWebhookHosts(true),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := eng.Rules().Create(ctx(), rule.Input{
		TenantID:  "t1",
		Name:      "loopback webhook",
		EventType: event.ApplicationStatusChanged,
		Actions: []rule.Action{
			{Type: rule.ActionWebhook, Enabled: true, Config: map[string]any{"url": srv.URL}},
		},
	}); err != nil {
		t.Fatal(err)
	}

	res := eng.Dispatch(ctx(), statusEvent("app-1", "rejected"))
	if res.Executed != 1 {
		t.Fatalf("expected webhook rule to run against loopback, got %+v", res)
	}
	select {
	case <-received:
	default:
		t.Fatal("webhook never reached the loopback receiver")
	}
}

func TestCreateInvalidRule(t *testing.T) {
	eng, _, _ := setup(t)

	_, err := eng.Rules().Create(ctx(), rule.Input{
		TenantID:  "t1",
		Name:      "broken",
		EventType: event.ApplicationStatusChanged,
		Actions: []rule.Action{
			{Type: rule.ActionWebhook, Enabled: true, Config: map[string]any{}},
		},
	})
	if !errors.Is(err, cascade.ErrRuleInvalid) {
		t.Fatalf("expected ErrRuleInvalid, got %v", err)
	}
}

func TestNewWithoutStore(t *testing.T) {
	_, err := cascade.New()
	if err == nil {
		t.Fatal("expected error without store")
	}
}
