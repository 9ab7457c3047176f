package observability

import (
	"testing"

	gu "github.com/xraph/go-utils/metrics"
)

func newTestMetrics() *Metrics {
	return NewMetrics(gu.NewMetricsCollector("cascade_test"))
}

func TestNewMetricsInstruments(t *testing.T) {
	m := newTestMetrics()

	if m.EventsTriggeredTotal == nil {
		t.Fatal("EventsTriggeredTotal should not be nil")
	}
	if m.EventsDedupedTotal == nil {
		t.Fatal("EventsDedupedTotal should not be nil")
	}
	if m.RulesEvaluatedTotal == nil {
		t.Fatal("RulesEvaluatedTotal should not be nil")
	}
	if m.ActionsTotal == nil {
		t.Fatal("ActionsTotal should not be nil")
	}
	if m.DispatchLatency == nil {
		t.Fatal("DispatchLatency should not be nil")
	}
	if m.PendingJobs == nil {
		t.Fatal("PendingJobs should not be nil")
	}
	if m.DLQSize == nil {
		t.Fatal("DLQSize should not be nil")
	}
}

func TestRecordHelpers(t *testing.T) {
	m := newTestMetrics()

	// The helpers fan out to labeled instruments; this exercises the label
	// plumbing so a renamed label key fails loudly here.
	m.RecordRule("executed")
	m.RecordRule("throttled")
	m.RecordRule("no_match")
	m.RecordAction("send_email", "success")
	m.RecordAction("webhook", "failure")
	m.RecordDispatch(0.25)

	m.PendingJobs.Inc()
	m.PendingJobs.Dec()
	m.DLQSize.Set(3)
}
