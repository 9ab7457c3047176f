package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for Cascade, backed by any go-utils
// MetricFactory.
type Metrics struct {
	EventsTriggeredTotal Counter
	EventsDedupedTotal   Counter
	RulesEvaluatedTotal  Counter
	ActionsTotal         Counter
	DispatchLatency      Histogram
	PendingJobs          Gauge
	DLQSize              Gauge
}

// Aliases so callers outside this package can hold instrument references
// without importing go-utils directly.
type (
	Counter   = gu.Counter
	Gauge     = gu.Gauge
	Histogram = gu.Histogram
)

// NewMetrics creates Cascade metric instruments using the supplied factory.
// Pass metrics.NewMetricsCollector() for standalone usage.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		EventsTriggeredTotal: factory.Counter("cascade_events_triggered_total"),
		EventsDedupedTotal:   factory.Counter("cascade_events_deduped_total"),
		RulesEvaluatedTotal:  factory.Counter("cascade_rules_evaluated_total"),
		ActionsTotal:         factory.Counter("cascade_actions_total"),
		DispatchLatency:      factory.Histogram("cascade_dispatch_latency_seconds"),
		PendingJobs:          factory.Gauge("cascade_pending_jobs"),
		DLQSize:              factory.Gauge("cascade_dlq_size"),
	}
}

// RecordRule records one rule evaluation with its outcome
// (executed, throttled, no_match, error).
func (m *Metrics) RecordRule(status string) {
	m.RulesEvaluatedTotal.WithLabels(map[string]string{"status": status}).Inc()
}

// RecordAction records one action execution.
func (m *Metrics) RecordAction(actionType, status string) {
	m.ActionsTotal.WithLabels(map[string]string{
		"type":   actionType,
		"status": status,
	}).Inc()
}

// RecordDispatch records one dispatched event with its processing latency.
func (m *Metrics) RecordDispatch(latencySeconds float64) {
	m.EventsTriggeredTotal.Inc()
	m.DispatchLatency.Observe(latencySeconds)
}
