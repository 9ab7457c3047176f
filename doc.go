// Package cascade provides a composable automation rule engine for Go.
//
// Cascade is a library — not a service. Import it into your application to
// let tenants define trigger/condition/action rules that run automatically
// when domain events occur: send a rejection email when an application status
// changes, open a conversation thread when a candidate replies, call a
// webhook when an interview is scheduled.
//
// Key features:
//   - Tenant-scoped rules with a fixed, validated condition operator set
//   - Durable at-least-once dispatch queue with backoff retries and a DLQ,
//     degrading to in-process dispatch when the store is unreachable
//   - Write-then-process idempotency ledger so duplicate events are suppressed
//   - Cascade depth tracking so rule-triggered events cannot recurse unbounded
//   - Per-rule hourly/daily caps and cooldowns
//   - Built-in action handlers (notification, email, SMS, threads, interviews,
//     stage/tag/field mutations, signed webhooks) wired to host channels
//   - Hourly scheduler for time-based triggers such as approaching deadlines
//
// Quick start:
//
//	eng, err := cascade.New(
//	    cascade.WithStore(memoryStore),
//	    cascade.WithChannels(myChannels),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	eng.Start(ctx)
//	defer eng.Stop(ctx)
//
//	eng.Rules().Create(ctx, rule.Input{
//	    TenantID:  "tenant_123",
//	    Name:      "Rejection email",
//	    EventType: event.ApplicationStatusChanged,
//	    Conditions: []rule.Condition{
//	        {Field: "newStatus", Operator: rule.OpEquals, Value: "rejected"},
//	    },
//	    Actions: []rule.Action{
//	        {Type: rule.ActionSendEmail, Enabled: true, Config: map[string]any{
//	            "to":      "{{applicantEmail}}",
//	            "subject": "Your application",
//	            "body":    "Thank you for applying.",
//	        }},
//	    },
//	})
//
//	eng.Trigger(ctx, &event.Event{
//	    Type:     event.ApplicationStatusChanged,
//	    TenantID: "tenant_123",
//	    EntityID: "app_42",
//	    Payload:  map[string]any{"newStatus": "rejected", "applicantEmail": "a@b.c"},
//	})
package cascade
