package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/cascade/action"
	"github.com/xraph/cascade/dispatch"
	"github.com/xraph/cascade/id"
	"github.com/xraph/cascade/rule"
	"github.com/xraph/cascade/store/memory"
)

// failingJobStore rejects every enqueue, forcing the degraded path.
type failingJobStore struct{}

func (failingJobStore) EnqueueJob(context.Context, *dispatch.Job) error {
	return errors.New("store unreachable")
}
func (failingJobStore) DequeueJobs(context.Context, int) ([]*dispatch.Job, error) {
	return nil, errors.New("store unreachable")
}
func (failingJobStore) UpdateJob(context.Context, *dispatch.Job) error {
	return errors.New("store unreachable")
}
func (failingJobStore) GetJob(context.Context, id.ID) (*dispatch.Job, error) {
	return nil, errors.New("store unreachable")
}
func (failingJobStore) ListJobs(context.Context, dispatch.JobListOpts) ([]*dispatch.Job, error) {
	return nil, errors.New("store unreachable")
}
func (failingJobStore) CountPendingJobs(context.Context) (int64, error) {
	return 0, errors.New("store unreachable")
}

func TestEnqueuePersistsPendingJob(t *testing.T) {
	s := memory.New()
	e := action.NewExecutor(nil)
	q := dispatch.NewQueue(s, newDispatcher(s, e), 3, nil, nil)

	evt := statusEvent("app-1")
	evt.ID = id.Nil // the queue assigns identity
	evt.OccurredAt = time.Time{}

	if err := q.Enqueue(context.Background(), evt); err != nil {
		t.Fatal(err)
	}
	if evt.ID.IsNil() || evt.OccurredAt.IsZero() {
		t.Fatal("enqueue must assign event identity and timestamp")
	}
	if !q.Durable() {
		t.Fatal("healthy store means durable")
	}

	n, err := s.CountPendingJobs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one pending job, got %d", n)
	}

	jobs, err := s.ListJobs(context.Background(), dispatch.JobListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs", len(jobs))
	}
	j := jobs[0]
	if j.State != dispatch.StatePending || j.MaxAttempts != 3 {
		t.Fatalf("got %+v", j)
	}
	if j.EventID != evt.ID || j.TenantID != evt.TenantID || j.EventType != evt.Type {
		t.Fatal("job must denormalize event identity")
	}
}

func TestEnqueueDegradedFallback(t *testing.T) {
	// Rules live in a healthy store; only the job queue is down.
	ruleStore := memory.New()
	dispatched := make(chan string, 1)
	e := action.NewExecutor(nil)
	e.Register(&stubHandler{typ: rule.ActionAddTag, fn: func(inv action.Invocation) action.Outcome {
		dispatched <- inv.Event.EntityID
		return action.Outcome{Success: true}
	}})
	storedRule(t, ruleStore, nil)

	q := dispatch.NewQueue(failingJobStore{}, newDispatcher(ruleStore, e), 3, nil, nil)

	// Storage failure is absorbed, not surfaced to the producer.
	if err := q.Enqueue(context.Background(), statusEvent("app-1")); err != nil {
		t.Fatal(err)
	}
	if q.Durable() {
		t.Fatal("failed enqueue must flag degraded mode")
	}

	select {
	case entity := <-dispatched:
		if entity != "app-1" {
			t.Fatalf("dispatched wrong event: %q", entity)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("degraded mode must still dispatch in-process")
	}
}

func TestDurableRecoversAfterSuccessfulEnqueue(t *testing.T) {
	s := memory.New()
	e := action.NewExecutor(nil)
	d := newDispatcher(s, e)

	degraded := dispatch.NewQueue(failingJobStore{}, d, 3, nil, nil)
	if err := degraded.Enqueue(context.Background(), statusEvent("app-1")); err != nil {
		t.Fatal(err)
	}
	if degraded.Durable() {
		t.Fatal("expected degraded")
	}

	// A queue over a healthy store reports durable after the next enqueue.
	healthy := dispatch.NewQueue(s, d, 3, nil, nil)
	if err := healthy.Enqueue(context.Background(), statusEvent("app-2")); err != nil {
		t.Fatal(err)
	}
	if !healthy.Durable() {
		t.Fatal("expected durable after successful enqueue")
	}
}
