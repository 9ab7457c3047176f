package dispatch

import "time"

// Decision is the outcome of evaluating a failed dispatch attempt.
type Decision int

const (
	// Retry means the job should be attempted again after backoff.
	Retry Decision = iota

	// Fail means the job has exhausted its attempts and moves to the DLQ.
	Fail
)

// Retrier decides what to do with a job after a failed dispatch attempt.
type Retrier struct {
	schedule []time.Duration
}

// NewRetrier creates a retrier with the given backoff schedule. Attempts past
// the end of the schedule reuse its last interval.
func NewRetrier(schedule []time.Duration) *Retrier {
	return &Retrier{schedule: schedule}
}

// Decide returns Retry while the job has attempts remaining, otherwise Fail.
// Dispatch failures are always infrastructure-shaped (store unreachable, rule
// load failed), so there is no permanent-error short circuit the way an HTTP
// client error would have one.
func (r *Retrier) Decide(j *Job) Decision {
	if j.AttemptCount < j.MaxAttempts {
		return Retry
	}
	return Fail
}

// ComputeNextAttempt returns the time at which the next attempt should occur.
func (r *Retrier) ComputeNextAttempt(attemptCount int) time.Time {
	idx := attemptCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.schedule) {
		idx = len(r.schedule) - 1
	}
	return time.Now().UTC().Add(r.schedule[idx])
}
