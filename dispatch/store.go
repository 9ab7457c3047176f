package dispatch

import (
	"context"

	"github.com/xraph/cascade/id"
)

// Store is the persistence contract for the dispatch job queue.
type Store interface {
	// EnqueueJob persists a pending job.
	EnqueueJob(ctx context.Context, j *Job) error

	// DequeueJobs atomically claims up to limit pending jobs whose
	// NextAttemptAt has passed. A claimed job is not returned again unless
	// its update puts it back into the pending state.
	DequeueJobs(ctx context.Context, limit int) ([]*Job, error)

	// UpdateJob persists job mutations; a job updated back to StatePending
	// re-enters the queue at its NextAttemptAt.
	UpdateJob(ctx context.Context, j *Job) error

	// GetJob returns a job by ID.
	GetJob(ctx context.Context, jobID id.ID) (*Job, error)

	// ListJobs returns jobs matching the given options, newest first.
	ListJobs(ctx context.Context, opts JobListOpts) ([]*Job, error)

	// CountPendingJobs returns the number of jobs awaiting dispatch.
	CountPendingJobs(ctx context.Context) (int64, error)
}
