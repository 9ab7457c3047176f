package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/cascade"
	"github.com/xraph/cascade/dispatch"
	"github.com/xraph/cascade/id"
)

// dequeueScript atomically claims due jobs from the pending sorted set.
// KEYS[1] = cascade:z:job:pending
// ARGV[1] = current unix timestamp (score threshold)
// ARGV[2] = limit
var dequeueScript = goredis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #ids == 0 then return {} end
for i, id in ipairs(ids) do
    redis.call('ZREM', KEYS[1], id)
end
return ids
`)

func (s *Store) EnqueueJob(ctx context.Context, j *dispatch.Job) error {
	key := entityKey(prefixJob, j.ID.String())
	if err := s.setEntity(ctx, key, j); err != nil {
		return fmt.Errorf("cascade/redis: enqueue job: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zJobPend, goredis.Z{Score: scoreFromTime(j.NextAttemptAt), Member: j.ID.String()})
	pipe.ZAdd(ctx, zJobAll, goredis.Z{Score: scoreFromTime(j.CreatedAt), Member: j.ID.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cascade/redis: enqueue job indexes: %w", err)
	}
	return nil
}

func (s *Store) DequeueJobs(ctx context.Context, limit int) ([]*dispatch.Job, error) {
	nowScore := fmt.Sprintf("%f", scoreFromTime(now()))
	claimed, err := dequeueScript.Run(ctx, s.rdb, []string{zJobPend}, nowScore, limit).StringSlice()
	if err != nil {
		if isRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cascade/redis: dequeue script: %w", err)
	}
	if len(claimed) == 0 {
		return nil, nil
	}

	jobs := make([]*dispatch.Job, 0, len(claimed))
	for _, jobID := range claimed {
		var j dispatch.Job
		if err := s.getEntity(ctx, entityKey(prefixJob, jobID), &j); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("cascade/redis: dequeue get: %w", err)
		}
		jobs = append(jobs, &j)
	}

	return jobs, nil
}

func (s *Store) UpdateJob(ctx context.Context, j *dispatch.Job) error {
	j.Touch()
	key := entityKey(prefixJob, j.ID.String())
	if err := s.setEntity(ctx, key, j); err != nil {
		return fmt.Errorf("cascade/redis: update job: %w", err)
	}

	// A job updated back to pending re-enters the queue at its backoff time.
	if j.State == dispatch.StatePending {
		s.rdb.ZAdd(ctx, zJobPend, goredis.Z{Score: scoreFromTime(j.NextAttemptAt), Member: j.ID.String()})
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID id.ID) (*dispatch.Job, error) {
	var j dispatch.Job
	if err := s.getEntity(ctx, entityKey(prefixJob, jobID.String()), &j); err != nil {
		if isNotFound(err) {
			return nil, cascade.ErrJobNotFound
		}
		return nil, fmt.Errorf("cascade/redis: get job: %w", err)
	}
	return &j, nil
}

func (s *Store) ListJobs(ctx context.Context, opts dispatch.JobListOpts) ([]*dispatch.Job, error) {
	ids, err := s.rdb.ZRange(ctx, zJobAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cascade/redis: list jobs: %w", err)
	}

	result := make([]*dispatch.Job, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- { // reverse for DESC order
		var j dispatch.Job
		if err := s.getEntity(ctx, entityKey(prefixJob, ids[i]), &j); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if opts.State != nil && j.State != *opts.State {
			continue
		}
		result = append(result, &j)
	}

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountPendingJobs(ctx context.Context) (int64, error) {
	count, err := s.rdb.ZCard(ctx, zJobPend).Result()
	if err != nil {
		return 0, fmt.Errorf("cascade/redis: count pending: %w", err)
	}
	return count, nil
}
