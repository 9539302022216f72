package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"giftcanvas-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisJobQueueRepository implements JobQueueRepository on a Redis list
// plus a per-job hash for state tracking.
type RedisJobQueueRepository struct {
	client *redis.Client
}

// NewRedisJobQueueRepository creates a Redis-backed job queue.
func NewRedisJobQueueRepository(client *redis.Client) *RedisJobQueueRepository {
	return &RedisJobQueueRepository{client: client}
}

func queueKey(accountID string) string {
	return "queue:" + accountID
}

func jobKey(accountID, jobID string) string {
	return "job:" + accountID + ":" + jobID
}

// Push appends a job to the queue tail.
func (r *RedisJobQueueRepository) Push(ctx context.Context, accountID string, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}
	if err := r.client.RPush(ctx, queueKey(accountID), data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Pop blocks up to wait for the queue head. Returns (nil, nil) when the
// queue stayed empty for the whole wait.
func (r *RedisJobQueueRepository) Pop(ctx context.Context, accountID string, wait time.Duration) (*model.Job, error) {
	vals, err := r.client.BLPop(ctx, wait, queueKey(accountID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}
	// BLPop returns [key, value].
	if len(vals) < 2 {
		return nil, nil
	}

	var job model.Job
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	return &job, nil
}

// List returns queued jobs head-first. Undecodable rows are skipped.
func (r *RedisJobQueueRepository) List(ctx context.Context, accountID string) ([]model.Job, error) {
	rows, err := r.client.LRange(ctx, queueKey(accountID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	jobs := make([]model.Job, 0, len(rows))
	for _, row := range rows {
		var job model.Job
		if err := json.Unmarshal([]byte(row), &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// SaveState persists the job's state hash.
func (r *RedisJobQueueRepository) SaveState(ctx context.Context, accountID string, job *model.Job) error {
	err := r.client.HSet(ctx, jobKey(accountID, job.JobID), map[string]any{
		"jobId":     job.JobID,
		"user":      job.User,
		"imageUrl":  job.ImageURL,
		"status":    job.Status,
		"createdAt": job.CreatedAt,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to save job state: %w", err)
	}
	return nil
}

var _ JobQueueRepository = (*RedisJobQueueRepository)(nil)
