package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"mixlens/core/jobs"
	"mixlens/model"
)

const (
	jobKey       = "mixlens:job:%s"        // Hash: job status fields
	jobResultKey = "mixlens:job:%s:result" // String: result JSON
)

// JobCache is a jobs.Store kept in Redis. Both keys of a job expire after ttl.
type JobCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewJobCache creates a store on the shared client.
func NewJobCache(ttl time.Duration) *JobCache {
	return NewJobCacheWithClient(RedisClient, ttl)
}

// NewJobCacheWithClient creates a store on client.
func NewJobCacheWithClient(client *redis.Client, ttl time.Duration) *JobCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobCache{client: client, ttl: ttl}
}

var _ jobs.Store = (*JobCache)(nil)

func (c *JobCache) Create(ctx context.Context, job model.Job) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if job.State == "" {
		job.State = model.StateQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.UpdatedAt = job.CreatedAt

	key := fmt.Sprintf(jobKey, job.ID)
	ok, err := c.client.HSetNX(ctx, key, "id", job.ID).Result()
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", jobs.ErrExists, job.ID)
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, encodeJob(job))
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *JobCache) Get(ctx context.Context, id string) (model.Job, error) {
	if c.client == nil {
		return model.Job{}, fmt.Errorf("Redis client not initialized")
	}
	fields, err := c.client.HGetAll(ctx, fmt.Sprintf(jobKey, id)).Result()
	if err != nil {
		return model.Job{}, fmt.Errorf("failed to get job: %w", err)
	}
	if len(fields) == 0 {
		return model.Job{}, jobs.ErrNotFound
	}
	return decodeJob(fields), nil
}

func (c *JobCache) SetRunning(ctx context.Context, id string) error {
	return c.update(ctx, id, map[string]interface{}{"status": string(model.StateRunning)}, nil)
}

func (c *JobCache) Complete(ctx context.Context, id string, result *model.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fields := map[string]interface{}{
		"status":        string(model.StateDone),
		"error_kind":    "",
		"error_message": "",
	}
	return c.update(ctx, id, fields, data)
}

func (c *JobCache) Fail(ctx context.Context, id string, jobErr *model.JobError) error {
	fields := map[string]interface{}{"status": string(model.StateError)}
	if jobErr != nil {
		fields["error_kind"] = string(jobErr.Kind)
		fields["error_message"] = jobErr.Message
	}
	return c.update(ctx, id, fields, nil)
}

func (c *JobCache) Result(ctx context.Context, id string) (*model.Result, error) {
	job, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State != model.StateDone {
		return nil, jobs.ErrNotReady
	}
	data, err := c.client.Get(ctx, fmt.Sprintf(jobResultKey, id)).Bytes()
	if err == redis.Nil {
		return nil, jobs.ErrNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	var res model.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &res, nil
}

func (c *JobCache) update(ctx context.Context, id string, fields map[string]interface{}, result []byte) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	key := fmt.Sprintf(jobKey, id)
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check job: %w", err)
	}
	if n == 0 {
		return jobs.ErrNotFound
	}

	fields["updated_at"] = strconv.FormatInt(time.Now().UnixNano(), 10)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, c.ttl)
	if result != nil {
		pipe.Set(ctx, fmt.Sprintf(jobResultKey, id), result, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func encodeJob(job model.Job) map[string]interface{} {
	fields := map[string]interface{}{
		"id":         job.ID,
		"status":     string(job.State),
		"created_at": strconv.FormatInt(job.CreatedAt.UnixNano(), 10),
		"updated_at": strconv.FormatInt(job.UpdatedAt.UnixNano(), 10),
	}
	if job.Error != nil {
		fields["error_kind"] = string(job.Error.Kind)
		fields["error_message"] = job.Error.Message
	}
	return fields
}

func decodeJob(fields map[string]string) model.Job {
	job := model.Job{
		ID:        fields["id"],
		State:     model.JobState(fields["status"]),
		CreatedAt: parseNanos(fields["created_at"]),
		UpdatedAt: parseNanos(fields["updated_at"]),
	}
	if kind := fields["error_kind"]; kind != "" {
		job.Error = &model.JobError{Kind: model.ErrorKind(kind), Message: fields["error_message"]}
	}
	return job
}

func parseNanos(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
