// Package dispatch carries "execute job" requests from the API surface to
// the executor's worker pool through a Redis list. Delivery is at-least-once;
// the executor's terminal-state guard absorbs duplicates.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voxworks/studio-api/internal/telemetry"
)

// DefaultQueueKey is the Redis list that holds pending execution requests.
const DefaultQueueKey = "dispatch:jobs"

// Dispatcher enqueues a job for background execution.
// Version: 1.0
type Dispatcher interface {
	// Enqueue submits the job ID for execution. The request is durable in
	// Redis until a consumer claims it.
	Enqueue(ctx context.Context, jobID uuid.UUID) error
}

// RedisDispatcher is the Redis-list Dispatcher implementation.
type RedisDispatcher struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// Ensure RedisDispatcher implements Dispatcher.
var _ Dispatcher = (*RedisDispatcher)(nil)

// NewRedisDispatcher creates a dispatcher pushing onto the given list key.
// An empty key falls back to DefaultQueueKey.
func NewRedisDispatcher(client *redis.Client, key string, logger *slog.Logger) *RedisDispatcher {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisDispatcher{
		client: client,
		key:    key,
		logger: logger.With("component", "dispatcher"),
	}
}

// Enqueue pushes the job ID onto the dispatch list.
func (d *RedisDispatcher) Enqueue(ctx context.Context, jobID uuid.UUID) error {
	if err := d.client.LPush(ctx, d.key, jobID.String()).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}

	telemetry.DispatchEnqueued.Inc()
	if depth, err := d.client.LLen(ctx, d.key).Result(); err == nil {
		telemetry.DispatchDepth.Set(float64(depth))
	}

	d.logger.Debug("job enqueued for execution", "job_id", jobID)
	return nil
}
