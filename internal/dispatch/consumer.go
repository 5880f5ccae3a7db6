package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voxworks/studio-api/internal/domain"
	"github.com/voxworks/studio-api/internal/telemetry"
)

// JobExecutor is the slice of the executor the consumer needs.
type JobExecutor interface {
	Execute(ctx context.Context, jobID uuid.UUID) (domain.JobStatus, error)
}

// ConsumerConfig holds configuration for the dispatch consumer.
type ConsumerConfig struct {
	// WorkerCount determines how many concurrent workers claim requests.
	WorkerCount int

	// PollTimeout bounds each blocking pop so workers can observe shutdown.
	PollTimeout time.Duration
}

// DefaultConsumerConfig returns the consumer defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		WorkerCount: 4,
		PollTimeout: time.Second,
	}
}

// Consumer claims execution requests from the dispatch list and runs them on
// a worker pool. Each worker handles one job at a time; jobs across workers
// run fully in parallel.
type Consumer struct {
	client   *redis.Client
	key      string
	executor JobExecutor
	cfg      ConsumerConfig
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewConsumer creates a dispatch consumer reading from the given list key.
// An empty key falls back to DefaultQueueKey.
func NewConsumer(
	client *redis.Client,
	key string,
	exec JobExecutor,
	cfg ConsumerConfig,
	logger *slog.Logger,
) *Consumer {
	if key == "" {
		key = DefaultQueueKey
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConsumerConfig().WorkerCount
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConsumerConfig().PollTimeout
	}

	return &Consumer{
		client:   client,
		key:      key,
		executor: exec,
		cfg:      cfg,
		logger:   logger.With("component", "dispatch_consumer"),
	}
}

// Start launches the worker pool. Workers run until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}
}

// Wait blocks until every worker has stopped.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

// worker claims and executes requests until context cancellation.
func (c *Consumer) worker(ctx context.Context, id int) {
	defer c.wg.Done()

	log := c.logger.With("worker_id", id)
	log.Debug("starting dispatch worker")

	for {
		select {
		case <-ctx.Done():
			log.Debug("stopping dispatch worker")
			return
		default:
		}

		values, err := c.client.BRPop(ctx, c.cfg.PollTimeout, c.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				log.Debug("stopping dispatch worker")
				return
			}
			log.Error("failed to claim execution request", "error", err)
			time.Sleep(c.cfg.PollTimeout)
			continue
		}

		// BRPop returns [key, value].
		if len(values) != 2 {
			continue
		}

		jobID, err := uuid.Parse(values[1])
		if err != nil {
			log.Error("discarding malformed execution request", "raw", values[1], "error", err)
			continue
		}

		if depth, err := c.client.LLen(ctx, c.key).Result(); err == nil {
			telemetry.DispatchDepth.Set(float64(depth))
		}

		status, err := c.executor.Execute(ctx, jobID)
		if err != nil {
			// Background execution never propagates; log and move on.
			log.Error("job execution errored", "job_id", jobID, "error", err)
			continue
		}
		log.Info("job execution finished", "job_id", jobID, "status", status)
	}
}
