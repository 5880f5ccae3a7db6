package dispatch_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxworks/studio-api/internal/dispatch"
	"github.com/voxworks/studio-api/internal/domain"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingExecutor captures executed job IDs.
type recordingExecutor struct {
	mu   sync.Mutex
	jobs []uuid.UUID
}

func (e *recordingExecutor) Execute(ctx context.Context, jobID uuid.UUID) (domain.JobStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, jobID)
	return domain.JobStatusCompleted, nil
}

func (e *recordingExecutor) executed() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uuid.UUID(nil), e.jobs...)
}

func TestRedisDispatcher_Enqueue(t *testing.T) {
	t.Parallel()

	client := newTestRedis(t)
	d := dispatch.NewRedisDispatcher(client, "", discardLogger())

	jobID := uuid.New()
	require.NoError(t, d.Enqueue(context.Background(), jobID))

	values, err := client.LRange(context.Background(), dispatch.DefaultQueueKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{jobID.String()}, values)
}

func TestConsumer_ExecutesEnqueuedJobs(t *testing.T) {
	t.Parallel()

	client := newTestRedis(t)
	d := dispatch.NewRedisDispatcher(client, "", discardLogger())

	exec := &recordingExecutor{}
	cfg := dispatch.ConsumerConfig{WorkerCount: 2, PollTimeout: 50 * time.Millisecond}
	consumer := dispatch.NewConsumer(client, "", exec, cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer.Start(ctx)

	want := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range want {
		require.NoError(t, d.Enqueue(ctx, id))
	}

	require.Eventually(t, func() bool {
		return len(exec.executed()) == len(want)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	consumer.Wait()

	assert.ElementsMatch(t, want, exec.executed())
}

func TestConsumer_DiscardsMalformedRequests(t *testing.T) {
	t.Parallel()

	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, client.LPush(ctx, dispatch.DefaultQueueKey, "not-a-uuid").Err())

	jobID := uuid.New()
	require.NoError(t, client.LPush(ctx, dispatch.DefaultQueueKey, jobID.String()).Err())

	exec := &recordingExecutor{}
	cfg := dispatch.ConsumerConfig{WorkerCount: 1, PollTimeout: 50 * time.Millisecond}
	consumer := dispatch.NewConsumer(client, "", exec, cfg, discardLogger())
	consumer.Start(ctx)

	require.Eventually(t, func() bool {
		return len(exec.executed()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	consumer.Wait()

	assert.Equal(t, []uuid.UUID{jobID}, exec.executed())
}
