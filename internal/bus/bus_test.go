package bus_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxworks/studio-api/internal/bus"
)

func newTestBus() *bus.InMemoryBus {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return bus.NewInMemoryBus(logger)
}

func progressEvent(jobID uuid.UUID, progress int) bus.Event {
	return bus.Event{
		Type:      bus.EventTypeJobProgress,
		JobID:     jobID,
		Progress:  progress,
		Timestamp: time.Now().UTC(),
	}
}

func TestInMemoryBus_PublishDeliversInOrder(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	ctx := context.Background()
	jobID := uuid.New()
	topic := bus.JobTopic(jobID)

	sub := bus.NewSubscriber(16)
	b.Subscribe(topic, sub)

	for _, p := range []int{10, 20, 30, 40} {
		b.Publish(ctx, topic, progressEvent(jobID, p))
	}

	for _, want := range []int{10, 20, 30, 40} {
		select {
		case event := <-sub.Events():
			assert.Equal(t, want, event.Progress)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for progress %d", want)
		}
	}
}

func TestInMemoryBus_NoDeliveryBeforeSubscribe(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	ctx := context.Background()
	jobID := uuid.New()
	topic := bus.JobTopic(jobID)

	// Published with no subscribers; must be dropped, not queued.
	b.Publish(ctx, topic, progressEvent(jobID, 10))

	sub := bus.NewSubscriber(16)
	b.Subscribe(topic, sub)
	b.Publish(ctx, topic, progressEvent(jobID, 20))

	select {
	case event := <-sub.Events():
		assert.Equal(t, 20, event.Progress)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case event := <-sub.Events():
		t.Fatalf("unexpected extra event with progress %d", event.Progress)
	default:
	}
}

func TestInMemoryBus_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	ctx := context.Background()
	jobID := uuid.New()
	topic := bus.JobTopic(jobID)

	sub := bus.NewSubscriber(16)
	b.Subscribe(topic, sub)
	b.Unsubscribe(topic, sub)

	b.Publish(ctx, topic, progressEvent(jobID, 50))

	select {
	case <-sub.Events():
		t.Fatal("received event after unsubscribe")
	default:
	}
}

func TestInMemoryBus_IdempotentSubscribe(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	ctx := context.Background()
	jobID := uuid.New()
	topic := bus.JobTopic(jobID)

	sub := bus.NewSubscriber(16)
	b.Subscribe(topic, sub)
	b.Subscribe(topic, sub) // no-op, must not double-deliver

	b.Publish(ctx, topic, progressEvent(jobID, 10))

	select {
	case <-sub.Events():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case <-sub.Events():
		t.Fatal("event delivered twice to the same subscriber")
	default:
	}

	// Unsubscribing an unknown pair is also a no-op.
	b.Unsubscribe("job:unknown", sub)
	b.Unsubscribe(topic, bus.NewSubscriber(1))
}

func TestInMemoryBus_TopicGarbageCollection(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	topic := bus.JobTopic(uuid.New())

	sub := bus.NewSubscriber(1)
	b.Subscribe(topic, sub)
	require.Equal(t, 1, b.TopicCount())

	b.Unsubscribe(topic, sub)
	assert.Equal(t, 0, b.TopicCount())
}

func TestInMemoryBus_BoundedQueueDropsWhenFull(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	ctx := context.Background()
	jobID := uuid.New()
	topic := bus.JobTopic(jobID)

	sub := bus.NewSubscriber(2)
	b.Subscribe(topic, sub)

	// Publisher must not block even though nothing is draining.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := 1; p <= 10; p++ {
			b.Publish(ctx, topic, progressEvent(jobID, p))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a stalled subscriber")
	}

	// Only the first two fit; the rest were dropped.
	var received []int
	for {
		select {
		case event := <-sub.Events():
			received = append(received, event.Progress)
			continue
		default:
		}
		break
	}
	assert.Equal(t, []int{1, 2}, received)
}

func TestInMemoryBus_IndependentTopics(t *testing.T) {
	t.Parallel()

	b := newTestBus()
	ctx := context.Background()

	jobA := uuid.New()
	jobB := uuid.New()

	subA := bus.NewSubscriber(4)
	subB := bus.NewSubscriber(4)
	b.Subscribe(bus.JobTopic(jobA), subA)
	b.Subscribe(bus.JobTopic(jobB), subB)

	b.Publish(ctx, bus.JobTopic(jobA), progressEvent(jobA, 10))

	select {
	case event := <-subA.Events():
		assert.Equal(t, jobA, event.JobID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event on topic A")
	}

	select {
	case <-subB.Events():
		t.Fatal("topic B received topic A's event")
	default:
	}
}

func TestTopicHelpers(t *testing.T) {
	t.Parallel()

	jobID := uuid.New()
	userID := uuid.New()

	assert.Equal(t, "job:"+jobID.String(), bus.JobTopic(jobID))
	assert.Equal(t, "user:"+userID.String(), bus.UserTopic(userID))
}
