// Package bus provides the process-wide publish/subscribe fabric that fans
// job notifications out to connected clients. Delivery is at-most-once and
// best-effort: publishers never block on slow subscribers, and events beyond
// a subscriber's bounded queue are dropped.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voxworks/studio-api/internal/telemetry"
)

// DefaultSubscriberBuffer is the per-subscriber queue size used when no
// explicit buffer is requested.
const DefaultSubscriberBuffer = 64

// Subscriber is a handle attached to topics. Events for every topic the
// subscriber holds are delivered on a single bounded channel, in publish
// order relative to a single publisher.
type Subscriber struct {
	ch chan Event
}

// NewSubscriber creates a subscriber with a bounded delivery queue.
// A buffer of zero or less falls back to DefaultSubscriberBuffer.
func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Subscriber{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the subscriber's delivery queue.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Bus delivers events to every subscriber currently attached to a topic.
// Version: 1.0
type Bus interface {
	// Publish delivers the event to all current subscribers of topic.
	// It is best-effort: with no subscribers the event is dropped, and a
	// subscriber whose queue is full misses the event rather than blocking
	// the publisher.
	Publish(ctx context.Context, topic string, event Event)

	// Subscribe attaches the subscriber to a topic. Subscribing the same
	// handle to the same topic twice is a no-op.
	Subscribe(topic string, sub *Subscriber)

	// Unsubscribe detaches the subscriber from a topic. Unsubscribing an
	// unknown pair is a no-op.
	Unsubscribe(topic string, sub *Subscriber)
}

// InMemoryBus is the in-process Bus implementation. Topics are created
// lazily on first subscribe and garbage-collected when their subscriber set
// becomes empty.
type InMemoryBus struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscriber]struct{}
	logger *slog.Logger
}

// Ensure InMemoryBus implements Bus.
var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(logger *slog.Logger) *InMemoryBus {
	return &InMemoryBus{
		topics: make(map[string]map[*Subscriber]struct{}),
		logger: logger.With("component", "bus"),
	}
}

// Publish delivers the event to all current subscribers of topic.
func (b *InMemoryBus) Publish(ctx context.Context, topic string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}

	for sub := range subs {
		select {
		case sub.ch <- event:
		default:
			// Subscriber queue is full; drop rather than block the publisher.
			telemetry.BusDroppedEvents.Inc()
			b.logger.Warn("dropped event for stalled subscriber",
				"topic", topic,
				"event_type", event.Type,
				"job_id", event.JobID)
		}
	}
}

// Subscribe attaches the subscriber to a topic.
func (b *InMemoryBus) Subscribe(topic string, sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
}

// Unsubscribe detaches the subscriber from a topic.
func (b *InMemoryBus) Unsubscribe(topic string, sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
}

// TopicCount reports how many topics currently have subscribers.
// Exposed for tests and introspection.
func (b *InMemoryBus) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}
