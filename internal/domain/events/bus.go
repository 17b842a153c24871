package events

import (
	"sync"
	"time"

	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
)

// Event is what subscribers receive
type Event struct {
	Topic   string    `json:"topic"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// Handler consumes events. Handlers run synchronously on the publisher's
// goroutine and must not block.
type Handler func(Event)

// subscription is one registered handler
type subscription struct {
	fn      Handler
	once    bool
	removed bool
}

// Bus dispatches events to subscribers in registration order
type Bus struct {
	mu      sync.Mutex
	topics  map[string][]*subscription
	metrics *monitoring.Metrics
}

// Stats summarizes bus state
type Stats struct {
	Topics        int `json:"topics"`
	Subscriptions int `json:"subscriptions"`
}

// New creates an empty bus
func New() *Bus {
	return &Bus{topics: make(map[string][]*subscription)}
}

// WithMetrics attaches a metrics collector
func (b *Bus) WithMetrics(metrics *monitoring.Metrics) *Bus {
	b.metrics = metrics
	return b
}

// Subscribe registers fn for topic and returns an idempotent unsubscribe
func (b *Bus) Subscribe(topic string, fn Handler) func() {
	return b.add(topic, fn, false)
}

// SubscribeOnce registers fn to fire for at most one event. Cancelling
// before the first matching publish prevents any delivery.
func (b *Bus) SubscribeOnce(topic string, fn Handler) func() {
	return b.add(topic, fn, true)
}

func (b *Bus) add(topic string, fn Handler, once bool) func() {
	sub := &subscription{fn: fn, once: once}

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], sub)
	total := b.countLocked()
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SetBusSubscriptions(total)
	}

	return func() {
		b.mu.Lock()
		if sub.removed {
			b.mu.Unlock()
			return
		}
		sub.removed = true
		b.compact(topic)
		total := b.countLocked()
		b.mu.Unlock()

		if b.metrics != nil {
			b.metrics.SetBusSubscriptions(total)
		}
	}
}

// Publish delivers the payload to every current subscriber of topic,
// synchronously and in subscription order. Publishing with no
// subscribers is a no-op.
func (b *Bus) Publish(topic string, payload any) {
	event := Event{Topic: topic, Payload: payload, Time: time.Now()}

	if b.metrics != nil {
		b.metrics.RecordEventPublished()
	}

	// Snapshot so handlers can mutate subscriptions mid-dispatch.
	b.mu.Lock()
	subs := b.topics[topic]
	snapshot := make([]*subscription, len(subs))
	copy(snapshot, subs)
	b.mu.Unlock()

	consumed := false
	for _, sub := range snapshot {
		b.mu.Lock()
		if sub.removed {
			b.mu.Unlock()
			continue
		}
		if sub.once {
			// Consume before invoking so reentrant publishes cannot
			// deliver a second event to this handler.
			sub.removed = true
			b.compact(topic)
			consumed = true
		}
		fn := sub.fn
		b.mu.Unlock()

		fn(event)
	}

	if consumed && b.metrics != nil {
		b.mu.Lock()
		total := b.countLocked()
		b.mu.Unlock()
		b.metrics.SetBusSubscriptions(total)
	}
}

// compact drops removed subscriptions from a topic's slice.
// Callers hold b.mu.
func (b *Bus) compact(topic string) {
	subs := b.topics[topic]
	live := subs[:0]
	for _, s := range subs {
		if !s.removed {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		delete(b.topics, topic)
		return
	}
	b.topics[topic] = live
}

// countLocked tallies live subscriptions across all topics.
// Callers hold b.mu.
func (b *Bus) countLocked() int {
	total := 0
	for _, subs := range b.topics {
		total += len(subs)
	}
	return total
}

// Stats returns subscriber counts
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Topics: len(b.topics), Subscriptions: b.countLocked()}
}
