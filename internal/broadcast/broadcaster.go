package broadcast

import (
	"sync"

	"github.com/google/uuid"

	"github.com/RF-YVY/aprswx/pkg/logger"
)

// subscription pairs a subscriber callback with its identity
type subscription[T any] struct {
	id string
	fn func(T)
}

// Broadcaster delivers published values to every current subscriber. A new
// subscriber is immediately replayed the last published value, if one exists,
// before any later publish reaches it. Delivery order follows subscription
// order. A subscriber that panics is logged and skipped; the remaining
// subscribers still receive the value.
type Broadcaster[T any] struct {
	mu      sync.Mutex
	subs    []subscription[T]
	last    T
	hasLast bool
	closed  bool
	name    string
	logger  *logger.Logger
}

// New creates a broadcaster. The name identifies it in logs.
func New[T any](name string, log *logger.Logger) *Broadcaster[T] {
	return &Broadcaster[T]{
		name:   name,
		logger: log.Named("broadcast"),
	}
}

// Subscribe registers fn and returns a function that removes it. Unsubscribing
// twice is a no-op, and it is safe to unsubscribe from inside a callback
// delivered by this broadcaster.
func (b *Broadcaster[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	sub := subscription[T]{id: uuid.NewString(), fn: fn}
	b.subs = append(b.subs, sub)
	replay, hasReplay := b.last, b.hasLast
	b.mu.Unlock()

	if hasReplay {
		b.deliver(sub, replay)
	}

	return func() { b.remove(sub.id) }
}

// Publish sends v to every current subscriber and records it for replay
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.last = v
	b.hasLast = true
	// Snapshot so subscribers can unsubscribe mid-delivery without
	// corrupting the iteration.
	snapshot := make([]subscription[T], len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.deliver(sub, v)
	}
}

// Last returns the most recently published value, if any
func (b *Broadcaster[T]) Last() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.hasLast
}

// SubscriberCount returns the number of active subscribers
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops all subscribers and the replay value. Further publishes and
// subscriptions are no-ops.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
	b.hasLast = false
	var zero T
	b.last = zero
}

// deliver invokes one subscriber, containing any panic it raises
func (b *Broadcaster[T]) deliver(sub subscription[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("Subscriber panicked during delivery",
				logger.String("broadcaster", b.name),
				logger.String("subscription_id", sub.id),
				logger.Any("panic", r))
		}
	}()
	sub.fn(v)
}

// remove deletes the subscription with the given id, if still present
func (b *Broadcaster[T]) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
