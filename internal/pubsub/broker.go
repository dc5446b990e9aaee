package pubsub

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Broker is a generic pub/sub event broker that keeps a fixed-capacity
// history of published events and fans them out to any number of
// subscribers without ever blocking the publisher.
//
// Each subscriber gets a bounded queue the same size as the history
// buffer; when a subscriber's queue is full the event is dropped for that
// subscriber only. Delivery is therefore lossy per subscriber but always
// in publish order among the events a subscriber does receive.
type Broker[T any] struct {
	mu       sync.Mutex
	ring     *RingBuffer[Event[T]]
	subs     map[uuid.UUID]chan Event[T]
	seq      uint64
	capacity int
	closed   bool
}

// Subscription identifies one subscriber's queue within a broker.
type Subscription[T any] struct {
	id uuid.UUID
	ch chan Event[T]
}

// Events returns the subscriber's receive channel. It is closed when the
// subscription is removed (Unsubscribe, Reset, or Close).
func (s *Subscription[T]) Events() <-chan Event[T] {
	return s.ch
}

// NewBroker creates a broker whose history buffer and per-subscriber
// queues hold at most capacity events.
func NewBroker[T any](capacity int) *Broker[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Broker[T]{
		ring:     NewRingBuffer[Event[T]](capacity),
		subs:     make(map[uuid.UUID]chan Event[T]),
		capacity: capacity,
	}
}

// Subscribe registers a new subscriber and returns it together with the
// buffered backlog, oldest-first. The snapshot and the registration happen
// under one lock hold, so no event published after this call is missed and
// no backlog event is duplicated on the live channel.
//
// On a closed broker the returned subscription's channel is already closed
// and the backlog is nil.
func (b *Broker[T]) Subscribe() (*Subscription[T], []Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription[T]{id: uuid.New()}
	if b.closed {
		sub.ch = make(chan Event[T])
		close(sub.ch)
		return sub, nil
	}

	sub.ch = make(chan Event[T], b.capacity)
	b.subs[sub.id] = sub.ch
	return sub, b.ring.Snapshot()
}

// Publish records the payload in the history buffer and offers it to every
// live subscriber. Non-blocking: a full subscriber queue drops the event
// for that subscriber only. Returns the published event.
func (b *Broker[T]) Publish(payload T) Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Event[T]{}
	}

	b.seq++
	event := Event[T]{
		Seq:       b.seq,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	b.ring.Append(event)

	for _, ch := range b.subs {
		select {
		case ch <- event:
			// Delivered
		default:
			// Queue full - drop to prevent blocking the producer
		}
	}
	return event
}

// Unsubscribe removes the subscription and closes its channel. Safe to
// call concurrently with Publish and more than once per subscription.
func (b *Broker[T]) Unsubscribe(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(ch)
	}
}

// Reset clears the history buffer, restarts the sequence, and evicts every
// live subscriber by closing its channel. History does not survive across
// worker restarts.
func (b *Broker[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.ring.Reset()
	b.seq = 0
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Close shuts down the broker and all subscriber channels. Further
// Publish/Reset calls are no-ops and further Subscribes return closed
// channels.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// History returns a copy of the buffered events, oldest-first.
func (b *Broker[T]) History() []Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.Snapshot()
}
