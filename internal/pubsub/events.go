// Package pubsub provides a generic publish/subscribe event system with
// bounded per-subscriber queues and a fixed-capacity history buffer.
package pubsub

import (
	"time"
)

// Event represents a published event with a typed payload.
// Seq is assigned by the broker and increases monotonically within one
// broker generation (Reset starts a new generation at 1).
type Event[T any] struct {
	Seq       uint64
	Payload   T
	Timestamp time.Time
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(payload T) Event[T]
}
