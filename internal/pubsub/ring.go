package pubsub

// RingBuffer is a fixed-capacity ordered history with FIFO eviction.
// Append is the only mutator; at capacity the oldest element is evicted.
// It is not safe for concurrent use; the Broker guards it with its own lock.
type RingBuffer[T any] struct {
	buf   []T
	start int
	n     int
}

// NewRingBuffer creates a ring buffer holding at most capacity elements.
// Capacity must be positive.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer[T]{buf: make([]T, capacity)}
}

// Append adds item at the end, evicting the oldest element when full.
func (r *RingBuffer[T]) Append(item T) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = item
		r.n++
		return
	}
	r.buf[r.start] = item
	r.start = (r.start + 1) % len(r.buf)
}

// Snapshot returns a copy of the current contents, oldest-first.
func (r *RingBuffer[T]) Snapshot() []T {
	out := make([]T, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of buffered elements.
func (r *RingBuffer[T]) Len() int {
	return r.n
}

// Cap returns the fixed capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.buf)
}

// Reset discards all buffered elements.
func (r *RingBuffer[T]) Reset() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start = 0
	r.n = 0
}
