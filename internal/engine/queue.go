package engine

import "sync"

// queue is a thread-safe unbounded FIFO.
//
// Each subscriber owns one queue: the store's writer enqueues snapshots while
// holding its lock and the subscriber's delivery goroutine drains them. The
// queue never blocks the writer, so a slow subscriber only delays itself.
//
// The queue uses a channel for signaling so the delivery loop can wait
// without polling.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // Signals item availability (buffered, size 1)
}

// newQueue creates an empty queue.
func newQueue[T any]() *queue[T] {
	return &queue[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Returns false if the queue is closed.
func (q *queue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, item)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front item without blocking.
// Returns false if the queue is empty.
func (q *queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]

	// Clear the slot so the backing array does not pin old snapshots.
	q.items[0] = zero

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return item, true
}

// Wait returns a channel that signals when items may be available.
// The channel is closed when the queue is closed.
func (q *queue[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops the queue, discards anything still queued and wakes waiters.
// It returns the number of discarded items. Closing twice is a no-op.
func (q *queue[T]) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}

	q.closed = true
	dropped := len(q.items)
	clear(q.items)
	q.items = nil
	close(q.signal)
	return dropped
}
