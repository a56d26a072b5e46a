package debug

// ring is a fixed-capacity buffer that drops the oldest item when full.
// It is not safe for concurrent use; Recorder guards it.
type ring[T any] struct {
	items    []T
	capacity int
	size     int
	head     int // Next write position
	tail     int // Oldest item
	dropped  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		capacity = 1 // Minimum capacity
	}
	return &ring[T]{items: make([]T, capacity), capacity: capacity}
}

// push appends item, evicting the oldest item when the ring is full.
// It reports whether an item was evicted.
func (r *ring[T]) push(item T) bool {
	evicted := false
	if r.size == r.capacity {
		var zero T
		r.items[r.tail] = zero
		r.tail = (r.tail + 1) % r.capacity
		r.size--
		r.dropped++
		evicted = true
	}
	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.size++
	return evicted
}

// at returns the i-th item, oldest first.
func (r *ring[T]) at(i int) (T, bool) {
	if i < 0 || i >= r.size {
		var zero T
		return zero, false
	}
	return r.items[(r.tail+i)%r.capacity], true
}

// slice copies the items out, oldest first.
func (r *ring[T]) slice() []T {
	out := make([]T, r.size)
	for i := range out {
		out[i] = r.items[(r.tail+i)%r.capacity]
	}
	return out
}

func (r *ring[T]) len() int { return r.size }
