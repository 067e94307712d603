package buffer

// Buffer is an ordered sequence with a capacity bound and oldest-first
// eviction. Appends never evict on their own: callers append a batch and
// then call EvictToCapacity once.
//
// Buffer is not safe for concurrent use.
type Buffer[T any] struct {
	items    []T
	capacity int
}

// New creates a buffer holding at most capacity items (minimum 1).
func New[T any](capacity int) *Buffer[T] {
	b := &Buffer[T]{}
	b.SetCapacity(capacity)
	return b
}

// Append adds v at the newest end.
func (b *Buffer[T]) Append(v T) {
	b.items = append(b.items, v)
}

// EvictToCapacity drops the oldest items until Len() <= Capacity() and
// returns how many were dropped. Relative order of the rest is kept.
func (b *Buffer[T]) EvictToCapacity() int {
	excess := len(b.items) - b.capacity
	if excess <= 0 {
		return 0
	}

	kept := copy(b.items, b.items[excess:])
	var zero T
	for i := kept; i < len(b.items); i++ {
		b.items[i] = zero
	}
	b.items = b.items[:kept]
	return excess
}

// SetCapacity changes the bound. It takes effect on the next EvictToCapacity.
func (b *Buffer[T]) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	b.capacity = capacity
}

// Capacity returns the current bound.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	return len(b.items)
}

// Clear removes every item.
func (b *Buffer[T]) Clear() {
	clear(b.items)
	b.items = b.items[:0]
}

// Snapshot returns a copy of the items, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Last returns the newest item.
func (b *Buffer[T]) Last() (T, bool) {
	if len(b.items) == 0 {
		var zero T
		return zero, false
	}
	return b.items[len(b.items)-1], true
}
