package queue

import "sync"

// Queue is an unbounded, thread-safe FIFO queue. Producers call Put from any
// goroutine; the foreground loop drains it with TryPop until empty once per
// tick. A closed queue silently discards further puts, so a worker that
// finishes after its bridge was torn down cannot resurrect stale state.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
}

// New creates an empty unbounded queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Put appends item to the queue. It never blocks.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.items = append(q.items, item)
}

// TryPop removes and returns the oldest item. The second return value is
// false when the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	q.items[0] = zero // release the reference
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue closed and discards pending items. Subsequent puts
// are dropped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}

// Bounded is a thread-safe FIFO queue with a fixed capacity and a drop-newest
// overflow policy: Put on a full queue discards the incoming item and reports
// the drop to the caller instead of blocking. The analysis-server reader uses
// it for push messages, where blocking would stall protocol framing.
type Bounded[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	closed   bool
}

// NewBounded creates a bounded queue holding at most capacity items.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bounded[T]{capacity: capacity}
}

// Put appends item and reports whether it was accepted. A full or closed
// queue rejects the item.
func (b *Bounded[T]) Put(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || len(b.items) >= b.capacity {
		return false
	}
	b.items = append(b.items, item)
	return true
}

// TryPop removes and returns the oldest item, or false when empty.
func (b *Bounded[T]) TryPop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if len(b.items) == 0 {
		return zero, false
	}

	item := b.items[0]
	b.items[0] = zero
	b.items = b.items[1:]
	return item, true
}

// Len returns the number of queued items.
func (b *Bounded[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Close marks the queue closed and discards pending items.
func (b *Bounded[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.items = nil
}
