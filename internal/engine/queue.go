package engine

import "sync"

// queueItem pairs an effect with the perform token of the action chain that
// produced it, so cascading effects inherit their root token.
type queueItem[A comparable, ID comparable] struct {
	token  string
	effect Effect[A, ID]
}

// effectQueue is a thread-safe FIFO queue of pending effects.
//
// The queue is unbounded so cascading reducers can enqueue arbitrarily many
// follow-on effects without blocking. Thread-safety covers external
// performers enqueueing while the single drain loop dequeues; draining itself
// is serialized by the Model's single-flight flag, not here.
type effectQueue[A comparable, ID comparable] struct {
	mu     sync.Mutex
	items  []queueItem[A, ID]
	closed bool
}

func newEffectQueue[A comparable, ID comparable]() *effectQueue[A, ID] {
	return &effectQueue[A, ID]{
		items: make([]queueItem[A, ID], 0, 16),
	}
}

// Enqueue appends an item to the tail. Returns false once the queue is
// closed; late effects after shutdown are dropped, not executed.
func (q *effectQueue[A, ID]) Enqueue(it queueItem[A, ID]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, it)
	return true
}

// TryDequeue pops the head without blocking.
func (q *effectQueue[A, ID]) TryDequeue() (queueItem[A, ID], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return queueItem[A, ID]{}, false
	}

	it := q.items[0]

	// Nil out the slot so the backing array does not retain effect closures
	// until reallocation.
	q.items[0] = queueItem[A, ID]{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return it, true
}

// Len returns the number of pending items.
func (q *effectQueue[A, ID]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear drops every pending item and returns how many were discarded.
// Used when a drain pass aborts on quota.
func (q *effectQueue[A, ID]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	q.items = q.items[:0]
	return n
}

// Close marks the queue closed; subsequent Enqueue calls are rejected.
func (q *effectQueue[A, ID]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
