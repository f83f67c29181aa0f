package engine

import (
	"context"
	"sync"
)

// task is the cancellable handle for one in-flight run effect.
type task struct {
	cancel context.CancelFunc
}

// taskRegistry maps cancellation ids to in-flight tasks.
//
// Invariant: at most one live task per id. Registering under an occupied id
// cancels and replaces the prior task (last-writer-wins). Completion always
// deregisters, so entries never leak.
type taskRegistry[ID comparable] struct {
	mu    sync.Mutex
	tasks map[ID]*task
}

func newTaskRegistry[ID comparable]() *taskRegistry[ID] {
	return &taskRegistry[ID]{
		tasks: make(map[ID]*task),
	}
}

// Register installs t under id, cancelling any prior task with the same id.
// Returns true if a prior task was superseded.
func (r *taskRegistry[ID]) Register(id ID, t *task) bool {
	r.mu.Lock()
	prev, existed := r.tasks[id]
	r.tasks[id] = t
	r.mu.Unlock()

	if existed {
		prev.cancel()
	}
	return existed
}

// Cancel cancels and removes the task under id, if any.
func (r *taskRegistry[ID]) Cancel(id ID) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
	}
	r.mu.Unlock()

	if ok {
		t.cancel()
	}
	return ok
}

// Release removes id's entry only if it still holds t. Returns true when t
// was the current task: a false return means the task was superseded or
// cancelled in flight and its late result must not be applied.
func (r *taskRegistry[ID]) Release(id ID, t *task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tasks[id]
	if !ok || cur != t {
		return false
	}
	delete(r.tasks, id)
	return true
}

// Len returns the number of registered in-flight tasks.
func (r *taskRegistry[ID]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// CancelAll cancels and removes every registered task.
func (r *taskRegistry[ID]) CancelAll() {
	r.mu.Lock()
	cancelled := make([]*task, 0, len(r.tasks))
	for id, t := range r.tasks {
		cancelled = append(cancelled, t)
		delete(r.tasks, id)
	}
	r.mu.Unlock()

	for _, t := range cancelled {
		t.cancel()
	}
}
