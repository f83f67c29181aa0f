package engine

import "time"

// Observer carries the notification hooks fired by the interpreter. All
// fields are optional; a zero Observer observes nothing.
//
// Hooks are pure notification points: they return nothing, must not be
// relied on for control flow, and are invoked synchronously on the draining
// goroutine (OnOperation on the operation's goroutine), so they must be fast
// and must not call back into the Model.
type Observer[S any, A comparable] struct {
	// OnAction fires after each action is processed by the reducer. token is
	// the perform token of the external action this one cascaded from.
	OnAction func(token string, a A)

	// OnStateChange fires after each reduce with the state before and after.
	// The runtime does not diff: it fires even when the reducer left the
	// state untouched.
	OnStateChange func(old, new S)

	// OnEffect fires after each effect returned by a reducer is enqueued,
	// with the effect's diagnostic label.
	OnEffect func(label string)

	// OnOperation fires after each timed operation with its name and
	// wall-clock duration.
	OnOperation func(name string, d time.Duration)
}

// Nil-safe emit helpers.

func (o Observer[S, A]) action(token string, a A) {
	if o.OnAction != nil {
		o.OnAction(token, a)
	}
}

func (o Observer[S, A]) stateChange(old, new S) {
	if o.OnStateChange != nil {
		o.OnStateChange(old, new)
	}
}

func (o Observer[S, A]) effect(label string) {
	if o.OnEffect != nil {
		o.OnEffect(label)
	}
}

func (o Observer[S, A]) operation(name string, d time.Duration) {
	if o.OnOperation != nil {
		o.OnOperation(name, d)
	}
}
