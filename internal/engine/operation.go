package engine

import (
	"context"
	"fmt"
)

type resultKind uint8

const (
	resultNone resultKind = iota
	resultAction
	resultError
)

// Result is the 3-way outcome of an operation: an action to feed back into
// the reducer loop, nothing, or a normalized error.
//
// Results compare by value; the error arm compares by normalized
// code/domain/description, never identity.
type Result[A comparable] struct {
	kind   resultKind
	action A
	err    *OpError
}

// ResultAction wraps an action outcome.
func ResultAction[A comparable](a A) Result[A] {
	return Result[A]{kind: resultAction, action: a}
}

// ResultNone is the no-action outcome.
func ResultNone[A comparable]() Result[A] {
	return Result[A]{kind: resultNone}
}

// ResultError wraps a failure outcome, normalizing err on the way in.
// A nil err degrades to ResultNone.
func ResultError[A comparable](err error) Result[A] {
	oe := Normalize(err)
	if oe == nil {
		return Result[A]{kind: resultNone}
	}
	return Result[A]{kind: resultError, err: oe}
}

// Action returns the action outcome, if any.
func (r Result[A]) Action() (A, bool) {
	return r.action, r.kind == resultAction
}

// Err returns the error outcome, or nil.
func (r Result[A]) Err() *OpError {
	if r.kind != resultError {
		return nil
	}
	return r.err
}

// IsNone reports whether the operation produced nothing.
func (r Result[A]) IsNone() bool {
	return r.kind == resultNone
}

// Equal reports value equality across the three arms.
func (r Result[A]) Equal(other Result[A]) bool {
	if r.kind != other.kind {
		return false
	}
	switch r.kind {
	case resultAction:
		return r.action == other.action
	case resultError:
		return r.err.Equal(other.err)
	default:
		return true
	}
}

// Operation is a named, cancellable unit of asynchronous work yielding a
// Result. The wrapped closure runs exactly once per Invoke.
type Operation[A comparable] struct {
	name string
	fn   func(ctx context.Context) Result[A]
}

// NewOperation wraps a closure that reports its own Result.
func NewOperation[A comparable](name string, fn func(ctx context.Context) Result[A]) *Operation[A] {
	return &Operation[A]{name: name, fn: fn}
}

// NewActionOperation wraps a conventional (value, error) closure: an error
// becomes a ResultError, otherwise the value becomes a ResultAction.
func NewActionOperation[A comparable](name string, fn func(ctx context.Context) (A, error)) *Operation[A] {
	return &Operation[A]{
		name: name,
		fn: func(ctx context.Context) Result[A] {
			a, err := fn(ctx)
			if err != nil {
				return ResultError[A](err)
			}
			return ResultAction(a)
		},
	}
}

// Name returns the operation's diagnostic name.
func (o *Operation[A]) Name() string {
	if o == nil {
		return ""
	}
	return o.name
}

// Invoke runs the wrapped closure and returns its Result.
//
// Invoke never panics to its caller: a panicking closure is recovered and
// normalized into an error result, so the interpreter's loop survives any
// operation body.
func (o *Operation[A]) Invoke(ctx context.Context) (res Result[A]) {
	if o == nil || o.fn == nil {
		return ResultNone[A]()
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result[A]{
				kind: resultError,
				err: &OpError{
					Description: fmt.Sprintf("operation %s panicked: %v", o.name, r),
					Code:        CodeOperationPanic,
					Domain:      DomainOperation,
				},
			}
		}
	}()

	return o.fn(ctx)
}
