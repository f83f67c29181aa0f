package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/strand/internal/clock"
)

type effectKind uint8

const (
	effectNone effectKind = iota
	effectDispatch
	effectRun
	effectCancel
	effectConcurrent
)

// Effect is a declarative description of a side effect for the interpreter
// to carry out. It is a closed sum: none, dispatch, run, cancel, concurrent.
//
// Effects are values. Equality is structural except for the run arm, which
// compares only its cancellation id: the operation closure is not comparable,
// and tests assert which run was dispatched under what id, not what its body
// does.
type Effect[A comparable, ID comparable] struct {
	kind     effectKind
	action   A
	id       ID
	hasID    bool
	op       *Operation[A]
	children []Effect[A, ID]
}

// None is the no-op effect.
func None[A comparable, ID comparable]() Effect[A, ID] {
	return Effect[A, ID]{kind: effectNone}
}

// Dispatch delivers a into the reducer loop within the current drain pass.
func Dispatch[A comparable, ID comparable](a A) Effect[A, ID] {
	return Effect[A, ID]{kind: effectDispatch, action: a}
}

// Run executes op asynchronously. Without an id the run can be neither
// cancelled nor superseded; callers needing either must use RunCancellable.
func Run[A comparable, ID comparable](op *Operation[A]) Effect[A, ID] {
	return Effect[A, ID]{kind: effectRun, op: op}
}

// RunCancellable executes op asynchronously and registers the task under id,
// cancelling and replacing any prior task with the same id.
func RunCancellable[A comparable, ID comparable](id ID, op *Operation[A]) Effect[A, ID] {
	return Effect[A, ID]{kind: effectRun, id: id, hasID: true, op: op}
}

// Cancel cancels and deregisters the task under id, if any.
func Cancel[A comparable, ID comparable](id ID) Effect[A, ID] {
	return Effect[A, ID]{kind: effectCancel, id: id, hasID: true}
}

// Concurrent executes a group of effects where all run sub-effects execute in
// parallel; results and non-run sub-effects are applied sequentially in
// declared order once every operation has completed.
func Concurrent[A comparable, ID comparable](effects ...Effect[A, ID]) Effect[A, ID] {
	return Effect[A, ID]{kind: effectConcurrent, children: effects}
}

// Sleep suspends for d on clk and then does nothing. Useful only for its
// delay, e.g. as a spacer inside Concurrent.
func Sleep[A comparable, ID comparable](clk clock.Clock, d time.Duration) Effect[A, ID] {
	op := NewOperation(fmt.Sprintf("sleep(%s)", d), func(ctx context.Context) Result[A] {
		if err := clk.Sleep(ctx, d); err != nil {
			return ResultError[A](err)
		}
		return ResultNone[A]()
	})
	return Run[A, ID](op)
}

// SleepThen suspends for d on clk and then dispatches a.
func SleepThen[A comparable, ID comparable](clk clock.Clock, d time.Duration, a A) Effect[A, ID] {
	op := NewOperation(fmt.Sprintf("sleepThen(%s)", d), func(ctx context.Context) Result[A] {
		if err := clk.Sleep(ctx, d); err != nil {
			return ResultError[A](err)
		}
		return ResultAction(a)
	})
	return Run[A, ID](op)
}

// Debounce delays op by d under a fixed id. Because a run under an existing
// id cancels and replaces the prior task, repeated rapid triggers collapse so
// that only the last one, delayed by d, survives.
func Debounce[A comparable, ID comparable](id ID, clk clock.Clock, d time.Duration, op *Operation[A]) Effect[A, ID] {
	delayed := NewOperation(fmt.Sprintf("debounce(%s, %s)", op.Name(), d), func(ctx context.Context) Result[A] {
		if err := clk.Sleep(ctx, d); err != nil {
			return ResultError[A](err)
		}
		return op.Invoke(ctx)
	})
	return RunCancellable(id, delayed)
}

// Throttle is behaviorally identical to Debounce: cancel-and-replace under
// one id, not guaranteed periodic execution. The discrepancy with textbook
// throttling is known and preserved deliberately.
func Throttle[A comparable, ID comparable](id ID, clk clock.Clock, d time.Duration, op *Operation[A]) Effect[A, ID] {
	return Debounce(id, clk, d, op)
}

// Timer waits for the next tick of clk at the given interval and dispatches
// tick's action for it, registered under id so it can be cancelled.
//
// One tick is delivered per arm. For a periodic timer, the reducer returns
// the same Timer effect again from the tick action; re-arming keeps every
// tick flowing through the reducer and the observer hooks.
func Timer[A comparable, ID comparable](id ID, clk clock.Clock, interval time.Duration, tick func(t time.Time) A) Effect[A, ID] {
	op := NewOperation(fmt.Sprintf("timer(%s)", interval), func(ctx context.Context) Result[A] {
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		ticks := clk.Stream(streamCtx, interval)
		select {
		case <-ctx.Done():
			return ResultError[A](ctx.Err())
		case t, ok := <-ticks:
			if !ok {
				return ResultError[A](ctx.Err())
			}
			return ResultAction(tick(t))
		}
	})
	return RunCancellable(id, op)
}

// Equal reports structural equality, with the run arm comparing ids only.
func (e Effect[A, ID]) Equal(other Effect[A, ID]) bool {
	if e.kind != other.kind {
		return false
	}

	switch e.kind {
	case effectNone:
		return true
	case effectDispatch:
		return e.action == other.action
	case effectRun, effectCancel:
		if e.hasID != other.hasID {
			return false
		}
		return !e.hasID || e.id == other.id
	case effectConcurrent:
		if len(e.children) != len(other.children) {
			return false
		}
		for i := range e.children {
			if !e.children[i].Equal(other.children[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsNone reports whether this is the no-op effect.
func (e Effect[A, ID]) IsNone() bool {
	return e.kind == effectNone
}

// String renders a short diagnostic label for logging and observer hooks.
func (e Effect[A, ID]) String() string {
	switch e.kind {
	case effectNone:
		return "none"
	case effectDispatch:
		return fmt.Sprintf("dispatch(%v)", e.action)
	case effectRun:
		if e.hasID {
			return fmt.Sprintf("run(id=%v, op=%s)", e.id, e.op.Name())
		}
		return fmt.Sprintf("run(op=%s)", e.op.Name())
	case effectCancel:
		return fmt.Sprintf("cancel(id=%v)", e.id)
	case effectConcurrent:
		return fmt.Sprintf("concurrent(n=%d)", len(e.children))
	default:
		return "unknown"
	}
}
