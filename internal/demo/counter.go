package demo

import (
	"context"

	"github.com/roach88/strand/internal/engine"
	"github.com/roach88/strand/internal/journal"
	"github.com/roach88/strand/internal/trace"
)

// State is the counter's view state.
type State struct {
	Count  int
	Loaded bool
}

// Action drives the counter reducer. String-typed so journal round-trips
// are the identity.
type Action string

// Counter actions. Increment is asynchronous in shape: it dispatches
// IncrementCompleted, which performs the mutation. Decrement mutates
// directly for contrast.
const (
	Increment          Action = "increment"
	IncrementCompleted Action = "incrementCompleted"
	Decrement          Action = "decrement"
	Load               Action = "load"
	LoadCompleted      Action = "loadCompleted"
	Reset              Action = "reset"
)

// CancelID keys the counter's cancellable tasks.
type CancelID string

// Model is the counter's concrete model instantiation. Inputs are raw
// strings fed through Transform.
type Model = engine.Model[State, string, Action, CancelID]

// Option configures a counter model.
type Option = engine.Option[State, string, Action, CancelID]

// Effect is the counter's effect instantiation.
type Effect = engine.Effect[Action, CancelID]

// loadOp simulates fetching persisted counter state. Deterministic so
// scenario traces are stable.
var loadOp = engine.NewOperation("demo.load", func(ctx context.Context) engine.Result[Action] {
	if ctx.Err() != nil {
		return engine.ResultError[Action](ctx.Err())
	}
	return engine.ResultAction(LoadCompleted)
})

// Reduce is the counter's transition function.
func Reduce(s *State, a Action) []Effect {
	switch a {
	case Increment:
		return []Effect{engine.Dispatch[Action, CancelID](IncrementCompleted)}
	case IncrementCompleted:
		s.Count++
	case Decrement:
		s.Count--
	case Load:
		return []Effect{engine.RunCancellable(CancelID("load"), loadOp)}
	case LoadCompleted:
		s.Loaded = true
	case Reset:
		*s = State{}
	}
	return nil
}

// Transform maps raw input tokens to actions. Unknown input is dropped.
func Transform(in string) []Action {
	switch in {
	case "+":
		return []Action{Increment}
	case "-":
		return []Action{Decrement}
	case "load":
		return []Action{Load}
	case "reset":
		return []Action{Reset}
	default:
		return nil
	}
}

// New builds a counter model.
func New(opts ...Option) *Model {
	return engine.New[State, string, Action, CancelID](State{}, Reduce, Transform, opts...)
}

// ActionNames lists every action the counter understands, for validation
// and replay decoding.
func ActionNames() []string {
	return []string{
		string(Increment),
		string(IncrementCompleted),
		string(Decrement),
		string(Load),
		string(LoadCompleted),
		string(Reset),
	}
}

// DecodeAction rebuilds an action from its recorded name.
func DecodeAction(name string, _ trace.Object) (Action, bool) {
	for _, n := range ActionNames() {
		if n == name {
			return Action(name), true
		}
	}
	return "", false
}

// EncodeState snapshots the state as a trace object.
func EncodeState(s State) trace.Object {
	return trace.Object{
		"count":  trace.Int(s.Count),
		"loaded": trace.Bool(s.Loaded),
	}
}

// Codec wires the counter into the journal recorder and replay.
func Codec() journal.Codec[State, Action] {
	return journal.Codec[State, Action]{
		Model:        "counter",
		ActionName:   func(a Action) string { return string(a) },
		State:        EncodeState,
		DecodeAction: DecodeAction,
	}
}
