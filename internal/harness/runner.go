package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/roach88/strand/internal/engine"
	"github.com/roach88/strand/internal/trace"
)

// runWaitTimeout bounds every wait_idle step and the final settle.
const runWaitTimeout = 2 * time.Second

// Binding connects the scenario format to a concrete view-model: how to
// build a fresh model, decode scenario inputs, and encode the outcome.
type Binding[S any, I any, A comparable, ID comparable] struct {
	// New builds a fresh model. The runner appends its own deterministic
	// token generator and a discarding logger to opts.
	New func(opts ...engine.Option[S, I, A, ID]) *engine.Model[S, I, A, ID]

	// DecodeAction resolves a scenario "perform" name to an action.
	DecodeAction func(name string) (A, bool)

	// DecodeInput resolves a scenario "send" value to a transform input.
	DecodeInput func(raw string) (I, bool)

	// ActionName returns the stable name of an action for the trace.
	ActionName func(A) string

	// EncodeState snapshots the final state for the trace and for
	// expect.state matching.
	EncodeState func(S) trace.Object
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool

	// Trace holds the recorded actions in reduce order, terminated by a
	// final state snapshot event.
	Trace []trace.Event

	// Errors lists expectation failures. Empty when Pass is true.
	Errors []string
}

// NewResult creates a passing result to accumulate into.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records an expectation failure and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// seqTokens generates "prefix-1", "prefix-2", ... so scenario traces are
// byte-stable across runs.
type seqTokens struct {
	prefix string
	n      atomic.Int64
}

func (g *seqTokens) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}

// Run executes a scenario against a fresh model built from the binding.
//
// A malformed scenario (unknown action or input name) is an error; a
// violated expectation is a failed Result.
func Run[S any, I any, A comparable, ID comparable](sc *Scenario, b Binding[S, I, A, ID]) (*Result, error) {
	prefix := sc.Token
	if prefix == "" {
		prefix = "flow"
	}

	m := b.New(
		engine.WithTokens[S, I, A, ID](&seqTokens{prefix: prefix}),
		engine.WithLogger[S, I, A, ID](slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	defer m.Shutdown()

	p := Attach(m)
	defer p.Detach()

	res := NewResult()

	for i, step := range sc.Steps {
		switch {
		case step.Perform != "":
			a, ok := b.DecodeAction(step.Perform)
			if !ok {
				return nil, fmt.Errorf("step %d: unknown action %q", i+1, step.Perform)
			}
			p.Perform(a)

		case step.Send != "":
			in, ok := b.DecodeInput(step.Send)
			if !ok {
				return nil, fmt.Errorf("step %d: unusable input %q", i+1, step.Send)
			}
			p.Send(in)

		case step.WaitIdle:
			if err := p.WaitIdle(runWaitTimeout); err != nil {
				res.AddError("step %d: %v", i+1, err)
			}
		}
	}

	// Let any trailing async work settle before snapshotting.
	if err := p.WaitIdle(runWaitTimeout); err != nil {
		res.AddError("final settle: %v", err)
	}

	var seq int64
	for _, rec := range p.Records() {
		seq++
		res.Trace = append(res.Trace, trace.Event{
			Seq:   seq,
			Token: rec.Token,
			Kind:  trace.KindAction,
			Name:  b.ActionName(rec.Action),
		})
	}

	finalState := b.EncodeState(p.State())
	seq++
	res.Trace = append(res.Trace, trace.Event{
		Seq:    seq,
		Kind:   trace.KindState,
		Name:   "final",
		Detail: finalState,
	})

	checkExpect(res, sc.Expect, finalState)

	return res, nil
}

func checkExpect(res *Result, exp Expect, state trace.Object) {
	if exp.Actions != nil {
		var got []string
		for _, e := range res.Trace {
			if e.Kind == trace.KindAction {
				got = append(got, e.Name)
			}
		}
		if !slices.Equal(got, exp.Actions) {
			res.AddError("actions mismatch: got %v, want %v", got, exp.Actions)
		}
	}

	stateKeys := make([]string, 0, len(exp.State))
	for k := range exp.State {
		stateKeys = append(stateKeys, k)
	}
	slices.Sort(stateKeys)
	for _, k := range stateKeys {
		actual, ok := state[k]
		if !ok {
			res.AddError("state field %q missing", k)
			continue
		}
		want, err := trace.MarshalCanonical(exp.State[k])
		if err != nil {
			res.AddError("state field %q: %v", k, err)
			continue
		}
		got, err := trace.MarshalCanonical(actual)
		if err != nil {
			res.AddError("state field %q: %v", k, err)
			continue
		}
		if !bytes.Equal(got, want) {
			res.AddError("state field %q: got %s, want %s", k, got, want)
		}
	}
}
