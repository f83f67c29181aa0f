package harness

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/strand/internal/engine"
)

// pollInterval is the probe's condition polling cadence.
const pollInterval = 10 * time.Millisecond

// TimeoutError reports a Wait that never saw its condition.
type TimeoutError struct {
	What    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
}

// Record is one observed action with the perform token that caused it.
type Record[A comparable] struct {
	Token  string
	Action A
}

// Probe wraps a running model for tests. It swaps in a recording observer
// that forwards to whatever was installed before, so journaling or metrics
// hooks keep working underneath the probe.
type Probe[S any, I any, A comparable, ID comparable] struct {
	model *engine.Model[S, I, A, ID]
	prev  engine.Observer[S, A]

	mu      sync.Mutex
	records []Record[A]
}

// Attach installs the probe's recording observer on m.
func Attach[S any, I any, A comparable, ID comparable](m *engine.Model[S, I, A, ID]) *Probe[S, I, A, ID] {
	p := &Probe[S, I, A, ID]{
		model: m,
		prev:  m.Observer(),
	}

	obs := p.prev
	prevAction := p.prev.OnAction
	obs.OnAction = func(token string, a A) {
		p.mu.Lock()
		p.records = append(p.records, Record[A]{Token: token, Action: a})
		p.mu.Unlock()
		if prevAction != nil {
			prevAction(token, a)
		}
	}
	m.SetObserver(obs)

	return p
}

// Detach restores the observer that was installed before Attach.
func (p *Probe[S, I, A, ID]) Detach() {
	p.model.SetObserver(p.prev)
}

// Model returns the wrapped model.
func (p *Probe[S, I, A, ID]) Model() *engine.Model[S, I, A, ID] {
	return p.model
}

// Perform forwards to the model.
func (p *Probe[S, I, A, ID]) Perform(a A) {
	p.model.Perform(a)
}

// Send forwards to the model.
func (p *Probe[S, I, A, ID]) Send(in I) {
	p.model.Send(in)
}

// State returns the model's current state.
func (p *Probe[S, I, A, ID]) State() S {
	return p.model.State()
}

// Records returns every recorded action with its token, in reduce order.
func (p *Probe[S, I, A, ID]) Records() []Record[A] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Record[A](nil), p.records...)
}

// Actions returns the recorded actions in reduce order.
func (p *Probe[S, I, A, ID]) Actions() []A {
	records := p.Records()
	actions := make([]A, len(records))
	for i, r := range records {
		actions[i] = r.Action
	}
	return actions
}

// ClearRecords drops everything recorded so far.
func (p *Probe[S, I, A, ID]) ClearRecords() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = nil
}

// Wait polls until pred holds for the current state or the timeout expires.
func (p *Probe[S, I, A, ID]) Wait(pred func(S) bool, timeout time.Duration) error {
	return poll(timeout, "state condition", func() bool {
		return pred(p.model.State())
	})
}

// WaitIdle polls until the model has no pending work.
func (p *Probe[S, I, A, ID]) WaitIdle(timeout time.Duration) error {
	return poll(timeout, "model idle", p.model.Idle)
}

func poll(timeout time.Duration, what string, cond func() bool) error {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return &TimeoutError{What: what, Timeout: timeout}
		}
		time.Sleep(pollInterval)
	}
}
