package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reducer is the consumer-supplied pure transition function. It mutates s in
// place for action a and returns the effects to execute. It must terminate,
// must not block, and must not call back into the Model.
type Reducer[S any, A comparable, ID comparable] func(s *S, a A) []Effect[A, ID]

// Transform maps an external input event to zero or more actions, each fed
// through Perform individually.
type Transform[I any, A comparable] func(in I) []A

// ErrorHandler receives non-cancellation operation failures. The default is
// a no-op; consumers override it to mutate state, surface a message, or
// re-trigger a retry action.
type ErrorHandler func(err *OpError)

// Model is a running view-model instance: it owns the state, the effect
// queue, the task registry and the single-flight drain loop.
//
// Concurrency model: queue mutation, reducer invocation and state access are
// serialized — the drain loop is single-flight, and everything it touches is
// guarded by one mutex. Operation bodies run on background goroutines; their
// results re-enter through the queue like any other action, so no operation
// ever touches state directly.
type Model[S any, I any, A comparable, ID comparable] struct {
	mu       sync.Mutex
	state    S
	draining bool

	reducer   Reducer[S, A, ID]
	transform Transform[I, A]

	queue *effectQueue[A, ID]
	tasks *taskRegistry[ID]

	observer    Observer[S, A]
	handleError ErrorHandler

	logger     *slog.Logger
	tokens     TokenGenerator
	maxEffects int

	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// Option configures a Model at construction.
type Option[S any, I any, A comparable, ID comparable] func(*Model[S, I, A, ID])

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger[S any, I any, A comparable, ID comparable](l *slog.Logger) Option[S, I, A, ID] {
	return func(m *Model[S, I, A, ID]) {
		m.logger = l
	}
}

// WithErrorHandler sets the consumer's handler for non-cancellation
// operation failures.
func WithErrorHandler[S any, I any, A comparable, ID comparable](h ErrorHandler) Option[S, I, A, ID] {
	return func(m *Model[S, I, A, ID]) {
		m.handleError = h
	}
}

// WithObserver installs the initial observer hooks.
func WithObserver[S any, I any, A comparable, ID comparable](o Observer[S, A]) Option[S, I, A, ID] {
	return func(m *Model[S, I, A, ID]) {
		m.observer = o
	}
}

// WithTokens sets the perform-token generator. Default: UUIDv7Tokens.
// Tests use NewFixedTokens for deterministic traces.
func WithTokens[S any, I any, A comparable, ID comparable](g TokenGenerator) Option[S, I, A, ID] {
	return func(m *Model[S, I, A, ID]) {
		m.tokens = g
	}
}

// WithMaxEffectsPerDrain sets the per-drain effect quota.
// Default: DefaultMaxEffectsPerDrain.
func WithMaxEffectsPerDrain[S any, I any, A comparable, ID comparable](n int) Option[S, I, A, ID] {
	return func(m *Model[S, I, A, ID]) {
		m.maxEffects = n
	}
}

// WithContext sets the base context operations run under. Cancelling it
// cancels every in-flight and future operation. Default: context.Background().
func WithContext[S any, I any, A comparable, ID comparable](ctx context.Context) Option[S, I, A, ID] {
	return func(m *Model[S, I, A, ID]) {
		m.baseCtx = ctx
	}
}

// New creates a Model with the given initial state, reducer and transform.
// transform may be nil when the consumer only uses Perform.
func New[S any, I any, A comparable, ID comparable](
	initial S,
	reducer Reducer[S, A, ID],
	transform Transform[I, A],
	opts ...Option[S, I, A, ID],
) *Model[S, I, A, ID] {
	m := &Model[S, I, A, ID]{
		state:      initial,
		reducer:    reducer,
		transform:  transform,
		queue:      newEffectQueue[A, ID](),
		tasks:      newTaskRegistry[ID](),
		logger:     slog.Default(),
		tokens:     UUIDv7Tokens{},
		maxEffects: DefaultMaxEffectsPerDrain,
		baseCtx:    context.Background(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.baseCtx, m.baseCancel = context.WithCancel(m.baseCtx)

	return m
}

// Perform feeds an action into the reducer loop under a fresh perform token.
//
// If a drain is already in progress the action is appended to the active
// queue and picked up by that loop; otherwise this call drains the queue to
// empty before returning. Safe from any goroutine.
func (m *Model[S, I, A, ID]) Perform(a A) {
	m.perform(m.tokens.Generate(), a)
}

// Send maps an external input through the transform and performs each
// resulting action individually.
func (m *Model[S, I, A, ID]) Send(in I) {
	if m.transform == nil {
		m.logger.Warn("send ignored: model has no transform")
		return
	}
	for _, a := range m.transform(in) {
		m.Perform(a)
	}
}

// State returns a copy of the current state.
func (m *Model[S, I, A, ID]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observer returns the currently installed observer hooks.
func (m *Model[S, I, A, ID]) Observer() Observer[S, A] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.observer
}

// SetObserver replaces the observer hooks. The test harness wraps the
// existing observer and restores it on cleanup, so replacement must be
// non-destructive for readers that captured the previous value.
func (m *Model[S, I, A, ID]) SetObserver(o Observer[S, A]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
}

// TaskCount reports the number of in-flight registered tasks.
func (m *Model[S, I, A, ID]) TaskCount() int {
	return m.tasks.Len()
}

// QueueLen reports the number of pending effects.
func (m *Model[S, I, A, ID]) QueueLen() int {
	return m.queue.Len()
}

// Idle reports whether the model has no pending queue items, no active drain
// and no in-flight tasks. The harness polls this for wait-for-idle.
func (m *Model[S, I, A, ID]) Idle() bool {
	m.mu.Lock()
	draining := m.draining
	m.mu.Unlock()

	return !draining && m.queue.Len() == 0 && m.tasks.Len() == 0
}

// Shutdown cancels every in-flight operation and rejects further effects.
// Actions performed after Shutdown are dropped.
func (m *Model[S, I, A, ID]) Shutdown() {
	m.logger.Info("model shutting down")
	m.queue.Close()
	m.baseCancel()
	m.tasks.CancelAll()
}

// perform enqueues a dispatch for a under token and ensures a drain is
// running.
func (m *Model[S, I, A, ID]) perform(token string, a A) {
	if !m.queue.Enqueue(queueItem[A, ID]{token: token, effect: Dispatch[A, ID](a)}) {
		m.logger.Debug("action dropped: model is shut down", "token", token)
		return
	}
	m.startDrain()
}

// startDrain begins a drain pass unless one is already active. The flag is
// the single-flight guard: at most one goroutine drains at a time, and
// effects enqueued meanwhile are picked up by the active pass.
func (m *Model[S, I, A, ID]) startDrain() {
	m.mu.Lock()
	if m.draining {
		m.mu.Unlock()
		return
	}
	m.draining = true
	m.mu.Unlock()

	m.drain()
}

// drain pops the queue head and dispatches by kind until the queue is empty.
//
// Effects produced while draining land at the tail of this same queue,
// giving breadth-first execution order across effect-generation levels.
func (m *Model[S, I, A, ID]) drain() {
	quota := drainQuota{max: m.maxEffects}

	for {
		it, ok := m.queue.TryDequeue()
		if !ok {
			// Re-check emptiness under the lock before going idle: an
			// enqueue racing this miss must not strand its effect.
			m.mu.Lock()
			if m.queue.Len() == 0 {
				m.draining = false
				m.mu.Unlock()
				return
			}
			m.mu.Unlock()
			continue
		}

		if !quota.check() {
			dropped := m.queue.Clear()
			err := newQuotaError(quota.used, quota.max, dropped)
			m.logger.Error("drain pass aborted",
				"error", err,
				"processed", quota.used,
				"limit", quota.max,
				"dropped", dropped,
			)
			m.emitError(err)

			m.mu.Lock()
			m.draining = false
			m.mu.Unlock()
			return
		}

		m.handleEffect(it.token, it.effect)
	}
}

// handleEffect is the interpreter's dispatch table.
func (m *Model[S, I, A, ID]) handleEffect(token string, eff Effect[A, ID]) {
	switch eff.kind {
	case effectNone:
		// Discard.

	case effectDispatch:
		m.reduce(token, eff.action)

	case effectRun:
		m.startRun(token, eff)

	case effectCancel:
		if m.tasks.Cancel(eff.id) {
			m.logger.Debug("task cancelled", "id", eff.id, "token", token)
		}

	case effectConcurrent:
		m.runConcurrent(token, eff.children)

	default:
		m.logger.Error("unknown effect kind", "kind", int(eff.kind))
	}
}

// reduce invokes the reducer for a, fires the observer hooks, and appends
// the returned effects to the queue tail under the same token.
func (m *Model[S, I, A, ID]) reduce(token string, a A) {
	m.mu.Lock()
	old := m.state
	effects := m.reducer(&m.state, a)
	new := m.state
	obs := m.observer
	m.mu.Unlock()

	obs.action(token, a)
	obs.stateChange(old, new)

	for _, eff := range effects {
		if eff.IsNone() {
			continue
		}
		obs.effect(eff.String())
		m.queue.Enqueue(queueItem[A, ID]{token: token, effect: eff})
	}

	m.logger.Debug("action reduced",
		"token", token,
		"effects", len(effects),
	)
}

// startRun spawns the operation of a run effect. For keyed runs, any prior
// task under the same id is cancelled and replaced before the new one starts.
func (m *Model[S, I, A, ID]) startRun(token string, eff Effect[A, ID]) {
	op := eff.op
	if op == nil {
		return
	}

	ctx := m.baseCtx
	var t *task
	if eff.hasID {
		runCtx, cancel := context.WithCancel(m.baseCtx)
		ctx = runCtx
		t = &task{cancel: cancel}
		if m.tasks.Register(eff.id, t) {
			m.logger.Debug("task superseded", "id", eff.id, "token", token)
		}
	}

	go func() {
		start := time.Now()
		res := op.Invoke(ctx)
		m.Observer().operation(op.Name(), time.Since(start))

		if eff.hasID {
			if !m.tasks.Release(eff.id, t) {
				// Superseded or cancelled while running: the late result
				// must not be applied.
				m.logger.Debug("stale run result discarded",
					"operation", op.Name(),
					"id", eff.id,
					"token", token,
				)
				return
			}
		}
		if ctx.Err() != nil {
			m.logger.Debug("cancelled run result discarded",
				"operation", op.Name(),
				"token", token,
			)
			return
		}

		m.applyResult(token, op.Name(), res)
	}()
}

// applyResult funnels an operation outcome back into the loop from a
// background goroutine: actions re-enter through the queue, errors are
// logged and surfaced per the failure policy, none is discarded. Operation
// failures never terminate the drain loop.
func (m *Model[S, I, A, ID]) applyResult(token, opName string, res Result[A]) {
	if a, ok := res.Action(); ok {
		m.perform(token, a)
		return
	}
	m.applyResultErr(token, opName, res)
}

// applyResultNow applies an outcome inside an active drain pass: an action
// reduces immediately so concurrent group results land in declared order,
// ahead of anything already queued behind the group.
func (m *Model[S, I, A, ID]) applyResultNow(token, opName string, res Result[A]) {
	if a, ok := res.Action(); ok {
		m.reduce(token, a)
		return
	}
	m.applyResultErr(token, opName, res)
}

func (m *Model[S, I, A, ID]) applyResultErr(token, opName string, res Result[A]) {
	err := res.Err()
	if err == nil {
		return
	}
	if err.IsCancellation() {
		m.logger.Debug("operation cancelled",
			"operation", opName,
			"token", token,
		)
		return
	}
	m.logger.Error("operation failed",
		"operation", opName,
		"token", token,
		"error", err,
	)
	m.emitError(err)
}

// runConcurrent fans out every run sub-effect in parallel, awaits them all,
// then applies results and remaining sub-effects sequentially in declared
// order. Wall-clock completion order of the operations is irrelevant.
func (m *Model[S, I, A, ID]) runConcurrent(token string, children []Effect[A, ID]) {
	type outcome struct {
		res Result[A]
		dur time.Duration
	}

	outcomes := make([]*outcome, len(children))
	var wg sync.WaitGroup

	for i, child := range children {
		if child.kind != effectRun || child.op == nil {
			continue
		}
		wg.Add(1)
		go func(i int, op *Operation[A]) {
			defer wg.Done()
			start := time.Now()
			res := op.Invoke(m.baseCtx)
			outcomes[i] = &outcome{res: res, dur: time.Since(start)}
		}(i, child.op)
	}

	wg.Wait()

	for i, child := range children {
		if child.kind == effectRun {
			out := outcomes[i]
			if out == nil {
				continue
			}
			m.Observer().operation(child.op.Name(), out.dur)
			if child.hasID {
				// A group member's id supersedes any pre-existing task
				// registered under the same id before its result applies.
				m.tasks.Cancel(child.id)
			}
			m.applyResultNow(token, child.op.Name(), out.res)
			continue
		}
		m.handleEffect(token, child)
	}
}

// emitError invokes the consumer's error handler, if any. Called exactly
// once per non-cancellation failure, synchronously on the calling goroutine.
func (m *Model[S, I, A, ID]) emitError(err *OpError) {
	if m.handleError != nil {
		m.handleError(err)
	}
}
