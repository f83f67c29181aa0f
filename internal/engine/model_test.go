package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strand/internal/clock"
)

type counterState struct {
	Count int
}

type counterModel = Model[counterState, string, string, string]
type counterReducer = Reducer[counterState, string, string]
type counterOption = Option[counterState, string, string, string]
type counterEffect = Effect[string, string]

func newCounter(r counterReducer, opts ...counterOption) *counterModel {
	return New[counterState, string, string, string](counterState{}, r, nil, opts...)
}

// actionLog records actions through the observer hook.
type actionLog struct {
	mu      sync.Mutex
	actions []string
}

func (l *actionLog) observer() Observer[counterState, string] {
	return Observer[counterState, string]{
		OnAction: func(token string, a string) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.actions = append(l.actions, a)
		},
	}
}

func (l *actionLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.actions...)
}

func waitIdle(t *testing.T, m *counterModel) {
	t.Helper()
	require.Eventually(t, m.Idle, 2*time.Second, time.Millisecond, "model never went idle")
}

func TestModel_BreadthFirstOrdering(t *testing.T) {
	log := &actionLog{}
	m := newCounter(func(s *counterState, a string) []counterEffect {
		switch a {
		case "A":
			return []counterEffect{Dispatch[string, string]("B"), Dispatch[string, string]("C")}
		case "B":
			return []counterEffect{Dispatch[string, string]("D")}
		default:
			return nil
		}
	}, WithObserver[counterState, string, string, string](log.observer()))

	m.Perform("A")

	// Level order, not depth-first: D comes after C even though B spawned it.
	assert.Equal(t, []string{"A", "B", "C", "D"}, log.list())
}

func TestModel_EndToEndCounter(t *testing.T) {
	log := &actionLog{}
	m := newCounter(func(s *counterState, a string) []counterEffect {
		switch a {
		case "increment":
			return []counterEffect{Dispatch[string, string]("incrementCompleted")}
		case "incrementCompleted":
			s.Count++
		}
		return nil
	}, WithObserver[counterState, string, string, string](log.observer()))

	m.Perform("increment")

	assert.Equal(t, 1, m.State().Count)
	assert.Equal(t, []string{"increment", "incrementCompleted"}, log.list())
}

func TestModel_SingleFlightDraining(t *testing.T) {
	var inReducer, maxInReducer atomic.Int32
	var processed atomic.Int32

	m := newCounter(func(s *counterState, a string) []counterEffect {
		cur := inReducer.Add(1)
		for {
			max := maxInReducer.Load()
			if cur <= max || maxInReducer.CompareAndSwap(max, cur) {
				break
			}
		}
		processed.Add(1)
		inReducer.Add(-1)

		if a == "parent" {
			return []counterEffect{Dispatch[string, string]("child")}
		}
		return nil
	})

	const performers = 10
	var wg sync.WaitGroup
	for i := 0; i < performers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Perform("parent")
		}()
	}
	wg.Wait()
	waitIdle(t, m)

	assert.Equal(t, int32(1), maxInReducer.Load(), "reducer must never run concurrently")
	assert.Equal(t, int32(2*performers), processed.Load(), "every action processed exactly once")
}

func TestModel_RunResultFeedsBack(t *testing.T) {
	op := NewOperation("work", func(ctx context.Context) Result[string] {
		return ResultAction("finished")
	})

	m := newCounter(func(s *counterState, a string) []counterEffect {
		switch a {
		case "start":
			return []counterEffect{Run[string, string](op)}
		case "finished":
			s.Count++
		}
		return nil
	})

	m.Perform("start")
	waitIdle(t, m)

	assert.Equal(t, 1, m.State().Count)
}

func TestModel_SupersededRunResultDiscarded(t *testing.T) {
	release := make(chan struct{})
	slow := NewOperation("slow", func(ctx context.Context) Result[string] {
		// Deliberately ignores ctx: the late result must still be dropped
		// via the registry identity check.
		<-release
		return ResultAction("slowDone")
	})
	fast := NewOperation("fast", func(ctx context.Context) Result[string] {
		return ResultAction("fastDone")
	})

	log := &actionLog{}
	var slowApplied, fastApplied atomic.Int32
	m := newCounter(func(s *counterState, a string) []counterEffect {
		switch a {
		case "first":
			return []counterEffect{RunCancellable("job", slow)}
		case "second":
			return []counterEffect{RunCancellable("job", fast)}
		case "slowDone":
			slowApplied.Add(1)
		case "fastDone":
			fastApplied.Add(1)
		}
		return nil
	}, WithObserver[counterState, string, string, string](log.observer()))

	m.Perform("first")
	assert.Equal(t, 1, m.TaskCount())

	m.Perform("second")
	close(release)
	waitIdle(t, m)

	assert.Equal(t, int32(1), fastApplied.Load())
	assert.Equal(t, int32(0), slowApplied.Load(), "superseded task's late result must not apply")
	assert.NotContains(t, log.list(), "slowDone")
	assert.Equal(t, 0, m.TaskCount())
}

func TestModel_CancelEffect(t *testing.T) {
	blocked := NewOperation("blocked", func(ctx context.Context) Result[string] {
		<-ctx.Done()
		return ResultError[string](ctx.Err())
	})

	var handlerCalls atomic.Int32
	m := newCounter(func(s *counterState, a string) []counterEffect {
		switch a {
		case "start":
			return []counterEffect{RunCancellable("job", blocked)}
		case "stop":
			return []counterEffect{Cancel[string, string]("job")}
		}
		return nil
	}, WithErrorHandler[counterState, string, string, string](func(err *OpError) {
		handlerCalls.Add(1)
	}))

	m.Perform("start")
	require.Equal(t, 1, m.TaskCount())

	m.Perform("stop")
	waitIdle(t, m)

	assert.Equal(t, 0, m.TaskCount())
	assert.Equal(t, int32(0), handlerCalls.Load(), "cancellation must not reach the error handler")
}

func TestModel_ConcurrentAppliesInDeclaredOrder(t *testing.T) {
	slow := NewOperation("slow", func(ctx context.Context) Result[string] {
		time.Sleep(50 * time.Millisecond)
		return ResultAction("one")
	})
	fast := NewOperation("fast", func(ctx context.Context) Result[string] {
		return ResultAction("two")
	})

	log := &actionLog{}
	m := newCounter(func(s *counterState, a string) []counterEffect {
		if a == "go" {
			return []counterEffect{Concurrent(
				RunCancellable("1", slow),
				Dispatch[string, string]("mid"),
				RunCancellable("2", fast),
			)}
		}
		return nil
	}, WithObserver[counterState, string, string, string](log.observer()))

	m.Perform("go")
	waitIdle(t, m)

	// fast finished long before slow, but results apply in declared order.
	assert.Equal(t, []string{"go", "one", "mid", "two"}, log.list())
}

func TestModel_OperationFailureReachesHandlerOnce(t *testing.T) {
	failing := NewOperation("failing", func(ctx context.Context) Result[string] {
		return ResultError[string](errors.New("boom"))
	})

	var handlerCalls atomic.Int32
	var got *OpError
	m := newCounter(func(s *counterState, a string) []counterEffect {
		if a == "fail" {
			return []counterEffect{Run[string, string](failing)}
		}
		return nil
	}, WithErrorHandler[counterState, string, string, string](func(err *OpError) {
		handlerCalls.Add(1)
		got = err
	}))

	m.Perform("fail")
	waitIdle(t, m)

	require.Eventually(t, func() bool { return handlerCalls.Load() == 1 },
		time.Second, time.Millisecond)
	require.NotNil(t, got)
	assert.Equal(t, CodeOperationFailed, got.Code)
	assert.Equal(t, "boom", got.Description)
}

func TestModel_CancellationErrorSuppressed(t *testing.T) {
	cancelled := NewOperation("cancelled", func(ctx context.Context) Result[string] {
		return ResultError[string](context.Canceled)
	})

	var handlerCalls atomic.Int32
	m := newCounter(func(s *counterState, a string) []counterEffect {
		if a == "start" {
			return []counterEffect{RunCancellable("job", cancelled)}
		}
		return nil
	}, WithErrorHandler[counterState, string, string, string](func(err *OpError) {
		handlerCalls.Add(1)
	}))

	m.Perform("start")
	waitIdle(t, m)

	assert.Equal(t, int32(0), handlerCalls.Load())
	assert.Equal(t, 0, m.TaskCount(), "registry entry removed even for cancellation results")
}

func TestModel_DebounceCollapsesRapidTriggers(t *testing.T) {
	clk := clock.NewVirtual()
	save := NewOperation("save", func(ctx context.Context) Result[string] {
		return ResultAction("saved")
	})

	m := newCounter(func(s *counterState, a string) []counterEffect {
		switch a {
		case "keystroke":
			return []counterEffect{Debounce("debounce", clk, time.Second, save)}
		case "saved":
			s.Count++
		}
		return nil
	})

	m.Perform("keystroke")
	m.Perform("keystroke")
	m.Perform("keystroke")

	// Only the last trigger's sleep survives; the superseded ones unwind.
	require.Eventually(t, func() bool { return clk.PendingSleeps() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, clk.PendingSleeps())

	clk.Tick(time.Second)
	waitIdle(t, m)
	assert.Equal(t, 1, m.State().Count, "rapid triggers collapse to a single delayed run")

	// Further advancement fires nothing else.
	clk.Tick(10 * time.Second)
	waitIdle(t, m)
	assert.Equal(t, 1, m.State().Count)
}

func TestModel_TimerRearm(t *testing.T) {
	clk := clock.NewVirtual()

	var timer func() counterEffect
	timer = func() counterEffect {
		return Timer("timer", clk, time.Second, func(time.Time) string { return "tick" })
	}

	m := newCounter(func(s *counterState, a string) []counterEffect {
		switch a {
		case "start":
			return []counterEffect{timer()}
		case "tick":
			s.Count++
			if s.Count < 3 {
				return []counterEffect{timer()}
			}
		}
		return nil
	})

	m.Perform("start")
	require.Eventually(t, func() bool { return clk.StreamCount() == 1 },
		time.Second, time.Millisecond, "timer never subscribed")

	// Each arm delivers exactly one tick, so repeated advancement cannot
	// overshoot: the reducer stops re-arming at three.
	for i := 1; i <= 3; i++ {
		require.Eventually(t, func() bool {
			clk.Tick(time.Second)
			return m.State().Count >= i
		}, 2*time.Second, 5*time.Millisecond, "tick %d never delivered", i)
	}

	waitIdle(t, m)
	clk.Tick(10 * time.Second)
	waitIdle(t, m)
	assert.Equal(t, 3, m.State().Count)
}

func TestModel_QuotaAbortsRunawayReducer(t *testing.T) {
	var handlerCalls atomic.Int32
	var got *OpError
	m := newCounter(func(s *counterState, a string) []counterEffect {
		s.Count++
		return []counterEffect{Dispatch[string, string]("again")}
	},
		WithMaxEffectsPerDrain[counterState, string, string, string](10),
		WithErrorHandler[counterState, string, string, string](func(err *OpError) {
			handlerCalls.Add(1)
			got = err
		}),
	)

	m.Perform("spin")

	assert.Equal(t, int32(1), handlerCalls.Load())
	require.NotNil(t, got)
	assert.Equal(t, CodeQuotaExceeded, got.Code)
	assert.Equal(t, DomainEngine, got.Domain)
	assert.True(t, m.Idle(), "aborted drain leaves the model idle")
}

func TestModel_SendTransformsInput(t *testing.T) {
	log := &actionLog{}
	m := New[counterState, string, string, string](
		counterState{},
		func(s *counterState, a string) []counterEffect {
			s.Count++
			return nil
		},
		func(in string) []string {
			return []string{in + ".begin", in + ".end"}
		},
		WithObserver[counterState, string, string, string](log.observer()),
	)

	m.Send("tap")

	assert.Equal(t, []string{"tap.begin", "tap.end"}, log.list())
	assert.Equal(t, 2, m.State().Count)
}

func TestModel_ShutdownCancelsTasksAndDropsActions(t *testing.T) {
	blocked := NewOperation("blocked", func(ctx context.Context) Result[string] {
		<-ctx.Done()
		return ResultError[string](ctx.Err())
	})

	m := newCounter(func(s *counterState, a string) []counterEffect {
		switch a {
		case "start":
			return []counterEffect{RunCancellable("job", blocked)}
		default:
			s.Count++
		}
		return nil
	})

	m.Perform("start")
	require.Equal(t, 1, m.TaskCount())

	m.Shutdown()

	require.Eventually(t, func() bool { return m.TaskCount() == 0 },
		time.Second, time.Millisecond)

	before := m.State().Count
	m.Perform("late")
	assert.Equal(t, before, m.State().Count, "actions after shutdown are dropped")
}

func TestModel_ObserverHooks(t *testing.T) {
	var mu sync.Mutex
	var stateChanges [][2]int
	var effects []string
	var operations []string

	op := NewOperation("fetch", func(ctx context.Context) Result[string] {
		return ResultNone[string]()
	})

	m := newCounter(func(s *counterState, a string) []counterEffect {
		if a == "bump" {
			s.Count++
			return []counterEffect{Run[string, string](op)}
		}
		return nil
	}, WithObserver[counterState, string, string, string](Observer[counterState, string]{
		OnStateChange: func(old, new counterState) {
			mu.Lock()
			defer mu.Unlock()
			stateChanges = append(stateChanges, [2]int{old.Count, new.Count})
		},
		OnEffect: func(label string) {
			mu.Lock()
			defer mu.Unlock()
			effects = append(effects, label)
		},
		OnOperation: func(name string, d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			operations = append(operations, name)
		},
	}))

	m.Perform("bump")
	waitIdle(t, m)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(operations) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][2]int{{0, 1}}, stateChanges)
	assert.Equal(t, []string{"run(op=fetch)"}, effects)
	assert.Equal(t, []string{"fetch"}, operations)
}

func TestModel_PerformTokenPropagation(t *testing.T) {
	op := NewOperation("work", func(ctx context.Context) Result[string] {
		return ResultAction("followUp")
	})

	var mu sync.Mutex
	tokens := map[string]string{}
	m := newCounter(func(s *counterState, a string) []counterEffect {
		if a == "start" {
			return []counterEffect{Run[string, string](op)}
		}
		return nil
	},
		WithTokens[counterState, string, string, string](NewFixedTokens("tok-1")),
		WithObserver[counterState, string, string, string](Observer[counterState, string]{
			OnAction: func(token, a string) {
				mu.Lock()
				defer mu.Unlock()
				tokens[a] = token
			},
		}),
	)

	m.Perform("start")
	waitIdle(t, m)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "tok-1", tokens["start"])
	assert.Equal(t, "tok-1", tokens["followUp"], "effect-generated actions inherit the root token")
}
