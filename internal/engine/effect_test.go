package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strand/internal/clock"
)

func noopOp(name string) *Operation[string] {
	return NewOperation(name, func(ctx context.Context) Result[string] {
		return ResultNone[string]()
	})
}

func TestEffect_Equal_Structural(t *testing.T) {
	assert.True(t, None[string, string]().Equal(None[string, string]()))
	assert.True(t, Dispatch[string, string]("a").Equal(Dispatch[string, string]("a")))
	assert.False(t, Dispatch[string, string]("a").Equal(Dispatch[string, string]("b")))
	assert.False(t, Dispatch[string, string]("a").Equal(None[string, string]()))

	assert.True(t, Cancel[string, string]("x").Equal(Cancel[string, string]("x")))
	assert.False(t, Cancel[string, string]("x").Equal(Cancel[string, string]("y")))
}

func TestEffect_Equal_RunComparesIDOnly(t *testing.T) {
	// Different operation bodies under the same id are equal: equality
	// reduces to the cancellation id because closures are not comparable.
	a := RunCancellable("job", noopOp("first"))
	b := RunCancellable("job", noopOp("second"))
	assert.True(t, a.Equal(b))

	c := RunCancellable("other", noopOp("first"))
	assert.False(t, a.Equal(c))

	// Unkeyed runs are indistinguishable from each other but distinct from
	// keyed ones.
	assert.True(t, Run[string, string](noopOp("x")).Equal(Run[string, string](noopOp("y"))))
	assert.False(t, Run[string, string](noopOp("x")).Equal(a))
}

func TestEffect_Equal_Concurrent(t *testing.T) {
	a := Concurrent(
		Dispatch[string, string]("x"),
		RunCancellable("job", noopOp("op")),
	)
	b := Concurrent(
		Dispatch[string, string]("x"),
		RunCancellable("job", noopOp("different-op")),
	)
	assert.True(t, a.Equal(b))

	c := Concurrent(Dispatch[string, string]("x"))
	assert.False(t, a.Equal(c))
}

func TestEffect_String(t *testing.T) {
	assert.Equal(t, "none", None[string, string]().String())
	assert.Equal(t, "dispatch(go)", Dispatch[string, string]("go").String())
	assert.Equal(t, "run(id=job, op=fetch)", RunCancellable("job", noopOp("fetch")).String())
	assert.Equal(t, "run(op=fetch)", Run[string, string](noopOp("fetch")).String())
	assert.Equal(t, "cancel(id=job)", Cancel[string, string]("job").String())
	assert.Equal(t, "concurrent(n=2)", Concurrent(
		Dispatch[string, string]("a"),
		Dispatch[string, string]("b"),
	).String())
}

func TestSleepThen_DeliversActionAfterDelay(t *testing.T) {
	clk := clock.NewVirtual()
	eff := SleepThen[string, string](clk, 3*time.Second, "done")

	res := make(chan Result[string], 1)
	go func() {
		res <- eff.op.Invoke(context.Background())
	}()

	require.Eventually(t, func() bool { return clk.PendingSleeps() == 1 },
		time.Second, time.Millisecond)

	clk.Tick(3 * time.Second)

	select {
	case r := <-res:
		a, ok := r.Action()
		require.True(t, ok)
		assert.Equal(t, "done", a)
	case <-time.After(time.Second):
		t.Fatal("sleepThen never completed")
	}
}

func TestSleepThen_CancellationNormalizes(t *testing.T) {
	clk := clock.NewVirtual()
	eff := SleepThen[string, string](clk, time.Hour, "never")

	ctx, cancel := context.WithCancel(context.Background())
	res := make(chan Result[string], 1)
	go func() {
		res <- eff.op.Invoke(ctx)
	}()

	require.Eventually(t, func() bool { return clk.PendingSleeps() == 1 },
		time.Second, time.Millisecond)
	cancel()

	select {
	case r := <-res:
		require.NotNil(t, r.Err())
		assert.True(t, r.Err().IsCancellation())
	case <-time.After(time.Second):
		t.Fatal("cancelled sleepThen never returned")
	}
}

func TestThrottle_IsDebounce(t *testing.T) {
	clk := clock.NewVirtual()
	op := noopOp("work")

	// Known discrepancy: throttle shares debounce's cancel-and-replace
	// semantics, so the two effects are equal under the same id.
	a := Throttle("job", clk, time.Second, op)
	b := Debounce("job", clk, time.Second, op)
	assert.True(t, a.Equal(b))
}
