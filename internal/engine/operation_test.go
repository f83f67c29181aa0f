package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_Invoke_Action(t *testing.T) {
	op := NewOperation("fetch", func(ctx context.Context) Result[string] {
		return ResultAction("done")
	})

	res := op.Invoke(context.Background())

	a, ok := res.Action()
	require.True(t, ok)
	assert.Equal(t, "done", a)
	assert.Equal(t, "fetch", op.Name())
}

func TestOperation_Invoke_RecoversPanic(t *testing.T) {
	op := NewOperation("explosive", func(ctx context.Context) Result[string] {
		panic("kaboom")
	})

	res := op.Invoke(context.Background())

	err := res.Err()
	require.NotNil(t, err, "panic must normalize to an error result")
	assert.Equal(t, CodeOperationPanic, err.Code)
	assert.Contains(t, err.Description, "kaboom")
}

func TestOperation_Invoke_NilOperation(t *testing.T) {
	var op *Operation[string]

	res := op.Invoke(context.Background())
	assert.True(t, res.IsNone())
	assert.Equal(t, "", op.Name())
}

func TestNewActionOperation_ConvertsError(t *testing.T) {
	op := NewActionOperation("load", func(ctx context.Context) (int, error) {
		return 0, errors.New("load failed")
	})

	res := op.Invoke(context.Background())

	err := res.Err()
	require.NotNil(t, err)
	assert.Equal(t, CodeOperationFailed, err.Code)
}

func TestNewActionOperation_ConvertsValue(t *testing.T) {
	op := NewActionOperation("load", func(ctx context.Context) (int, error) {
		return 42, nil
	})

	res := op.Invoke(context.Background())

	a, ok := res.Action()
	require.True(t, ok)
	assert.Equal(t, 42, a)
}

func TestResult_Equality(t *testing.T) {
	assert.True(t, ResultAction("x").Equal(ResultAction("x")))
	assert.False(t, ResultAction("x").Equal(ResultAction("y")))
	assert.True(t, ResultNone[string]().Equal(ResultNone[string]()))
	assert.False(t, ResultNone[string]().Equal(ResultAction("x")))

	// Errors compare by normalized fields, not identity.
	e1 := ResultError[string](errors.New("boom"))
	e2 := ResultError[string](errors.New("boom"))
	assert.True(t, e1.Equal(e2))

	// Nil error degrades to none.
	assert.True(t, ResultError[string](nil).IsNone())
}
