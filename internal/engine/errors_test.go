package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Cancellation(t *testing.T) {
	oe := Normalize(context.Canceled)

	require.NotNil(t, oe)
	assert.Equal(t, DomainContext, oe.Domain)
	assert.Equal(t, CodeCanceled, oe.Code)
	assert.True(t, oe.IsCancellation())
}

func TestNormalize_WrappedCancellation(t *testing.T) {
	err := fmt.Errorf("fetch aborted: %w", context.Canceled)

	oe := Normalize(err)
	assert.True(t, oe.IsCancellation())
	assert.True(t, IsCancellation(err))
}

func TestNormalize_DeadlineIsNotCancellation(t *testing.T) {
	oe := Normalize(context.DeadlineExceeded)

	assert.Equal(t, DomainContext, oe.Domain)
	assert.Equal(t, CodeDeadlineExceeded, oe.Code)
	assert.False(t, oe.IsCancellation(), "deadline expiry is a failure, not routine cancellation")
}

func TestNormalize_PlainError(t *testing.T) {
	oe := Normalize(errors.New("boom"))

	assert.Equal(t, DomainOperation, oe.Domain)
	assert.Equal(t, CodeOperationFailed, oe.Code)
	assert.Equal(t, "boom", oe.Description)
	assert.False(t, oe.IsCancellation())
}

func TestNormalize_PassthroughAndNil(t *testing.T) {
	orig := &OpError{Description: "d", Code: "C", Domain: "dom"}
	assert.Same(t, orig, Normalize(orig))
	assert.Nil(t, Normalize(nil))
}

func TestOpError_Equal_IgnoresCause(t *testing.T) {
	a := Normalize(errors.New("boom"))
	b := Normalize(fmt.Errorf("boom"))

	assert.True(t, a.Equal(b), "equality is by code/domain/description, not identity")
	assert.False(t, a.Equal(nil))
}

func TestOpError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	oe := Normalize(fmt.Errorf("wrapped: %w", cause))

	assert.True(t, errors.Is(oe, cause))
}
