package engine

import (
	"context"
	"errors"
	"fmt"
)

// Error domains group related failure codes.
const (
	// DomainContext covers cancellation and deadline signals from the
	// platform's context machinery.
	DomainContext = "context"

	// DomainOperation covers failures raised inside a run effect's operation.
	DomainOperation = "operation"

	// DomainEngine covers failures detected by the interpreter itself.
	DomainEngine = "engine"
)

// Error codes within the domains above.
const (
	// CodeCanceled indicates a cooperative cancellation.
	CodeCanceled = "CANCELED"

	// CodeDeadlineExceeded indicates a context deadline fired.
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"

	// CodeOperationFailed indicates an operation returned an error.
	CodeOperationFailed = "OPERATION_FAILED"

	// CodeOperationPanic indicates an operation panicked and was recovered.
	CodeOperationPanic = "OPERATION_PANIC"

	// CodeQuotaExceeded indicates a drain pass hit the per-drain effect
	// quota and was aborted.
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
)

// OpError is the normalized form of any failure surfaced by the runtime.
//
// Two OpErrors are equal when description, code and domain match; identity
// of the underlying error is deliberately excluded so results stay value
// comparable across process boundaries.
type OpError struct {
	// Description is a human-readable account of the failure.
	Description string

	// Code identifies the failure category within its domain.
	Code string

	// Domain groups codes by origin (context, operation, engine).
	Domain string

	// cause retains the original error for errors.Is/As chains.
	// Excluded from equality.
	cause error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Domain, e.Code, e.Description)
}

// Unwrap exposes the original error to errors.Is and errors.As.
func (e *OpError) Unwrap() error {
	return e.cause
}

// Equal reports value equality on the normalized fields.
func (e *OpError) Equal(other *OpError) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Description == other.Description &&
		e.Code == other.Code &&
		e.Domain == other.Domain
}

// IsCancellation reports whether this error represents routine cooperative
// cancellation. Cancellations are logged by the interpreter but never
// surfaced to the consumer's error handler.
func (e *OpError) IsCancellation() bool {
	return e != nil && e.Domain == DomainContext && e.Code == CodeCanceled
}

// Normalize converts an arbitrary error into an OpError.
//
// Context cancellation and deadline errors map into DomainContext; an error
// that already is an OpError passes through; everything else becomes an
// operation failure.
func Normalize(err error) *OpError {
	if err == nil {
		return nil
	}

	var oe *OpError
	if errors.As(err, &oe) {
		return oe
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &OpError{
			Description: err.Error(),
			Code:        CodeCanceled,
			Domain:      DomainContext,
			cause:       err,
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &OpError{
			Description: err.Error(),
			Code:        CodeDeadlineExceeded,
			Domain:      DomainContext,
			cause:       err,
		}
	default:
		return &OpError{
			Description: err.Error(),
			Code:        CodeOperationFailed,
			Domain:      DomainOperation,
			cause:       err,
		}
	}
}

// IsCancellation reports whether err normalizes to a cooperative
// cancellation. Accepts wrapped errors.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	return Normalize(err).IsCancellation()
}

// newQuotaError builds the engine error reported when a drain pass exceeds
// its effect quota.
func newQuotaError(processed, limit, dropped int) *OpError {
	return &OpError{
		Description: fmt.Sprintf("drain pass exceeded effect quota (%d processed, limit %d, %d dropped)", processed, limit, dropped),
		Code:        CodeQuotaExceeded,
		Domain:      DomainEngine,
	}
}
