package journal

import (
	"context"
	"log/slog"

	"github.com/roach88/strand/internal/engine"
	"github.com/roach88/strand/internal/trace"
)

// Codec maps a consumer's state and action types onto trace events.
// Optional fields may be nil; the recorder skips what it cannot encode.
type Codec[S any, A comparable] struct {
	// Model names state snapshot events.
	Model string

	// ActionName returns the stable name of an action. Required.
	ActionName func(A) string

	// ActionDetail returns an action's payload, or nil for none.
	ActionDetail func(A) trace.Object

	// State encodes a snapshot of the state after a reduce.
	State func(S) trace.Object

	// DecodeAction rebuilds an action from its recorded name and detail.
	// Required for Replay.
	DecodeAction func(name string, detail trace.Object) (A, bool)
}

// Recorder returns observer hooks that append every reduce to the journal.
//
// Appends run on the model's drain goroutine; failures are logged and
// dropped rather than surfaced, so a broken journal never stalls the loop.
// Operation timings are not recorded: durations are nondeterministic and
// would break replay comparison.
func Recorder[S any, A comparable](j *Journal, c Codec[S, A], logger *slog.Logger) engine.Observer[S, A] {
	if logger == nil {
		logger = slog.Default()
	}

	record := func(token, kind, name string, detail trace.Object) {
		if _, err := j.AppendNext(context.Background(), token, kind, name, detail); err != nil {
			logger.Error("journal append failed",
				"kind", kind,
				"name", name,
				"error", err,
			)
		}
	}

	obs := engine.Observer[S, A]{
		OnAction: func(token string, a A) {
			var detail trace.Object
			if c.ActionDetail != nil {
				detail = c.ActionDetail(a)
			}
			record(token, trace.KindAction, c.ActionName(a), detail)
		},
		OnEffect: func(label string) {
			record("", trace.KindEffect, label, nil)
		},
	}

	if c.State != nil {
		obs.OnStateChange = func(old, new S) {
			record("", trace.KindState, c.Model, c.State(new))
		}
	}

	return obs
}

// ErrorRecorder wraps an error handler so every surfaced failure is also
// journaled. next may be nil.
func ErrorRecorder(j *Journal, logger *slog.Logger, next engine.ErrorHandler) engine.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(err *engine.OpError) {
		detail := trace.Object{
			"code":        trace.String(err.Code),
			"domain":      trace.String(err.Domain),
			"description": trace.String(err.Description),
		}
		if _, jerr := j.AppendNext(context.Background(), "", trace.KindError, err.Code, detail); jerr != nil {
			logger.Error("journal append failed", "kind", trace.KindError, "error", jerr)
		}
		if next != nil {
			next(err)
		}
	}
}
