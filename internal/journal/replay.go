package journal

import (
	"context"
	"fmt"

	"github.com/roach88/strand/internal/trace"
)

// Replay reads the journal's recorded actions in sequence order and feeds
// each through apply. State, effect and error events are skipped: only the
// action stream is needed to rebuild state, because reducers are pure.
//
// apply should fold the action through the reducer WITHOUT executing
// effects. The recorded stream already contains every effect-produced
// action, so re-running effects would apply them twice.
//
// Returns the number of actions applied. An action whose decode cannot
// recover the original value indicates a corrupt or mismatched journal and
// aborts the replay.
func Replay[A comparable](ctx context.Context, j *Journal, decode func(name string, detail trace.Object) (A, bool), apply func(A)) (int, error) {
	events, err := j.ReadKind(ctx, trace.KindAction)
	if err != nil {
		return 0, fmt.Errorf("replay: %w", err)
	}

	applied := 0
	for _, e := range events {
		a, ok := decode(e.Name, e.Detail)
		if !ok {
			return applied, fmt.Errorf("replay: unknown action %q at seq %d", e.Name, e.Seq)
		}
		apply(a)
		applied++
	}

	return applied, nil
}
