package clock

import (
	"context"
	"time"
)

// Clock is the capability surface time-dependent effects are written against.
//
// Sleep suspends until the duration elapses or ctx is cancelled, returning
// the context error in the latter case. Stream produces tick timestamps every
// interval on the returned channel; the channel is closed when ctx is
// cancelled. Now reports the clock's current time.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
	Stream(ctx context.Context, interval time.Duration) <-chan time.Time
}

// System is the wall-clock implementation of Clock.
//
// System is stateless and safe for concurrent use. The zero value is ready.
type System struct{}

// NewSystem returns a wall-clock Clock.
func NewSystem() System {
	return System{}
}

// Now returns the current wall-clock time.
func (System) Now() time.Time {
	return time.Now()
}

// Sleep suspends for d or until ctx is cancelled, whichever comes first.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stream emits the current time every interval until ctx is cancelled.
//
// The background loop owns the channel and closes it on cancellation, so
// consumers can range over the result. A slow consumer skips ticks rather
// than delaying the schedule (time.Ticker semantics).
func (System) Stream(ctx context.Context, interval time.Duration) <-chan time.Time {
	out := make(chan time.Time, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
