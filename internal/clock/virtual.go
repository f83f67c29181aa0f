package clock

import (
	"context"
	"sync"
	"time"
)

// Pump loop tuning. The idle-pass threshold is empirical: resuming one sleep
// may schedule work that registers further sleeps, and Go exposes no portable
// "no runnable goroutines" check, so Run declares the clock quiet after
// several consecutive passes with no new completions.
const (
	stablePumpPasses = 5
	maxPumpPasses    = 100
	pumpYield        = time.Millisecond

	// streamBuffer bounds tick delivery per subscription. An Advance that
	// batches more ticks than the buffer drops the overflow instead of
	// blocking the advancing goroutine.
	streamBuffer = 64
)

// virtualEpoch anchors virtual time at a fixed instant so Now values are
// reproducible across runs.
var virtualEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Virtual is a manually advanced Clock for deterministic tests.
//
// Sleep registers a deadline and suspends until Advance moves the clock past
// it. Stream registers a subscription whose ticks are emitted during Advance:
// a single large jump emits floor(elapsed/interval) ticks at once, carrying
// the remainder toward the next tick. Time never moves on its own.
//
// Thread-safety: all methods are safe for concurrent use. Registration and
// advancement serialize on one mutex, so a sleep registered before an Advance
// is always visible to it.
type Virtual struct {
	mu       sync.Mutex
	now      time.Duration // offset from virtualEpoch
	sleepers []*sleeper
	streams  map[*streamSub]struct{}
}

// sleeper is a single pending Sleep call. done is closed exactly once, gated
// by resolved; the sleeping goroutine may also leave via ctx cancellation, in
// which case a later (or concurrent) resolution is a harmless no-op.
type sleeper struct {
	deadline time.Duration
	done     chan struct{}
	resolved bool
}

type streamSub struct {
	interval time.Duration
	last     time.Duration // virtual timestamp of the last emitted tick
	ch       chan time.Time
	closed   bool
}

// NewVirtual creates a virtual clock at the epoch with no pending work.
func NewVirtual() *Virtual {
	return &Virtual{
		streams: make(map[*streamSub]struct{}),
	}
}

// Now returns the current virtual time.
func (c *Virtual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return virtualEpoch.Add(c.now)
}

// Elapsed returns the total virtual time advanced since creation.
func (c *Virtual) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep suspends until the clock advances past now+d or ctx is cancelled.
//
// Cancellation is tolerated in either order: a sleeper cancelled right as its
// resumption fires returns the context error without double-processing.
func (c *Virtual) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	c.mu.Lock()
	s := &sleeper{
		deadline: c.now + d,
		done:     make(chan struct{}),
	}
	c.sleepers = append(c.sleepers, s)
	c.mu.Unlock()

	defer c.removeSleeper(s)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return nil
	}
}

// Stream returns a channel of virtual tick timestamps every interval.
//
// Ticks are produced by Advance; subscribing alone emits nothing. The channel
// is closed when ctx is cancelled.
func (c *Virtual) Stream(ctx context.Context, interval time.Duration) <-chan time.Time {
	sub := &streamSub{
		interval: interval,
		ch:       make(chan time.Time, streamBuffer),
	}

	c.mu.Lock()
	sub.last = c.now
	c.streams[sub] = struct{}{}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if !sub.closed {
			sub.closed = true
			delete(c.streams, sub)
			close(sub.ch)
		}
	}()

	return sub.ch
}

// Advance moves the clock forward by d, resuming every sleep whose deadline
// is reached and emitting any stream ticks the jump covers.
//
// Advance does not wait for resumed goroutines to run; use Tick or Run when
// resumed work may schedule further sleeps.
func (c *Virtual) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now += d
	c.resolveDueLocked()
	c.emitTicksLocked()
}

// Run pumps pending completions until the clock stabilizes: it repeatedly
// yields to resumed goroutines and resolves any sleeps they registered with
// already-passed deadlines, stopping after stablePumpPasses consecutive idle
// passes (or maxPumpPasses total).
func (c *Virtual) Run() {
	idle := 0
	for pass := 0; pass < maxPumpPasses && idle < stablePumpPasses; pass++ {
		time.Sleep(pumpYield)

		c.mu.Lock()
		n := c.resolveDueLocked()
		c.emitTicksLocked()
		c.mu.Unlock()

		if n > 0 {
			idle = 0
		} else {
			idle++
		}
	}
}

// Tick advances the clock by d and then pumps until stable.
func (c *Virtual) Tick(d time.Duration) {
	c.Advance(d)
	c.Run()
}

// Flush force-completes every outstanding sleep regardless of deadline, then
// pumps until stable.
func (c *Virtual) Flush() {
	c.mu.Lock()
	for _, s := range c.sleepers {
		if !s.resolved {
			s.resolved = true
			close(s.done)
		}
	}
	c.mu.Unlock()

	c.Run()
}

// PendingSleeps reports how many sleeps are registered and unresolved.
// Callers with an explicit quiescence condition can poll this instead of
// relying on Run's idle heuristic.
func (c *Virtual) PendingSleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, s := range c.sleepers {
		if !s.resolved {
			n++
		}
	}
	return n
}

// StreamCount reports how many stream subscriptions are active.
func (c *Virtual) StreamCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.streams)
}

// resolveDueLocked resumes sleeps whose deadline has been reached.
// Caller must hold c.mu. Returns the number of sleeps resumed.
func (c *Virtual) resolveDueLocked() int {
	n := 0
	for _, s := range c.sleepers {
		if !s.resolved && s.deadline <= c.now {
			s.resolved = true
			close(s.done)
			n++
		}
	}
	return n
}

// emitTicksLocked delivers stream ticks covered by the current time.
// Caller must hold c.mu.
func (c *Virtual) emitTicksLocked() {
	for sub := range c.streams {
		if sub.closed || sub.interval <= 0 {
			continue
		}

		ticks := (c.now - sub.last) / sub.interval
		for i := time.Duration(1); i <= ticks; i++ {
			ts := virtualEpoch.Add(sub.last + sub.interval*i)
			select {
			case sub.ch <- ts:
			default:
				// Buffer full: drop rather than block Advance.
			}
		}
		sub.last += sub.interval * ticks
	}
}

// removeSleeper drops a sleeper once its Sleep call has returned.
func (c *Virtual) removeSleeper(s *sleeper) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, cur := range c.sleepers {
		if cur == s {
			c.sleepers = append(c.sleepers[:i], c.sleepers[i+1:]...)
			return
		}
	}
}
