// Package clock abstracts time for the effect runtime.
//
// Time-dependent effects (sleep, debounce, timers) take a Clock instead of
// calling the time package directly. Production code uses System; tests use
// Virtual, which only moves when told to. Both implementations satisfy the
// same contract, so consumer code never knows which clock it is running on.
//
// The Virtual clock is the piece that makes timing-dependent reducers
// testable without real delays: a test schedules work, calls Advance or Tick
// with an exact duration, and observes deterministic resumptions and stream
// ticks.
package clock
