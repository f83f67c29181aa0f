// Package journal persists runtime traces to SQLite.
//
// Every event a model emits (actions, state snapshots, effects, failures)
// is appended as a content-addressed row ordered by a monotonic sequence
// number. Appends are idempotent: replaying the same event is a no-op, so a
// journal can be rebuilt from a re-run without duplicates.
package journal
