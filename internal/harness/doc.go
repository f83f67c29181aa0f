// Package harness is the conformance layer for models: a probe that records
// every reduced action and polls for conditions, a YAML scenario format with
// CUE schema validation, and golden-file trace comparison.
//
// Scenarios run against a real model with deterministic perform tokens, so
// the recorded trace is byte-stable and can be compared against golden files
// with canonical JSON.
package harness
