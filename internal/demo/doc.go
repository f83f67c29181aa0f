// Package demo is a small counter view-model used by the CLI and the
// conformance scenarios. It exercises the full effect surface: dispatch
// cascades, async operations and input transformation.
package demo
