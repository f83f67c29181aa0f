// Package trace defines the wire form of runtime traces: the events a model
// emits while reducing, the restricted value tree they carry, and the
// RFC 8785 canonical JSON encoding that makes two traces byte-comparable.
//
// Canonical encoding is the only serialization used for golden comparison
// and content-addressed event identity. The value tree forbids floats and
// nulls so every event has exactly one encoding.
package trace
