package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Event kinds.
const (
	// KindAction records an action entering the reducer.
	KindAction = "action"

	// KindState records a state snapshot after a reduce.
	KindState = "state"

	// KindEffect records an effect being enqueued.
	KindEffect = "effect"

	// KindError records a non-cancellation operation failure.
	KindError = "error"
)

// Domain prefix for content-addressed event identity. The version suffix
// enables future algorithm migration.
const eventDomain = "strand/event/v1"

// Event is one entry in a runtime trace. Seq orders events totally within a
// journal; Token correlates an event with the external Perform that caused
// it, across all cascaded effects.
type Event struct {
	Seq    int64
	Token  string
	Kind   string
	Name   string
	Detail Object
}

// Object returns the event as a restricted value tree for canonical
// encoding. Detail is omitted when empty rather than encoded as null.
func (e Event) Object() Object {
	obj := Object{
		"seq":   Int(e.Seq),
		"token": String(e.Token),
		"kind":  String(e.Kind),
		"name":  String(e.Name),
	}
	if len(e.Detail) > 0 {
		obj["detail"] = e.Detail
	}
	return obj
}

// CanonicalJSON encodes the event in canonical form.
func (e Event) CanonicalJSON() ([]byte, error) {
	return MarshalCanonical(e.Object())
}

// ID computes the content-addressed identity of the event:
// SHA256(domain + 0x00 + canonical JSON). The null separator prevents
// domain/data boundary ambiguity. Stable across restarts and replays.
func (e Event) ID() (string, error) {
	canonical, err := e.CanonicalJSON()
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(eventDomain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}
