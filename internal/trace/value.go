package trace

import (
	"slices"
	"unicode/utf16"
)

// Value is the restricted JSON value tree carried by trace events.
// Floats and nulls are excluded so canonical encoding is total: every
// well-typed Value has exactly one byte representation.
type Value interface {
	value()
}

// String is a JSON string. NFC normalization happens at encode time.
type String string

func (String) value() {}

// Int is a JSON integer.
type Int int64

func (Int) value() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) value() {}

// Array is an ordered JSON array.
type Array []Value

func (Array) value() {}

// Object is a JSON object. Iterate with SortedKeys for deterministic order.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns keys in RFC 8785 canonical order.
// CRITICAL: ordering is by UTF-16 code units, not UTF-8 bytes — Go's
// sort.Strings would produce a different order for non-BMP keys.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units as RFC 8785 requires.
// utf16.Encode handles surrogate pairs correctly.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
