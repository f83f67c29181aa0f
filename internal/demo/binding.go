package demo

import (
	"github.com/roach88/strand/internal/harness"
)

// Binding exposes the counter to the scenario runner.
func Binding() harness.Binding[State, string, Action, CancelID] {
	return harness.Binding[State, string, Action, CancelID]{
		New: New,
		DecodeAction: func(name string) (Action, bool) {
			return DecodeAction(name, nil)
		},
		DecodeInput: func(raw string) (string, bool) {
			return raw, true
		},
		ActionName:  func(a Action) string { return string(a) },
		EncodeState: EncodeState,
	}
}
