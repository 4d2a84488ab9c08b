// Package change compares slot snapshots between check cycles.
package change

import (
	"nyurban_tracker/internal/model"
)

// Detect returns the slots of current that became available since previous,
// in current's order. A slot qualifies when it is available now and was
// either missing from previous or not available there. Slots that vanished
// from current are not reported.
func Detect(previous, current model.Snapshot) []model.Slot {
	var out []model.Slot
	for _, key := range current.Keys() {
		slot, _ := current.Get(key)
		if !slot.IsAvailable {
			continue
		}
		if prev, ok := previous.Get(key); ok && prev.IsAvailable {
			continue
		}
		out = append(out, slot)
	}
	return out
}
