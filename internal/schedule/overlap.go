// Package schedule provides shift-slot overlap detection, manager slot
// planning, and read-only calendar projections.
package schedule

import (
	"time"

	"github.com/zulandar/shiftline/internal/models"
)

// Overlaps reports whether two half-open minute-of-day intervals
// intersect. Degenerate intervals cannot reach this check: a slot is
// only constructible with end strictly after start.
func Overlaps(startA, endA, startB, endB int) bool {
	return startA < endB && startB < endA
}

// SameDate reports whether two timestamps fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ConflictsWith reports whether any existing slot on the candidate's
// date overlaps the candidate. Intervals on different dates never
// overlap regardless of time-of-day values.
func ConflictsWith(existing []models.ShiftSlot, candidate models.ShiftSlot) bool {
	for _, slot := range existing {
		if !SameDate(slot.Date, candidate.Date) {
			continue
		}
		if Overlaps(slot.StartMin, slot.EndMin, candidate.StartMin, candidate.EndMin) {
			return true
		}
	}
	return false
}
