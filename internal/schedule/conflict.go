/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

// effectiveEnd maps an inclusive EndDate onto the half-open scan. The
// last day of a multi-day schedule stays open as a handover day; a
// single-day schedule still occupies its one day.
func effectiveEnd(start, end Date) Date {
	if end.After(start) {
		return end
	}
	return start.AddDays(1)
}

// overlaps applies the conflict boundary rule: intervals are treated as
// half-open [start, effectiveEnd), so a schedule ending the day another
// starts is not a double-booking, while a single-day schedule can still
// conflict. Display queries use the closed rule instead; the two are
// deliberately distinct.
func overlaps(aStart, aEnd, bStart, bEnd Date) bool {
	return aStart.Before(effectiveEnd(bStart, bEnd)) && effectiveEnd(aStart, aEnd).After(bStart)
}

// findConflicts scans existing schedules for employees double-booked in
// [start, end). excludeID skips the schedule being updated in place.
// Pure function over the given snapshot; no side effects.
func findConflicts(existing []Schedule, employeeIDs []string, start, end Date, excludeID string) []Conflict {
	var conflicts []Conflict
	for _, employeeID := range employeeIDs {
		for _, other := range existing {
			if other.ID == excludeID {
				continue
			}
			if !other.HasEmployee(employeeID) {
				continue
			}
			if overlaps(start, end, other.StartDate, other.EndDate) {
				conflicts = append(conflicts, Conflict{EmployeeID: employeeID, Schedule: other})
			}
		}
	}
	return conflicts
}

// sameIDSet compares two id lists as sets, ignoring order and duplicates.
// Used to decide whether an update changed the employee binding.
func sameIDSet(a, b []string) bool {
	seen := make(map[string]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}
	matched := make(map[string]bool, len(b))
	for _, id := range b {
		if !seen[id] {
			return false
		}
		matched[id] = true
	}
	return len(seen) == len(matched)
}
