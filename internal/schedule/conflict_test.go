/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) Date { return NewDate(y, m, d) }

func TestFindConflictsOverlapRule(t *testing.T) {
	existing := []Schedule{
		{
			ID:          "sched-a",
			EmployeeIDs: []string{"emp-1"},
			Title:       "Framing - Oak St",
			StartDate:   date(2024, time.January, 1),
			EndDate:     date(2024, time.January, 5),
		},
	}

	tests := []struct {
		name          string
		start, end    Date
		employeeIDs   []string
		wantConflicts int
	}{
		{
			name:          "interior overlap conflicts",
			start:         date(2024, time.January, 3),
			end:           date(2024, time.January, 8),
			employeeIDs:   []string{"emp-1"},
			wantConflicts: 1,
		},
		{
			name:          "candidate fully covers existing",
			start:         date(2023, time.December, 20),
			end:           date(2024, time.February, 1),
			employeeIDs:   []string{"emp-1"},
			wantConflicts: 1,
		},
		{
			name:          "candidate inside existing",
			start:         date(2024, time.January, 2),
			end:           date(2024, time.January, 4),
			employeeIDs:   []string{"emp-1"},
			wantConflicts: 1,
		},
		{
			// The pinned boundary semantic: half-open [start, end), so a
			// schedule starting exactly when another ends does not conflict.
			name:          "touching boundary does not conflict",
			start:         date(2024, time.January, 5),
			end:           date(2024, time.January, 10),
			employeeIDs:   []string{"emp-1"},
			wantConflicts: 0,
		},
		{
			name:          "touching boundary on the other side does not conflict",
			start:         date(2023, time.December, 25),
			end:           date(2024, time.January, 1),
			employeeIDs:   []string{"emp-1"},
			wantConflicts: 0,
		},
		{
			name:          "single day on first working day conflicts",
			start:         date(2024, time.January, 1),
			end:           date(2024, time.January, 1),
			employeeIDs:   []string{"emp-1"},
			wantConflicts: 1,
		},
		{
			// The handover day is open for the next crew, single-day or not.
			name:          "single day on handover day does not conflict",
			start:         date(2024, time.January, 5),
			end:           date(2024, time.January, 5),
			employeeIDs:   []string{"emp-1"},
			wantConflicts: 0,
		},
		{
			name:          "disjoint after does not conflict",
			start:         date(2024, time.January, 6),
			end:           date(2024, time.January, 10),
			employeeIDs:   []string{"emp-1"},
			wantConflicts: 0,
		},
		{
			name:          "different employee does not conflict",
			start:         date(2024, time.January, 2),
			end:           date(2024, time.January, 4),
			employeeIDs:   []string{"emp-2"},
			wantConflicts: 0,
		},
		{
			name:          "one shared employee among several conflicts",
			start:         date(2024, time.January, 2),
			end:           date(2024, time.January, 4),
			employeeIDs:   []string{"emp-2", "emp-1"},
			wantConflicts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := findConflicts(existing, tt.employeeIDs, tt.start, tt.end, "")
			if len(got) != tt.wantConflicts {
				t.Fatalf("findConflicts() = %d conflicts, want %d", len(got), tt.wantConflicts)
			}
			if tt.wantConflicts > 0 {
				if got[0].Schedule.ID != "sched-a" {
					t.Errorf("conflicting schedule = %s, want sched-a", got[0].Schedule.ID)
				}
			}
		})
	}
}

func TestFindConflictsSingleDay(t *testing.T) {
	existing := []Schedule{
		{
			ID:          "sched-inspect",
			EmployeeIDs: []string{"emp-1"},
			Title:       "Site inspection",
			StartDate:   date(2024, time.January, 3),
			EndDate:     date(2024, time.January, 3),
		},
	}

	// A single-day schedule occupies its one day even though the
	// inclusive end date makes the raw interval zero-width.
	got := findConflicts(existing, []string{"emp-1"}, date(2024, time.January, 3), date(2024, time.January, 3), "")
	if len(got) != 1 {
		t.Fatalf("identical single-day booking: got %d conflicts, want 1", len(got))
	}

	got = findConflicts(existing, []string{"emp-1"}, date(2024, time.January, 3), date(2024, time.January, 8), "")
	if len(got) != 1 {
		t.Fatalf("multi-day starting on the occupied day: got %d conflicts, want 1", len(got))
	}

	got = findConflicts(existing, []string{"emp-1"}, date(2024, time.January, 4), date(2024, time.January, 8), "")
	if len(got) != 0 {
		t.Fatalf("next-day booking: got %d conflicts, want 0", len(got))
	}
}

func TestFindConflictsExcludeID(t *testing.T) {
	existing := []Schedule{
		{
			ID:          "sched-a",
			EmployeeIDs: []string{"emp-1"},
			StartDate:   date(2024, time.March, 1),
			EndDate:     date(2024, time.March, 10),
		},
	}

	// An update-in-place check must not report the schedule against itself.
	got := findConflicts(existing, []string{"emp-1"}, date(2024, time.March, 2), date(2024, time.March, 9), "sched-a")
	if len(got) != 0 {
		t.Fatalf("expected no conflicts when excluding own id, got %d", len(got))
	}
}

func TestFindConflictsReportsPerEmployee(t *testing.T) {
	existing := []Schedule{
		{
			ID:          "sched-a",
			EmployeeIDs: []string{"emp-1", "emp-2"},
			StartDate:   date(2024, time.May, 1),
			EndDate:     date(2024, time.May, 5),
		},
	}

	got := findConflicts(existing, []string{"emp-1", "emp-2", "emp-3"}, date(2024, time.May, 2), date(2024, time.May, 3), "")
	if len(got) != 2 {
		t.Fatalf("expected one conflict per double-booked employee, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, c := range got {
		seen[c.EmployeeID] = true
	}
	if !seen["emp-1"] || !seen["emp-2"] || seen["emp-3"] {
		t.Errorf("unexpected employee set in conflicts: %v", seen)
	}
}

func TestSameIDSet(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"equal same order", []string{"a", "b"}, []string{"a", "b"}, true},
		{"equal different order", []string{"a", "b"}, []string{"b", "a"}, true},
		{"duplicates collapse", []string{"a", "a", "b"}, []string{"b", "a"}, true},
		{"extra element", []string{"a"}, []string{"a", "b"}, false},
		{"missing element", []string{"a", "b"}, []string{"a"}, false},
		{"both empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameIDSet(tt.a, tt.b); got != tt.want {
				t.Errorf("sameIDSet(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
