/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"sort"
	"strings"
)

// Query views are pure projections recomputed from the current list on
// every call. No caching; O(n) per call is fine at crew-calendar scale.

// ByJob returns every schedule assigned to the given job.
func (s *Store) ByJob(jobID string) []Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Schedule
	for _, sched := range s.schedules {
		if sched.JobID == jobID {
			out = append(out, sched)
		}
	}
	return out
}

// ByEmployee returns every schedule binding the given employee.
func (s *Store) ByEmployee(employeeID string) []Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Schedule
	for _, sched := range s.schedules {
		if sched.HasEmployee(employeeID) {
			out = append(out, sched)
		}
	}
	return out
}

// InRange returns schedules intersecting [start, end], inclusive on both
// ends. This is the display rule, intentionally looser than the conflict
// checker's half-open rule: a schedule ending the day the range starts is
// still shown.
func (s *Store) InRange(start, end Date) []Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Schedule
	for _, sched := range s.schedules {
		if !sched.StartDate.After(end) && !sched.EndDate.Before(start) {
			out = append(out, sched)
		}
	}
	return out
}

// ForDay returns schedules active on the given day, boundary days
// included.
func (s *Store) ForDay(day Date) []Schedule {
	return s.InRange(day, day)
}

// CalendarEvent is a schedule projected for calendar display, enriched
// with resolved job and crew names.
type CalendarEvent struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	JobID         string   `json:"job_id"`
	JobName       string   `json:"job_name"`
	EmployeeIDs   []string `json:"employee_ids"`
	EmployeeNames string   `json:"employee_names"`
	Start         Date     `json:"start"`
	End           Date     `json:"end"`
	Status        Status   `json:"status"`
	Color         string   `json:"color"`
	Notes         string   `json:"notes,omitempty"`
}

const (
	unknownJobName      = "Unknown Job"
	unknownEmployeeName = "Unknown Employee"
)

// CalendarEvents projects every schedule into a display record. Dangling
// job or employee references resolve to placeholder text; lookups never
// abort the projection. Events come back sorted by start date.
func (s *Store) CalendarEvents(ctx context.Context, jobs JobDirectory, employees EmployeeDirectory) []CalendarEvent {
	snapshot := s.All()

	events := make([]CalendarEvent, 0, len(snapshot))
	for _, sched := range snapshot {
		jobName := unknownJobName
		if jobs != nil {
			if name, ok := jobs.JobName(ctx, sched.JobID); ok {
				jobName = name
			}
		}

		names := make([]string, 0, len(sched.EmployeeIDs))
		for _, id := range sched.EmployeeIDs {
			name := unknownEmployeeName
			if employees != nil {
				if resolved, ok := employees.EmployeeName(ctx, id); ok {
					name = resolved
				}
			}
			names = append(names, name)
		}

		events = append(events, CalendarEvent{
			ID:            sched.ID,
			Title:         sched.Title,
			JobID:         sched.JobID,
			JobName:       jobName,
			EmployeeIDs:   append([]string(nil), sched.EmployeeIDs...),
			EmployeeNames: strings.Join(names, ", "),
			Start:         sched.StartDate,
			End:           sched.EndDate,
			Status:        sched.Status,
			Color:         sched.Status.Color(),
			Notes:         sched.Notes,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events
}
