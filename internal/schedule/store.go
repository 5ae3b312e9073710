/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound signals an update against an unknown schedule id.
var ErrNotFound = errors.New("schedule not found")

// Store owns the authoritative schedule list. It is constructed once by
// the composition root and handed to every collaborator; there is no
// package-level instance. Mutations are serialized by a mutex and each
// one writes the full list through the persister.
type Store struct {
	mu        sync.RWMutex
	schedules []Schedule

	persister Persister
	notifier  Notifier
	logger    zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewStore loads the persisted schedule list and returns a ready store.
// A broken or missing document degrades to an empty list.
func NewStore(ctx context.Context, persister Persister, notifier Notifier, logger zerolog.Logger) *Store {
	s := &Store{
		persister: persister,
		notifier:  notifier,
		logger:    logger.With().Str("component", "schedule_store").Logger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}

	loaded, err := persister.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("loading schedules failed, starting empty")
		loaded = nil
	}
	s.schedules = loaded
	s.logger.Info().Int("count", len(loaded)).Msg("schedule store loaded")
	return s
}

// CreateInput carries the caller-supplied fields for a new schedule.
type CreateInput struct {
	JobID              string   `json:"job_id"`
	EmployeeIDs        []string `json:"employee_ids"`
	Title              string   `json:"title"`
	StartDate          Date     `json:"start_date"`
	EndDate            Date     `json:"end_date"`
	Status             Status   `json:"status"`
	Notes              string   `json:"notes"`
	PredecessorID      string   `json:"predecessor_id"`
	PredecessorLagDays int      `json:"predecessor_lag_days"`
}

// Create validates the candidate against existing bookings and, when no
// employee is double-booked, appends and persists the new schedule. On
// conflict nothing is mutated and the conflict list is returned; the
// caller decides whether to surface or override.
func (s *Store) Create(ctx context.Context, in CreateInput) (Schedule, []Conflict) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conflicts := findConflicts(s.schedules, in.EmployeeIDs, in.StartDate, in.EndDate, ""); len(conflicts) > 0 {
		s.notify(ctx, Notice{
			Title:    "Scheduling Conflict",
			Body:     fmt.Sprintf("%d crew member(s) are already booked in that window.", len(conflicts)),
			Severity: SeverityError,
		})
		return Schedule{}, conflicts
	}

	now := s.now()
	sched := Schedule{
		ID:                 s.newID(),
		JobID:              in.JobID,
		EmployeeIDs:        append([]string(nil), in.EmployeeIDs...),
		Title:              in.Title,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		Status:             in.Status,
		Notes:              in.Notes,
		PredecessorID:      in.PredecessorID,
		PredecessorLagDays: in.PredecessorLagDays,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if sched.Status == "" {
		sched.Status = StatusScheduled
	}

	s.schedules = append(s.schedules, sched)
	s.persist(ctx)
	s.notify(ctx, Notice{
		Title:    "Schedule Created",
		Body:     fmt.Sprintf("%s runs %s to %s.", sched.Title, sched.StartDate, sched.EndDate),
		Severity: SeverityInfo,
	})
	return sched, nil
}

// Update is a partial schedule patch. Nil fields are left untouched; a
// non-nil EmployeeIDs replaces the whole crew list.
type Update struct {
	JobID              *string  `json:"job_id"`
	EmployeeIDs        []string `json:"employee_ids"`
	Title              *string  `json:"title"`
	StartDate          *Date    `json:"start_date"`
	EndDate            *Date    `json:"end_date"`
	Status             *Status  `json:"status"`
	Notes              *string  `json:"notes"`
	PredecessorID      *string  `json:"predecessor_id"`
	PredecessorLagDays *int     `json:"predecessor_lag_days"`
}

// apply returns a copy of the schedule with the patch merged in.
func (u Update) apply(sched Schedule) Schedule {
	if u.JobID != nil {
		sched.JobID = *u.JobID
	}
	if u.EmployeeIDs != nil {
		sched.EmployeeIDs = append([]string(nil), u.EmployeeIDs...)
	}
	if u.Title != nil {
		sched.Title = *u.Title
	}
	if u.StartDate != nil {
		sched.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		sched.EndDate = *u.EndDate
	}
	if u.Status != nil {
		sched.Status = *u.Status
	}
	if u.Notes != nil {
		sched.Notes = *u.Notes
	}
	if u.PredecessorID != nil {
		sched.PredecessorID = *u.PredecessorID
	}
	if u.PredecessorLagDays != nil {
		sched.PredecessorLagDays = *u.PredecessorLagDays
	}
	return sched
}

// needsRecheck reports whether the update moves the schedule in time or
// rebinds employees.
func (u Update) needsRecheck(existing Schedule) bool {
	if u.StartDate != nil && !u.StartDate.Equal(existing.StartDate) {
		return true
	}
	if u.EndDate != nil && !u.EndDate.Equal(existing.EndDate) {
		return true
	}
	if u.EmployeeIDs != nil && !sameIDSet(u.EmployeeIDs, existing.EmployeeIDs) {
		return true
	}
	return false
}

// Update merges a patch into an existing schedule, re-validating
// conflicts only when the booking window or crew changes. Returns
// ErrNotFound for an unknown id; a conflicting patch mutates nothing.
func (s *Store) Update(ctx context.Context, id string, upd Update) (Schedule, []Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.schedules {
		if s.schedules[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Schedule{}, nil, ErrNotFound
	}

	merged := upd.apply(s.schedules[idx])
	if upd.needsRecheck(s.schedules[idx]) {
		if conflicts := findConflicts(s.schedules, merged.EmployeeIDs, merged.StartDate, merged.EndDate, id); len(conflicts) > 0 {
			s.notify(ctx, Notice{
				Title:    "Scheduling Conflict",
				Body:     fmt.Sprintf("Update to %s would double-book %d crew member(s).", merged.Title, len(conflicts)),
				Severity: SeverityError,
			})
			return Schedule{}, conflicts, nil
		}
	}

	merged.UpdatedAt = s.now()
	s.schedules[idx] = merged
	s.persist(ctx)
	s.notify(ctx, Notice{
		Title:    "Schedule Updated",
		Body:     fmt.Sprintf("%s now runs %s to %s.", merged.Title, merged.StartDate, merged.EndDate),
		Severity: SeverityInfo,
	})
	return merged, nil, nil
}

// Delete removes the schedule with the given id. Deleting an unknown id
// is a no-op; deletion cannot introduce overlaps, so no re-validation.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.schedules {
		if s.schedules[i].ID == id {
			title := s.schedules[i].Title
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			s.persist(ctx)
			s.notify(ctx, Notice{
				Title:    "Schedule Deleted",
				Body:     fmt.Sprintf("%s was removed from the calendar.", title),
				Severity: SeverityError,
			})
			return
		}
	}
}

// CheckConflicts reports double-bookings for the candidate window without
// mutating anything. excludeID skips a schedule being edited in place.
func (s *Store) CheckConflicts(employeeIDs []string, start, end Date, excludeID string) []Conflict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findConflicts(s.schedules, employeeIDs, start, end, excludeID)
}

// Get returns the schedule with the given id.
func (s *Store) Get(id string) (Schedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sched := range s.schedules {
		if sched.ID == id {
			return sched, true
		}
	}
	return Schedule{}, false
}

// All returns a snapshot of every schedule in insertion order.
func (s *Store) All() []Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Schedule(nil), s.schedules...)
}

// persist writes the full list through the persister. A failed write is
// logged and surfaced through the sink but does not undo the in-memory
// mutation: the store stays authoritative for the session and the next
// successful mutation rewrites the whole document.
func (s *Store) persist(ctx context.Context) {
	if err := s.persister.Save(ctx, s.schedules); err != nil {
		s.logger.Error().Err(err).Msg("persisting schedules failed")
		s.notify(ctx, Notice{
			Title:    "Save Failed",
			Body:     "Schedule changes could not be written to storage. They remain active for this session.",
			Severity: SeverityError,
		})
	}
}

func (s *Store) notify(ctx context.Context, n Notice) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, n)
}
