/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timeclock records crew clock punches, verifies them against job
// geofences and rolls closed entries up into payroll summaries.
package timeclock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/geofence"
	"github.com/sitewisehq/sitewise/internal/models"
	"github.com/sitewisehq/sitewise/internal/telemetry"
)

var (
	// ErrAlreadyClockedIn is returned when an employee has an open entry.
	ErrAlreadyClockedIn = errors.New("employee already clocked in")
	// ErrNotClockedIn is returned when no open entry exists to close.
	ErrNotClockedIn = errors.New("employee is not clocked in")
	// ErrJobNotFound is returned when the referenced job does not exist.
	ErrJobNotFound = errors.New("job not found")
)

// Service manages the time clock.
type Service struct {
	db                  *gorm.DB
	bus                 events.PubSub
	logger              zerolog.Logger
	overtimeWeeklyHours float64

	now func() time.Time
}

// NewService creates a timeclock service. overtimeWeeklyHours is the weekly
// threshold past which hours are paid at time and a half.
func NewService(db *gorm.DB, bus events.PubSub, overtimeWeeklyHours float64, logger zerolog.Logger) *Service {
	if overtimeWeeklyHours <= 0 {
		overtimeWeeklyHours = 40
	}
	return &Service{
		db:                  db,
		bus:                 bus,
		logger:              logger.With().Str("component", "timeclock").Logger(),
		overtimeWeeklyHours: overtimeWeeklyHours,
		now:                 time.Now,
	}
}

// Punch carries the optional device location sent with a clock action.
type Punch struct {
	Latitude  *float64
	Longitude *float64
	Note      string
}

// ClockIn opens a time entry for the employee at the given job. When the
// device reports a location outside the job's geofence the entry is kept
// but flagged for payroll review. A missing location on a fenced job is
// also flagged.
func (s *Service) ClockIn(ctx context.Context, employeeID, jobID string, punch Punch) (*models.TimeEntry, error) {
	var open int64
	if err := s.db.WithContext(ctx).Model(&models.TimeEntry{}).
		Where("employee_id = ? AND clock_out IS NULL", employeeID).
		Count(&open).Error; err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, ErrAlreadyClockedIn
	}

	var job models.Job
	err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	verified, flagged := s.verifyLocation(&job, punch.Latitude, punch.Longitude)

	entry := &models.TimeEntry{
		ID:            uuid.NewString(),
		EmployeeID:    employeeID,
		JobID:         jobID,
		ClockIn:       s.now().UTC(),
		ClockInLat:    punch.Latitude,
		ClockInLng:    punch.Longitude,
		FenceVerified: verified,
		Flagged:       flagged,
		Note:          punch.Note,
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("employee_id", employeeID).
		Str("job_id", jobID).
		Bool("fence_verified", verified).
		Msg("clock in")
	s.bus.Publish(events.EventClockIn, events.Payload{
		"entry_id":    entry.ID,
		"employee_id": employeeID,
		"job_id":      jobID,
	})
	if flagged {
		s.flagEntry(entry)
	}

	return entry, nil
}

// ClockOut closes the employee's open entry. Leaving the fence before
// clocking out flags the entry the same way an out-of-fence clock-in does.
func (s *Service) ClockOut(ctx context.Context, employeeID string, punch Punch) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND clock_out IS NULL", employeeID).
		Order("clock_in DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotClockedIn
	}
	if err != nil {
		return nil, err
	}

	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", entry.JobID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	entry.ClockOut = &now
	entry.ClockOutLat = punch.Latitude
	entry.ClockOutLng = punch.Longitude
	if punch.Note != "" {
		entry.Note = punch.Note
	}

	verified, flagged := s.verifyLocation(&job, punch.Latitude, punch.Longitude)
	entry.FenceVerified = entry.FenceVerified && verified
	wasFlagged := entry.Flagged
	if flagged {
		entry.Flagged = true
	}

	if err := s.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("employee_id", employeeID).
		Str("job_id", entry.JobID).
		Msg("clock out")
	s.bus.Publish(events.EventClockOut, events.Payload{
		"entry_id":    entry.ID,
		"employee_id": employeeID,
		"job_id":      entry.JobID,
	})
	if entry.Flagged && !wasFlagged {
		s.flagEntry(&entry)
	}

	return &entry, nil
}

// verifyLocation checks a reported location against the job fence. Jobs
// without a fence radius accept any location unverified-but-unflagged.
func (s *Service) verifyLocation(job *models.Job, lat, lng *float64) (verified, flagged bool) {
	if job == nil || job.FenceRadiusM <= 0 {
		return false, false
	}
	if lat == nil || lng == nil {
		return false, true
	}

	fence := geofence.Fence{
		Latitude:  job.Latitude,
		Longitude: job.Longitude,
		RadiusM:   job.FenceRadiusM,
	}
	if fence.Contains(*lat, *lng) {
		return true, false
	}
	return false, true
}

func (s *Service) flagEntry(entry *models.TimeEntry) {
	telemetry.TimeEntriesFlaggedTotal.Inc()
	s.logger.Warn().
		Str("entry_id", entry.ID).
		Str("employee_id", entry.EmployeeID).
		Str("job_id", entry.JobID).
		Msg("time entry outside geofence")
	s.bus.Publish(events.EventEntryFlagged, events.Payload{
		"entry_id":    entry.ID,
		"employee_id": entry.EmployeeID,
		"job_id":      entry.JobID,
	})
}

// EntryFilters narrows Entries results. Zero values are ignored.
type EntryFilters struct {
	EmployeeID  string
	JobID       string
	From        time.Time
	To          time.Time
	FlaggedOnly bool
}

// Entries lists time entries, newest first.
func (s *Service) Entries(ctx context.Context, filters EntryFilters) ([]models.TimeEntry, error) {
	query := s.db.WithContext(ctx).Model(&models.TimeEntry{}).Order("clock_in DESC")

	if filters.EmployeeID != "" {
		query = query.Where("employee_id = ?", filters.EmployeeID)
	}
	if filters.JobID != "" {
		query = query.Where("job_id = ?", filters.JobID)
	}
	if !filters.From.IsZero() {
		query = query.Where("clock_in >= ?", filters.From)
	}
	if !filters.To.IsZero() {
		query = query.Where("clock_in < ?", filters.To)
	}
	if filters.FlaggedOnly {
		query = query.Where("flagged = ?", true)
	}

	var entries []models.TimeEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
