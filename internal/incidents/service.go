/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package incidents handles safety incident reports filed from job sites.
package incidents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/models"
)

// ErrNotFound is returned when an incident does not exist.
var ErrNotFound = errors.New("incident not found")

// Service manages incident reports.
type Service struct {
	db     *gorm.DB
	bus    events.PubSub
	logger zerolog.Logger
}

// NewService creates an incidents service.
func NewService(db *gorm.DB, bus events.PubSub, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "incidents").Logger(),
	}
}

// Report carries a new incident.
type Report struct {
	JobID       string
	ReportedBy  string
	Severity    models.IncidentSeverity
	Description string
	OccurredAt  time.Time
}

// File records a new incident and fans it out on the event bus. Serious and
// critical incidents carry an escalation flag so the notification service
// can alert managers immediately.
func (s *Service) File(ctx context.Context, report Report) (*models.Incident, error) {
	if report.Severity == "" {
		report.Severity = models.IncidentMinor
	}
	if report.OccurredAt.IsZero() {
		report.OccurredAt = time.Now().UTC()
	}

	incident := &models.Incident{
		ID:          uuid.NewString(),
		JobID:       report.JobID,
		ReportedBy:  report.ReportedBy,
		Severity:    report.Severity,
		Description: report.Description,
		OccurredAt:  report.OccurredAt,
	}

	if err := s.db.WithContext(ctx).Create(incident).Error; err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("incident_id", incident.ID).
		Str("job_id", incident.JobID).
		Str("severity", string(incident.Severity)).
		Msg("incident filed")
	s.bus.Publish(events.EventIncidentReported, events.Payload{
		"incident_id": incident.ID,
		"job_id":      incident.JobID,
		"severity":    string(incident.Severity),
		"description": incident.Description,
		"escalate":    incident.Severity != models.IncidentMinor,
	})

	return incident, nil
}

// Get fetches an incident by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Incident, error) {
	var incident models.Incident
	err := s.db.WithContext(ctx).First(&incident, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

// List returns incidents, newest first. Filters with zero values are
// ignored.
func (s *Service) List(ctx context.Context, jobID string, severity models.IncidentSeverity, openOnly bool) ([]models.Incident, error) {
	query := s.db.WithContext(ctx).Order("occurred_at DESC")
	if jobID != "" {
		query = query.Where("job_id = ?", jobID)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if openOnly {
		query = query.Where("resolved = ?", false)
	}

	var incidents []models.Incident
	if err := query.Find(&incidents).Error; err != nil {
		return nil, err
	}
	return incidents, nil
}

// Resolve marks an incident handled.
func (s *Service) Resolve(ctx context.Context, id string) (*models.Incident, error) {
	incident, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	incident.Resolved = true
	if err := s.db.WithContext(ctx).Save(incident).Error; err != nil {
		return nil, err
	}

	s.bus.Publish(events.EventIncidentResolved, events.Payload{
		"incident_id": incident.ID,
		"job_id":      incident.JobID,
	})

	return incident, nil
}

// AttachPhoto records the storage key of an incident photo.
func (s *Service) AttachPhoto(ctx context.Context, id, photoKey string) (*models.Incident, error) {
	incident, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	incident.PhotoKey = photoKey
	if err := s.db.WithContext(ctx).Save(incident).Error; err != nil {
		return nil, err
	}
	return incident, nil
}
