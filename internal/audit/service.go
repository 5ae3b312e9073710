/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package audit records mutating operations for later review.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/models"
)

// Service handles audit logging by subscribing to events and storing
// audit entries.
type Service struct {
	db     *gorm.DB
	bus    events.PubSub
	logger zerolog.Logger
}

// NewService creates an audit service.
func NewService(db *gorm.DB, bus events.PubSub, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Start subscribes to audited events and logs them. It blocks until ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("audit service starting")

	scheduleCreate := s.bus.Subscribe(events.EventAuditScheduleCreate)
	scheduleUpdate := s.bus.Subscribe(events.EventAuditScheduleUpdate)
	scheduleDelete := s.bus.Subscribe(events.EventAuditScheduleDelete)
	jobCreate := s.bus.Subscribe(events.EventAuditJobCreate)
	employeeCreate := s.bus.Subscribe(events.EventAuditEmployeeCreate)
	userLogin := s.bus.Subscribe(events.EventAuditUserLogin)
	incidentReported := s.bus.Subscribe(events.EventIncidentReported)

	defer func() {
		s.bus.Unsubscribe(events.EventAuditScheduleCreate, scheduleCreate)
		s.bus.Unsubscribe(events.EventAuditScheduleUpdate, scheduleUpdate)
		s.bus.Unsubscribe(events.EventAuditScheduleDelete, scheduleDelete)
		s.bus.Unsubscribe(events.EventAuditJobCreate, jobCreate)
		s.bus.Unsubscribe(events.EventAuditEmployeeCreate, employeeCreate)
		s.bus.Unsubscribe(events.EventAuditUserLogin, userLogin)
		s.bus.Unsubscribe(events.EventIncidentReported, incidentReported)
	}()

	s.logger.Info().Msg("audit service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("audit service stopping")
			return

		case payload := <-scheduleCreate:
			s.logEntry(ctx, "schedule.create", payload)

		case payload := <-scheduleUpdate:
			s.logEntry(ctx, "schedule.update", payload)

		case payload := <-scheduleDelete:
			s.logEntry(ctx, "schedule.delete", payload)

		case payload := <-jobCreate:
			s.logEntry(ctx, "job.create", payload)

		case payload := <-employeeCreate:
			s.logEntry(ctx, "employee.create", payload)

		case payload := <-userLogin:
			s.logEntry(ctx, "user.login", payload)

		case payload := <-incidentReported:
			s.logEntry(ctx, "incident.report", payload)
		}
	}
}

// logEntry creates an audit log entry from an event payload.
func (s *Service) logEntry(ctx context.Context, action string, payload events.Payload) {
	entry := &models.AuditLog{
		ID:     uuid.NewString(),
		Action: action,
	}

	if actor, ok := payload["actor"].(string); ok {
		entry.Actor = actor
	}
	if resourceType, ok := payload["resource_type"].(string); ok {
		entry.ResourceType = resourceType
	}
	if resourceID, ok := payload["resource_id"].(string); ok {
		entry.ResourceID = resourceID
	}

	detail := make(map[string]any)
	for k, v := range payload {
		switch k {
		case "actor", "resource_type", "resource_id":
		default:
			detail[k] = v
		}
	}
	if len(detail) > 0 {
		if raw, err := json.Marshal(detail); err == nil {
			entry.Detail = string(raw)
		}
	}

	if err := s.Log(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to log audit entry")
	}
}

// Log records an audit entry directly.
func (s *Service) Log(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	s.logger.Debug().
		Str("action", entry.Action).
		Str("id", entry.ID).
		Msg("audit entry logged")

	return nil
}

// QueryFilters narrows Query results. Nil fields are ignored.
type QueryFilters struct {
	Actor     *string
	Action    *string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// Query retrieves audit logs with filters, newest first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filters.Actor != nil {
		query = query.Where("actor = ?", *filters.Actor)
	}
	if filters.Action != nil {
		query = query.Where("action = ?", *filters.Action)
	}
	if filters.StartTime != nil {
		query = query.Where("created_at >= ?", *filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("created_at <= ?", *filters.EndTime)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	} else {
		query = query.Limit(100)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var logs []models.AuditLog
	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
