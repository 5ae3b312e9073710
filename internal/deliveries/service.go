/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package deliveries tracks supplier deliveries expected and received at
// job sites.
package deliveries

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

// ErrNotFound is returned when a delivery does not exist.
var ErrNotFound = errors.New("delivery not found")

// Service manages delivery records.
type Service struct {
	db     *gorm.DB
	bus    events.PubSub
	logger zerolog.Logger

	now func() time.Time
}

// NewService creates a deliveries service.
func NewService(db *gorm.DB, bus events.PubSub, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "deliveries").Logger(),
		now:    time.Now,
	}
}

// Input carries the writable delivery fields.
type Input struct {
	JobID        string
	Supplier     string
	Material     string
	Quantity     float64
	Unit         string
	ExpectedDate *time.Time
	Notes        string
}

// Log records a new expected delivery.
func (s *Service) Log(ctx context.Context, in Input) (*models.Delivery, error) {
	delivery := &models.Delivery{
		ID:           uuid.NewString(),
		JobID:        in.JobID,
		Supplier:     in.Supplier,
		Material:     in.Material,
		Quantity:     in.Quantity,
		Unit:         in.Unit,
		Status:       models.DeliveryOrdered,
		ExpectedDate: in.ExpectedDate,
		Notes:        in.Notes,
	}

	if err := s.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("delivery_id", delivery.ID).
		Str("job_id", delivery.JobID).
		Str("material", delivery.Material).
		Msg("delivery logged")
	s.bus.Publish(events.EventDeliveryLogged, events.Payload{
		"delivery_id": delivery.ID,
		"job_id":      delivery.JobID,
		"supplier":    delivery.Supplier,
		"material":    delivery.Material,
	})

	return delivery, nil
}

// Get fetches a delivery by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.db.WithContext(ctx).First(&delivery, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// List returns deliveries, optionally filtered by job and status, expected
// soonest first.
func (s *Service) List(ctx context.Context, jobID string, status models.DeliveryStatus) ([]models.Delivery, error) {
	query := s.db.WithContext(ctx).Order("expected_date ASC, created_at ASC")
	if jobID != "" {
		query = query.Where("job_id = ?", jobID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var deliveries []models.Delivery
	if err := query.Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

// SetStatus moves a delivery through its lifecycle. Marking a delivery
// received stamps the receipt time.
func (s *Service) SetStatus(ctx context.Context, id string, status models.DeliveryStatus) (*models.Delivery, error) {
	delivery, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	delivery.Status = status
	if status == models.DeliveryReceived && delivery.ReceivedAt == nil {
		now := s.now().UTC()
		delivery.ReceivedAt = &now
	}

	if err := s.db.WithContext(ctx).Save(delivery).Error; err != nil {
		return nil, err
	}

	if status == models.DeliveryReceived {
		s.bus.Publish(events.EventDeliveryReceived, events.Payload{
			"delivery_id": delivery.ID,
			"job_id":      delivery.JobID,
			"material":    delivery.Material,
		})
	}

	return delivery, nil
}

// AttachPhoto records the storage key of a proof-of-delivery photo.
func (s *Service) AttachPhoto(ctx context.Context, id, photoKey string) (*models.Delivery, error) {
	delivery, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	delivery.PhotoKey = photoKey
	if err := s.db.WithContext(ctx).Save(delivery).Error; err != nil {
		return nil, err
	}
	return delivery, nil
}

// Delete removes a delivery record.
func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Delivery{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
