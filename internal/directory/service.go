/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package directory manages the job and employee rosters that the
// schedule engine and field services reference by ID.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sitewisehq/sitewise/internal/cache"
	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/models"
)

// ErrNotFound is returned when a job or employee does not exist.
var ErrNotFound = errors.New("not found")

// Service provides CRUD over jobs and employees.
type Service struct {
	db     *gorm.DB
	bus    events.PubSub
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewService creates a directory service.
func NewService(db *gorm.DB, bus events.PubSub, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "directory").Logger(),
	}
}

// JobInput carries the writable job fields.
type JobInput struct {
	Name          string
	ClientName    string
	Address       string
	Status        models.JobStatus
	Latitude      float64
	Longitude     float64
	FenceRadiusM  float64
	StartDate     *time.Time
	EndDate       *time.Time
	ContractValue float64
}

// CreateJob inserts a new job.
func (s *Service) CreateJob(ctx context.Context, in JobInput) (*models.Job, error) {
	if in.Status == "" {
		in.Status = models.JobBidding
	}

	job := &models.Job{
		ID:            uuid.NewString(),
		Name:          in.Name,
		ClientName:    in.ClientName,
		Address:       in.Address,
		Status:        in.Status,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		FenceRadiusM:  in.FenceRadiusM,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		ContractValue: in.ContractValue,
	}

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}

	s.logger.Info().Str("job_id", job.ID).Str("name", job.Name).Msg("job created")
	s.bus.Publish(events.EventAuditJobCreate, events.Payload{
		"resource_type": "job",
		"resource_id":   job.ID,
		"name":          job.Name,
	})

	return job, nil
}

// GetJob fetches a job by ID.
func (s *Service) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns jobs, optionally filtered by status.
func (s *Service) ListJobs(ctx context.Context, status models.JobStatus) ([]models.Job, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var jobs []models.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// JobUpdate carries optional job field changes. Nil fields are unchanged.
type JobUpdate struct {
	Name          *string
	ClientName    *string
	Address       *string
	Status        *models.JobStatus
	Latitude      *float64
	Longitude     *float64
	FenceRadiusM  *float64
	StartDate     *time.Time
	EndDate       *time.Time
	ContractValue *float64
}

// UpdateJob applies a partial update to a job.
func (s *Service) UpdateJob(ctx context.Context, id string, upd JobUpdate) (*models.Job, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		job.Name = *upd.Name
	}
	if upd.ClientName != nil {
		job.ClientName = *upd.ClientName
	}
	if upd.Address != nil {
		job.Address = *upd.Address
	}
	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Latitude != nil {
		job.Latitude = *upd.Latitude
	}
	if upd.Longitude != nil {
		job.Longitude = *upd.Longitude
	}
	if upd.FenceRadiusM != nil {
		job.FenceRadiusM = *upd.FenceRadiusM
	}
	if upd.StartDate != nil {
		job.StartDate = upd.StartDate
	}
	if upd.EndDate != nil {
		job.EndDate = upd.EndDate
	}
	if upd.ContractValue != nil {
		job.ContractValue = *upd.ContractValue
	}

	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return nil, err
	}

	s.bus.Publish(events.EventJobUpdated, events.Payload{"job_id": job.ID})
	return job, nil
}

// DeleteJob removes a job from the roster.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Job{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.bus.Publish(events.EventJobDeleted, events.Payload{"job_id": id})
	return nil
}

// EmployeeInput carries the writable employee fields.
type EmployeeInput struct {
	Name       string
	Trade      string
	Phone      string
	Email      string
	HourlyRate float64
	Active     bool
}

// CreateEmployee inserts a new employee.
func (s *Service) CreateEmployee(ctx context.Context, in EmployeeInput) (*models.Employee, error) {
	emp := &models.Employee{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Trade:      in.Trade,
		Phone:      in.Phone,
		Email:      in.Email,
		HourlyRate: in.HourlyRate,
		Active:     in.Active,
	}

	if err := s.db.WithContext(ctx).Create(emp).Error; err != nil {
		return nil, err
	}

	s.logger.Info().Str("employee_id", emp.ID).Str("name", emp.Name).Msg("employee created")
	s.bus.Publish(events.EventAuditEmployeeCreate, events.Payload{
		"resource_type": "employee",
		"resource_id":   emp.ID,
		"name":          emp.Name,
	})

	return emp, nil
}

// GetEmployee fetches an employee by ID.
func (s *Service) GetEmployee(ctx context.Context, id string) (*models.Employee, error) {
	var emp models.Employee
	err := s.db.WithContext(ctx).First(&emp, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns employees. When activeOnly is set, inactive crew
// members are omitted.
func (s *Service) ListEmployees(ctx context.Context, activeOnly bool) ([]models.Employee, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var emps []models.Employee
	if err := query.Find(&emps).Error; err != nil {
		return nil, err
	}
	return emps, nil
}

// EmployeeUpdate carries optional employee field changes.
type EmployeeUpdate struct {
	Name       *string
	Trade      *string
	Phone      *string
	Email      *string
	HourlyRate *float64
	Active     *bool
}

// UpdateEmployee applies a partial update to an employee.
func (s *Service) UpdateEmployee(ctx context.Context, id string, upd EmployeeUpdate) (*models.Employee, error) {
	emp, err := s.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		emp.Name = *upd.Name
	}
	if upd.Trade != nil {
		emp.Trade = *upd.Trade
	}
	if upd.Phone != nil {
		emp.Phone = *upd.Phone
	}
	if upd.Email != nil {
		emp.Email = *upd.Email
	}
	if upd.HourlyRate != nil {
		emp.HourlyRate = *upd.HourlyRate
	}
	if upd.Active != nil {
		emp.Active = *upd.Active
	}

	if err := s.db.WithContext(ctx).Save(emp).Error; err != nil {
		return nil, err
	}

	s.bus.Publish(events.EventEmployeeUpdated, events.Payload{"employee_id": emp.ID})
	return emp, nil
}

// DeleteEmployee removes an employee from the roster.
func (s *Service) DeleteEmployee(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Employee{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	s.bus.Publish(events.EventEmployeeDeleted, events.Payload{"employee_id": id})
	return nil
}

// SetCache wires the optional Redis cache into name lookups. Calendar
// projections resolve every referenced job and employee per request, so
// those reads are the ones worth keeping off the database.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// JobName resolves a job's display name for calendar projections.
func (s *Service) JobName(ctx context.Context, id string) (string, bool) {
	if s.cache != nil {
		if cached, ok := s.cache.GetJob(ctx, id); ok {
			return cached.Name, true
		}
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return "", false
	}
	if s.cache != nil {
		_ = s.cache.SetJob(ctx, &cache.CachedJob{
			ID:           job.ID,
			Name:         job.Name,
			Status:       string(job.Status),
			Latitude:     job.Latitude,
			Longitude:    job.Longitude,
			FenceRadiusM: job.FenceRadiusM,
		})
	}
	return job.Name, true
}

// EmployeeName resolves an employee's display name for calendar projections.
func (s *Service) EmployeeName(ctx context.Context, id string) (string, bool) {
	if s.cache != nil {
		if cached, ok := s.cache.GetEmployee(ctx, id); ok {
			return cached.Name, true
		}
	}

	emp, err := s.GetEmployee(ctx, id)
	if err != nil {
		return "", false
	}
	if s.cache != nil {
		_ = s.cache.SetEmployee(ctx, &cache.CachedEmployee{
			ID:         emp.ID,
			Name:       emp.Name,
			Trade:      emp.Trade,
			HourlyRate: emp.HourlyRate,
			Active:     emp.Active,
		})
	}
	return emp.Name, true
}
