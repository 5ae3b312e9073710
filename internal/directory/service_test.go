package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Job{}, &models.Employee{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, events.NewBus(), zerolog.Nop())
}

func TestJobLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, JobInput{
		Name:         "Riverside Duplex",
		ClientName:   "Acme Builders",
		Latitude:     45.52,
		Longitude:    -122.68,
		FenceRadiusM: 150,
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected generated job id")
	}
	if job.Status != models.JobBidding {
		t.Fatalf("expected default status bidding, got %s", job.Status)
	}

	name, ok := svc.JobName(ctx, job.ID)
	if !ok || name != "Riverside Duplex" {
		t.Fatalf("JobName = %q, %v", name, ok)
	}

	status := models.JobActive
	updated, err := svc.UpdateJob(ctx, job.ID, JobUpdate{Status: &status})
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if updated.Status != models.JobActive {
		t.Fatalf("expected active status, got %s", updated.Status)
	}
	if updated.Name != "Riverside Duplex" {
		t.Fatalf("unset fields must be preserved, got name %q", updated.Name)
	}

	active, err := svc.ListJobs(ctx, models.JobActive)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active job, got %d", len(active))
	}

	if err := svc.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if err := svc.DeleteJob(ctx, job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, ok := svc.JobName(ctx, job.ID); ok {
		t.Fatalf("JobName should miss after delete")
	}
}

func TestEmployeeLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	emp, err := svc.CreateEmployee(ctx, EmployeeInput{
		Name:       "Dana Fields",
		Trade:      "electrician",
		HourlyRate: 52.50,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}

	name, ok := svc.EmployeeName(ctx, emp.ID)
	if !ok || name != "Dana Fields" {
		t.Fatalf("EmployeeName = %q, %v", name, ok)
	}

	inactive := false
	if _, err := svc.UpdateEmployee(ctx, emp.ID, EmployeeUpdate{Active: &inactive}); err != nil {
		t.Fatalf("UpdateEmployee: %v", err)
	}

	activeOnly, err := svc.ListEmployees(ctx, true)
	if err != nil {
		t.Fatalf("ListEmployees: %v", err)
	}
	if len(activeOnly) != 0 {
		t.Fatalf("expected no active employees, got %d", len(activeOnly))
	}

	all, err := svc.ListEmployees(ctx, false)
	if err != nil {
		t.Fatalf("ListEmployees all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 employee, got %d", len(all))
	}

	if _, err := svc.GetEmployee(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
