package timeclock

import (
	"context"
	"errors"
	"testing"
	"time"

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
	if err := db.AutoMigrate(&models.Job{}, &models.Employee{}, &models.TimeEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db, events.NewBus(), 40, zerolog.Nop())
}

func seedJob(t *testing.T, svc *Service, fenceRadius float64) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:           "job-1",
		Name:         "Riverside Duplex",
		Status:       models.JobActive,
		Latitude:     45.5200,
		Longitude:    -122.6800,
		FenceRadiusM: fenceRadius,
	}
	if err := svc.db.Create(job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func ptr(v float64) *float64 { return &v }

func TestClockInInsideFence(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 200)

	entry, err := svc.ClockIn(context.Background(), "emp-1", "job-1", Punch{
		Latitude:  ptr(45.5201),
		Longitude: ptr(-122.6801),
	})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if !entry.FenceVerified {
		t.Fatalf("expected entry inside fence to be verified")
	}
	if entry.Flagged {
		t.Fatalf("entry inside fence must not be flagged")
	}
}

func TestClockInOutsideFenceIsKeptButFlagged(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 100)

	// Roughly 8 km away.
	entry, err := svc.ClockIn(context.Background(), "emp-1", "job-1", Punch{
		Latitude:  ptr(45.59),
		Longitude: ptr(-122.68),
	})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if entry.FenceVerified {
		t.Fatalf("entry outside fence must not be verified")
	}
	if !entry.Flagged {
		t.Fatalf("entry outside fence must be flagged")
	}
}

func TestClockInMissingLocationOnFencedJobFlags(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 100)

	entry, err := svc.ClockIn(context.Background(), "emp-1", "job-1", Punch{})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if !entry.Flagged {
		t.Fatalf("missing location on fenced job must flag the entry")
	}
}

func TestClockInUnfencedJobNeverFlags(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 0)

	entry, err := svc.ClockIn(context.Background(), "emp-1", "job-1", Punch{})
	if err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if entry.Flagged {
		t.Fatalf("unfenced job must not flag entries")
	}
}

func TestDoubleClockInRejected(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 0)
	ctx := context.Background()

	if _, err := svc.ClockIn(ctx, "emp-1", "job-1", Punch{}); err != nil {
		t.Fatalf("first ClockIn: %v", err)
	}
	if _, err := svc.ClockIn(ctx, "emp-1", "job-1", Punch{}); !errors.Is(err, ErrAlreadyClockedIn) {
		t.Fatalf("expected ErrAlreadyClockedIn, got %v", err)
	}
}

func TestClockOutClosesEntry(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 200)
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	if _, err := svc.ClockIn(ctx, "emp-1", "job-1", Punch{
		Latitude:  ptr(45.5201),
		Longitude: ptr(-122.6801),
	}); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	svc.now = func() time.Time { return start.Add(8 * time.Hour) }
	entry, err := svc.ClockOut(ctx, "emp-1", Punch{
		Latitude:  ptr(45.5202),
		Longitude: ptr(-122.6802),
	})
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if entry.ClockOut == nil {
		t.Fatalf("expected clock-out timestamp")
	}
	if got := entry.ClockOut.Sub(entry.ClockIn); got != 8*time.Hour {
		t.Fatalf("expected 8h span, got %v", got)
	}
	if !entry.FenceVerified || entry.Flagged {
		t.Fatalf("in-fence round trip should stay verified and unflagged")
	}

	if _, err := svc.ClockOut(ctx, "emp-1", Punch{}); !errors.Is(err, ErrNotClockedIn) {
		t.Fatalf("expected ErrNotClockedIn after close, got %v", err)
	}
}

func TestClockOutOutsideFenceFlags(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 200)
	ctx := context.Background()

	if _, err := svc.ClockIn(ctx, "emp-1", "job-1", Punch{
		Latitude:  ptr(45.5201),
		Longitude: ptr(-122.6801),
	}); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	entry, err := svc.ClockOut(ctx, "emp-1", Punch{
		Latitude:  ptr(45.59),
		Longitude: ptr(-122.68),
	})
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if !entry.Flagged {
		t.Fatalf("out-of-fence clock-out must flag the entry")
	}
	if entry.FenceVerified {
		t.Fatalf("out-of-fence clock-out must clear verification")
	}
}

func TestEntriesFilters(t *testing.T) {
	svc := newTestService(t)
	seedJob(t, svc, 0)
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	for i, employeeID := range []string{"emp-1", "emp-2"} {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		if _, err := svc.ClockIn(ctx, employeeID, "job-1", Punch{}); err != nil {
			t.Fatalf("ClockIn %s: %v", employeeID, err)
		}
	}

	byEmployee, err := svc.Entries(ctx, EntryFilters{EmployeeID: "emp-1"})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(byEmployee) != 1 || byEmployee[0].EmployeeID != "emp-1" {
		t.Fatalf("employee filter returned %+v", byEmployee)
	}

	windowed, err := svc.Entries(ctx, EntryFilters{
		From: base.Add(30 * time.Minute),
		To:   base.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Entries window: %v", err)
	}
	if len(windowed) != 1 || windowed[0].EmployeeID != "emp-2" {
		t.Fatalf("window filter returned %+v", windowed)
	}
}
