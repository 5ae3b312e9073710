package incidents

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

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Incident{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	return NewService(db, bus, zerolog.Nop()), bus
}

func TestFileDefaultsAndEscalation(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	reported := bus.Subscribe(events.EventIncidentReported)

	incident, err := svc.File(ctx, Report{
		JobID:       "job-1",
		ReportedBy:  "user-1",
		Description: "nail gun misfire",
	})
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if incident.Severity != models.IncidentMinor {
		t.Fatalf("expected default minor severity, got %s", incident.Severity)
	}
	if incident.OccurredAt.IsZero() {
		t.Fatalf("expected occurred-at default")
	}

	select {
	case payload := <-reported:
		if escalate, _ := payload["escalate"].(bool); escalate {
			t.Fatalf("minor incident must not escalate")
		}
	default:
		t.Fatalf("expected incident event on bus")
	}

	if _, err := svc.File(ctx, Report{
		JobID:      "job-1",
		Severity:   models.IncidentCritical,
		OccurredAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("File critical: %v", err)
	}

	select {
	case payload := <-reported:
		if escalate, _ := payload["escalate"].(bool); !escalate {
			t.Fatalf("critical incident must escalate")
		}
	default:
		t.Fatalf("expected critical incident event on bus")
	}
}

func TestListAndResolve(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.File(ctx, Report{JobID: "job-1", Severity: models.IncidentSerious, Description: "scaffold collapse"})
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if _, err := svc.File(ctx, Report{JobID: "job-2", Severity: models.IncidentMinor, Description: "cut finger"}); err != nil {
		t.Fatalf("File: %v", err)
	}

	open, err := svc.List(ctx, "", "", true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open incidents, got %d", len(open))
	}

	if _, err := svc.Resolve(ctx, first.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	open, err = svc.List(ctx, "", "", true)
	if err != nil {
		t.Fatalf("List after resolve: %v", err)
	}
	if len(open) != 1 || open[0].JobID != "job-2" {
		t.Fatalf("unexpected open incidents: %+v", open)
	}

	serious, err := svc.List(ctx, "job-1", models.IncidentSerious, false)
	if err != nil {
		t.Fatalf("List serious: %v", err)
	}
	if len(serious) != 1 {
		t.Fatalf("expected 1 serious incident for job-1, got %d", len(serious))
	}

	if _, err := svc.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
