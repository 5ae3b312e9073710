package notifications

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/models"
	"github.com/sitewisehq/sitewise/internal/schedule"
)

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}, &models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	return NewService(db, bus, Config{}, zerolog.Nop()), bus
}

func TestNotifyStoresBroadcastNotice(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	echoed := bus.Subscribe(events.EventNotification)

	svc.Notify(ctx, schedule.Notice{
		Title:    "Schedule created",
		Body:     "Framing crew added to Riverside Duplex",
		Severity: schedule.SeverityInfo,
	})

	list, total, err := svc.ListForUser(ctx, "user-1", false, 10, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected 1 stored notice, got total=%d len=%d", total, len(list))
	}
	if list[0].UserID != "" {
		t.Fatalf("schedule notices must be broadcast, got user %q", list[0].UserID)
	}
	if list[0].Severity != models.NotificationInfo {
		t.Fatalf("severity = %s", list[0].Severity)
	}

	select {
	case payload := <-echoed:
		if payload["title"] != "Schedule created" {
			t.Fatalf("unexpected bus payload %v", payload)
		}
	default:
		t.Fatalf("expected notice echoed on bus")
	}
}

func TestErrorNoticeSeverityMapping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Notify(ctx, schedule.Notice{
		Title:    "Scheduling conflict",
		Body:     "emp-1 is double booked",
		Severity: schedule.SeverityError,
	})

	list, _, err := svc.ListForUser(ctx, "user-1", true, 10, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 1 || list[0].Severity != models.NotificationError {
		t.Fatalf("expected one error notice, got %+v", list)
	}
}

func TestHandleIncidentStoresNotification(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.handleIncident(ctx, events.Payload{
		"incident_id": "inc-1",
		"job_id":      "job-1",
		"severity":    "critical",
		"description": "scaffold collapse",
		"escalate":    true,
	})

	list, _, err := svc.ListForUser(ctx, "any", false, 10, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(list))
	}
	if list[0].Title != "Safety incident (critical)" {
		t.Fatalf("title = %q", list[0].Title)
	}
}

func TestMarkAsReadAndUnreadCount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Notify(ctx, schedule.Notice{Title: "a", Severity: schedule.SeverityInfo})
	svc.Notify(ctx, schedule.Notice{Title: "b", Severity: schedule.SeverityInfo})

	count, err := svc.UnreadCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}

	list, _, err := svc.ListForUser(ctx, "user-1", false, 10, 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if err := svc.MarkAsRead(ctx, list[0].ID); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	count, err = svc.UnreadCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unread after read, got %d", count)
	}

	if err := svc.MarkAsRead(ctx, "missing"); err == nil {
		t.Fatalf("expected error for unknown notification")
	}
}
