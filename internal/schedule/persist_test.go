/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sitewisehq/sitewise/internal/models"
)

func openPersistTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Document{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestDocumentPersisterRoundTrip(t *testing.T) {
	db := openPersistTestDB(t)
	persister := NewDocumentPersister(db, zerolog.Nop())
	ctx := context.Background()

	created := time.Date(2024, time.March, 1, 8, 30, 0, 0, time.UTC)
	schedules := []Schedule{
		{
			ID:                 "sched-a",
			JobID:              "job-1",
			EmployeeIDs:        []string{"emp-1", "emp-2"},
			Title:              "Framing",
			StartDate:          date(2024, time.March, 4),
			EndDate:            date(2024, time.March, 8),
			Status:             StatusScheduled,
			Notes:              "lumber delivery Monday",
			PredecessorID:      "sched-0",
			PredecessorLagDays: 2,
			CreatedAt:          created,
			UpdatedAt:          created,
		},
		{
			ID:          "sched-b",
			JobID:       "job-2",
			EmployeeIDs: []string{"emp-3"},
			Title:       "Inspection",
			StartDate:   date(2024, time.March, 11),
			EndDate:     date(2024, time.March, 11),
			Status:      StatusCompleted,
			CreatedAt:   created,
			UpdatedAt:   created.Add(time.Hour),
		},
	}

	if err := persister.Save(ctx, schedules); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := persister.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(schedules, loaded) {
		t.Errorf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", schedules, loaded)
	}
}

func TestDocumentPersisterOverwritesWholesale(t *testing.T) {
	db := openPersistTestDB(t)
	persister := NewDocumentPersister(db, zerolog.Nop())
	ctx := context.Background()

	first := []Schedule{{ID: "sched-a", Title: "First"}}
	second := []Schedule{{ID: "sched-b", Title: "Second"}}

	if err := persister.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := persister.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	loaded, err := persister.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "sched-b" {
		t.Errorf("expected only the second snapshot, got %+v", loaded)
	}

	var count int64
	if err := db.Model(&models.Document{}).Count(&count).Error; err != nil {
		t.Fatalf("count documents: %v", err)
	}
	if count != 1 {
		t.Errorf("documents table has %d rows, want 1", count)
	}
}

func TestDocumentPersisterAbsentDocument(t *testing.T) {
	db := openPersistTestDB(t)
	persister := NewDocumentPersister(db, zerolog.Nop())

	loaded, err := persister.Load(context.Background())
	if err != nil {
		t.Fatalf("load on empty table: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty list, got %d", len(loaded))
	}
}

func TestDocumentPersisterMalformedDocument(t *testing.T) {
	db := openPersistTestDB(t)
	if err := db.Create(&models.Document{Key: DocumentKey, Value: "{not json"}).Error; err != nil {
		t.Fatalf("seed malformed document: %v", err)
	}

	persister := NewDocumentPersister(db, zerolog.Nop())
	loaded, err := persister.Load(context.Background())
	if err != nil {
		t.Fatalf("malformed document must not error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("malformed document should fall back to empty list, got %d", len(loaded))
	}
}
