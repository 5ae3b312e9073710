/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/sitewisehq/sitewise/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		// Accounts and directory
		&models.User{},
		&models.Job{},
		&models.Employee{},

		// Schedule document store
		&models.Document{},

		// Field operations
		&models.TimeEntry{},
		&models.Delivery{},
		&models.Incident{},

		// Messaging and history
		&models.Notification{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	if err := applyPostgresTimeEntryGuard(database); err != nil {
		return err
	}
	if err := normalizeLegacyRoles(database); err != nil {
		return err
	}

	return nil
}

// applyPostgresTimeEntryGuard installs a trigger rejecting punches whose
// clock-out is not after their clock-in. Other backends rely on the
// application-level check in the timeclock service.
func applyPostgresTimeEntryGuard(database *gorm.DB) error {
	if database.Dialector.Name() != "postgres" {
		return nil
	}

	stmt := `
CREATE OR REPLACE FUNCTION prevent_inverted_time_entry()
RETURNS trigger
LANGUAGE plpgsql
AS $$
BEGIN
  IF NEW.clock_out IS NOT NULL AND NEW.clock_out <= NEW.clock_in THEN
    RAISE EXCEPTION 'time entry clock-out must be after clock-in'
      USING ERRCODE = '23514';
  END IF;

  RETURN NEW;
END;
$$;

DROP TRIGGER IF EXISTS trg_prevent_inverted_time_entry ON time_entries;

CREATE TRIGGER trg_prevent_inverted_time_entry
BEFORE INSERT OR UPDATE OF clock_in, clock_out
ON time_entries
FOR EACH ROW
EXECUTE FUNCTION prevent_inverted_time_entry();
`
	if err := database.Exec(stmt).Error; err != nil {
		return fmt.Errorf("apply postgres time entry guard: %w", err)
	}

	return nil
}

// normalizeLegacyRoles maps role names from older installs onto the current
// role set.
func normalizeLegacyRoles(database *gorm.DB) error {
	if err := database.Exec("UPDATE users SET role = ? WHERE LOWER(TRIM(role)) IN ?", models.RoleForeman, []string{"supervisor", "lead", "foreman"}).Error; err != nil {
		return fmt.Errorf("normalize legacy foreman role: %w", err)
	}
	if err := database.Exec("UPDATE users SET role = ? WHERE LOWER(TRIM(role)) IN ?", models.RoleManager, []string{"office", "manager"}).Error; err != nil {
		return fmt.Errorf("normalize legacy manager role: %w", err)
	}
	return nil
}
