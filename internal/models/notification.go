/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// NotificationSeverity distinguishes routine notices from destructive or
// failed operations.
type NotificationSeverity string

const (
	NotificationInfo  NotificationSeverity = "info"
	NotificationError NotificationSeverity = "error"
)

// Notification is a stored in-app notice. UserID is empty for broadcast
// notices shown to every dashboard user.
type Notification struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;index"`
	Title     string
	Body      string               `gorm:"type:text"`
	Severity  NotificationSeverity `gorm:"type:varchar(8)"`
	Read      bool                 `gorm:"index"`
	ReadAt    *time.Time
	CreatedAt time.Time
}

// AuditLog records one mutating operation for later review.
type AuditLog struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Actor        string `gorm:"index"`
	Action       string `gorm:"type:varchar(64);index"`
	ResourceType string `gorm:"type:varchar(32)"`
	ResourceID   string
	Detail       string `gorm:"type:text"`
	CreatedAt    time.Time
}
