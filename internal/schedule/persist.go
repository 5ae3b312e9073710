/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sitewisehq/sitewise/internal/models"
)

// DocumentKey is the fixed key the schedule list is stored under.
const DocumentKey = "sitewise.schedules.v1"

// DocumentPersister stores the whole schedule list as one JSON document
// in the documents table, overwritten wholesale on every save. The system
// of record is a key/value row, matching the store's load-once,
// write-through model.
type DocumentPersister struct {
	db     *gorm.DB
	key    string
	logger zerolog.Logger
}

// NewDocumentPersister creates a persister bound to the default key.
func NewDocumentPersister(db *gorm.DB, logger zerolog.Logger) *DocumentPersister {
	return &DocumentPersister{
		db:     db,
		key:    DocumentKey,
		logger: logger.With().Str("component", "schedule_persister").Logger(),
	}
}

// Load reads and decodes the schedule document. A missing row or a
// payload that fails to decode yields an empty list, never an error the
// store would have to treat as fatal.
func (p *DocumentPersister) Load(ctx context.Context) ([]Schedule, error) {
	var doc models.Document
	err := p.db.WithContext(ctx).First(&doc, "key = ?", p.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schedule document: %w", err)
	}

	var schedules []Schedule
	if err := json.Unmarshal([]byte(doc.Value), &schedules); err != nil {
		p.logger.Warn().Err(err).Str("key", p.key).Msg("schedule document is malformed, falling back to empty list")
		return nil, nil
	}
	return schedules, nil
}

// Save serializes the full list and upserts it under the fixed key.
func (p *DocumentPersister) Save(ctx context.Context, schedules []Schedule) error {
	payload, err := json.Marshal(schedules)
	if err != nil {
		return fmt.Errorf("encode schedule document: %w", err)
	}

	doc := models.Document{Key: p.key, Value: string(payload)}
	if err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&doc).Error; err != nil {
		return fmt.Errorf("save schedule document: %w", err)
	}
	return nil
}
