/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage keeps photo attachments for deliveries and incidents.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitewisehq/sitewise/internal/config"
)

// Storage abstracts attachment blob operations.
type Storage interface {
	Store(ctx context.Context, jobID, objectID string, contentType string, file io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
	CheckAccess(ctx context.Context) error
}

// Service manages attachment storage behind the configured backend.
type Service struct {
	storage Storage
	logger  zerolog.Logger
}

// NewService creates an attachment service using filesystem or S3 storage
// based on config.
func NewService(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	var store Storage

	switch cfg.StorageBackend {
	case config.StorageS3:
		s3cfg := S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			UsePathStyle:    cfg.S3UsePathStyle,
		}
		if s3cfg.AccessKeyID == "" || s3cfg.SecretAccessKey == "" {
			logger.Warn().Msg("S3 credentials not configured, relying on ambient AWS credentials")
		}

		s3Store, err := NewS3Storage(context.Background(), s3cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize S3 storage: %w", err)
		}
		store = s3Store
	default:
		store = NewFilesystemStorage(cfg.StorageRoot, logger)
	}

	return &Service{storage: store, logger: logger}, nil
}

// Store saves an uploaded attachment and returns its storage key.
func (s *Service) Store(ctx context.Context, jobID, objectID, contentType string, file io.Reader) (string, error) {
	key, err := s.storage.Store(ctx, jobID, objectID, contentType, file)
	if err != nil {
		s.logger.Error().Err(err).
			Str("job_id", jobID).
			Str("object_id", objectID).
			Msg("attachment store failed")
		return "", fmt.Errorf("store attachment: %w", err)
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("object_id", objectID).
		Str("key", key).
		Msg("attachment stored")

	return key, nil
}

// Open returns a reader over a stored attachment.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open attachment: %w", err)
	}
	return rc, nil
}

// Delete removes an attachment from storage.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("attachment delete failed")
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// URL returns the accessible URL for a stored attachment.
func (s *Service) URL(key string) string {
	return s.storage.URL(key)
}

// CheckAccess verifies that the storage backend is reachable.
func (s *Service) CheckAccess() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.storage.CheckAccess(ctx)
}

// buildAttachmentKey constructs a hierarchical storage key. Fanning out by
// object ID prefix keeps any single directory from growing unbounded.
func buildAttachmentKey(jobID, objectID, extension string) string {
	if len(objectID) < 4 {
		return fmt.Sprintf("%s/%s%s", jobID, objectID, extension)
	}
	return fmt.Sprintf("%s/%s/%s/%s%s", jobID, objectID[0:2], objectID[2:4], objectID, extension)
}

// extensionForContentType maps the few accepted photo types onto file
// extensions.
func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
