/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package notifications stores in-app notices and optionally emails
// escalations to managers. It is the sink the schedule store reports
// its outcomes to.
package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/models"
	"github.com/sitewisehq/sitewise/internal/schedule"
)

// Config holds SMTP settings. An empty host disables email delivery.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
}

// ConfigFromEnv reads SMTP settings from the environment.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(getEnv("SITEWISE_SMTP_PORT", "587"))
	return Config{
		SMTPHost:     getEnv("SITEWISE_SMTP_HOST", ""),
		SMTPPort:     port,
		SMTPUsername: getEnv("SITEWISE_SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SITEWISE_SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SITEWISE_SMTP_FROM", "noreply@example.com"),
		SMTPFromName: getEnv("SITEWISE_SMTP_FROM_NAME", "Sitewise"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Service handles notification storage and delivery.
type Service struct {
	db     *gorm.DB
	bus    events.PubSub
	config Config
	logger zerolog.Logger
}

// NewService creates a notification service.
func NewService(db *gorm.DB, bus events.PubSub, config Config, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		bus:    bus,
		config: config,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// Notify implements the schedule store's sink. Notices are stored as
// broadcast notifications and echoed on the event bus for live dashboards.
// Failures are logged, never surfaced, so schedule operations cannot be
// blocked by a notification problem.
func (s *Service) Notify(ctx context.Context, n schedule.Notice) {
	severity := models.NotificationInfo
	if n.Severity == schedule.SeverityError {
		severity = models.NotificationError
	}

	if err := s.store(ctx, "", n.Title, n.Body, severity); err != nil {
		s.logger.Error().Err(err).Str("title", n.Title).Msg("failed to store notice")
	}
}

// Start subscribes to field events and turns them into stored
// notifications. It blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().Msg("notification service starting")

	incidentReported := s.bus.Subscribe(events.EventIncidentReported)
	entryFlagged := s.bus.Subscribe(events.EventEntryFlagged)
	deliveryReceived := s.bus.Subscribe(events.EventDeliveryReceived)

	defer func() {
		s.bus.Unsubscribe(events.EventIncidentReported, incidentReported)
		s.bus.Unsubscribe(events.EventEntryFlagged, entryFlagged)
		s.bus.Unsubscribe(events.EventDeliveryReceived, deliveryReceived)
	}()

	s.logger.Info().Msg("notification service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("notification service stopping")
			return

		case payload := <-incidentReported:
			s.handleIncident(ctx, payload)

		case payload := <-entryFlagged:
			s.handleFlaggedEntry(ctx, payload)

		case payload := <-deliveryReceived:
			s.handleDeliveryReceived(ctx, payload)
		}
	}
}

func (s *Service) handleIncident(ctx context.Context, payload events.Payload) {
	severity, _ := payload["severity"].(string)
	description, _ := payload["description"].(string)
	jobID, _ := payload["job_id"].(string)

	title := fmt.Sprintf("Safety incident (%s)", severity)
	body := description
	if body == "" {
		body = "An incident was reported at job " + jobID
	}

	if err := s.store(ctx, "", title, body, models.NotificationError); err != nil {
		s.logger.Error().Err(err).Msg("failed to store incident notification")
		return
	}

	if escalate, _ := payload["escalate"].(bool); escalate {
		s.emailManagers(ctx, title, body)
	}
}

func (s *Service) handleFlaggedEntry(ctx context.Context, payload events.Payload) {
	employeeID, _ := payload["employee_id"].(string)
	jobID, _ := payload["job_id"].(string)

	title := "Time entry outside geofence"
	body := fmt.Sprintf("Employee %s punched outside the fence for job %s.", employeeID, jobID)
	if err := s.store(ctx, "", title, body, models.NotificationError); err != nil {
		s.logger.Error().Err(err).Msg("failed to store flagged-entry notification")
	}
}

func (s *Service) handleDeliveryReceived(ctx context.Context, payload events.Payload) {
	material, _ := payload["material"].(string)
	jobID, _ := payload["job_id"].(string)

	title := "Delivery received"
	body := fmt.Sprintf("%s received at job %s.", material, jobID)
	if err := s.store(ctx, "", title, body, models.NotificationInfo); err != nil {
		s.logger.Error().Err(err).Msg("failed to store delivery notification")
	}
}

// store persists one notification row. An empty userID means broadcast.
func (s *Service) store(ctx context.Context, userID, title, body string, severity models.NotificationSeverity) error {
	notification := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Severity:  severity,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return err
	}

	s.bus.Publish(events.EventNotification, events.Payload{
		"notification_id": notification.ID,
		"user_id":         notification.UserID,
		"title":           notification.Title,
		"body":            notification.Body,
		"severity":        string(notification.Severity),
	})

	return nil
}

// emailManagers sends an escalation email to every admin and manager with
// an email address. A missing SMTP host silently disables delivery.
func (s *Service) emailManagers(ctx context.Context, subject, body string) {
	if s.config.SMTPHost == "" {
		return
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("role IN ? AND email != ''", []models.RoleName{models.RoleAdmin, models.RoleManager}).
		Find(&users).Error; err != nil {
		s.logger.Error().Err(err).Msg("failed to load escalation recipients")
		return
	}

	for _, user := range users {
		if err := s.sendEmail(user.Email, subject, body); err != nil {
			s.logger.Error().Err(err).Str("to", user.Email).Msg("escalation email failed")
		}
	}
}

func (s *Service) sendEmail(to, subject, body string) error {
	from := s.config.SMTPFrom
	if s.config.SMTPFromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.SMTPFromName, s.config.SMTPFrom)
	}

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	var auth smtp.Auth
	if s.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.config.SMTPFrom, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	s.logger.Info().Str("to", to).Str("subject", subject).Msg("escalation email sent")
	return nil
}

// ListForUser returns a user's notifications plus broadcast notices,
// newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? OR user_id = ''", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkAsRead marks one notification read.
func (s *Service) MarkAsRead(ctx context.Context, notificationID string) error {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Updates(map[string]any{"read": true, "read_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UnreadCount returns the number of unread notifications visible to the
// user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("(user_id = ? OR user_id = '') AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}
