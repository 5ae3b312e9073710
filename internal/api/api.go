/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	ws "nhooyr.io/websocket"

	"github.com/sitewisehq/sitewise/internal/audit"
	"github.com/sitewisehq/sitewise/internal/auth"
	"github.com/sitewisehq/sitewise/internal/deliveries"
	"github.com/sitewisehq/sitewise/internal/directory"
	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/incidents"
	"github.com/sitewisehq/sitewise/internal/models"
	"github.com/sitewisehq/sitewise/internal/notifications"
	"github.com/sitewisehq/sitewise/internal/schedule"
	"github.com/sitewisehq/sitewise/internal/storage"
	"github.com/sitewisehq/sitewise/internal/telemetry"
	"github.com/sitewisehq/sitewise/internal/timeclock"
)

// API exposes HTTP handlers.
type API struct {
	db            *gorm.DB
	jwtSecret     []byte
	schedules     *schedule.Store
	directory     *directory.Service
	timeclock     *timeclock.Service
	deliveries    *deliveries.Service
	incidents     *incidents.Service
	notifications *notifications.Service
	auditSvc      *audit.Service
	storage       *storage.Service
	bus           events.PubSub
	logger        zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, schedules *schedule.Store, dir *directory.Service, clock *timeclock.Service, deliverySvc *deliveries.Service, incidentSvc *incidents.Service, notifSvc *notifications.Service, auditSvc *audit.Service, storageSvc *storage.Service, bus events.PubSub, logger zerolog.Logger) *API {
	return &API{
		db:            db,
		jwtSecret:     jwtSecret,
		schedules:     schedules,
		directory:     dir,
		timeclock:     clock,
		deliveries:    deliverySvc,
		incidents:     incidentSvc,
		notifications: notifSvc,
		auditSvc:      auditSvc,
		storage:       storageSvc,
		bus:           bus,
		logger:        logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware())

			pr.Get("/auth/me", a.handleMe)
			pr.With(a.requireRoles(models.RoleAdmin)).Post("/users", a.handleUsersCreate)

			pr.Route("/schedules", func(r chi.Router) {
				r.Get("/", a.handleSchedulesList)
				r.Get("/calendar", a.handleSchedulesCalendar)
				r.Get("/export/ical", a.handleSchedulesExportICal)
				r.Get("/export/crew-sheet", a.handleSchedulesExportCrewSheet)
				r.Post("/check", a.handleSchedulesCheck)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager, models.RoleForeman)).Post("/", a.handleSchedulesCreate)
				r.Route("/{scheduleID}", func(r chi.Router) {
					r.Get("/", a.handleSchedulesGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager, models.RoleForeman)).Patch("/", a.handleSchedulesUpdate)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Delete("/", a.handleSchedulesDelete)
				})
			})

			pr.Route("/jobs", func(r chi.Router) {
				r.Get("/", a.handleJobsList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleJobsCreate)
				r.Route("/{jobID}", func(r chi.Router) {
					r.Get("/", a.handleJobsGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Patch("/", a.handleJobsUpdate)
					r.With(a.requireRoles(models.RoleAdmin)).Delete("/", a.handleJobsDelete)
				})
			})

			pr.Route("/employees", func(r chi.Router) {
				r.Get("/", a.handleEmployeesList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/", a.handleEmployeesCreate)
				r.Route("/{employeeID}", func(r chi.Router) {
					r.Get("/", a.handleEmployeesGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Patch("/", a.handleEmployeesUpdate)
					r.With(a.requireRoles(models.RoleAdmin)).Delete("/", a.handleEmployeesDelete)
				})
			})

			pr.Route("/timeclock", func(r chi.Router) {
				r.Post("/clock-in", a.handleClockIn)
				r.Post("/clock-out", a.handleClockOut)
				r.Get("/entries", a.handleEntriesList)
				r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Get("/payroll", a.handlePayroll)
			})

			pr.Route("/deliveries", func(r chi.Router) {
				r.Get("/", a.handleDeliveriesList)
				r.Post("/", a.handleDeliveriesCreate)
				r.Route("/{deliveryID}", func(r chi.Router) {
					r.Get("/", a.handleDeliveriesGet)
					r.Patch("/status", a.handleDeliveriesSetStatus)
					r.Post("/photo", a.handleDeliveriesPhotoUpload)
					r.Get("/photo", a.handleDeliveriesPhotoGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Delete("/", a.handleDeliveriesDelete)
				})
			})

			pr.Route("/incidents", func(r chi.Router) {
				r.Get("/", a.handleIncidentsList)
				r.Post("/", a.handleIncidentsCreate)
				r.Route("/{incidentID}", func(r chi.Router) {
					r.Get("/", a.handleIncidentsGet)
					r.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Post("/resolve", a.handleIncidentsResolve)
					r.Post("/photo", a.handleIncidentsPhotoUpload)
					r.Get("/photo", a.handleIncidentsPhotoGet)
				})
			})

			pr.Route("/notifications", func(r chi.Router) {
				r.Get("/", a.handleNotificationsList)
				r.Get("/unread-count", a.handleNotificationsUnreadCount)
				r.Post("/{notificationID}/read", a.handleNotificationsMarkRead)
			})

			pr.With(a.requireRoles(models.RoleAdmin, models.RoleManager)).Get("/audit", a.handleAuditQuery)

			pr.Get("/events", a.handleEvents)
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvents streams bus events over a websocket. Clients narrow the
// feed with ?types=schedule.created,timeclock.flagged.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = []events.EventType{
			events.EventScheduleCreated,
			events.EventScheduleUpdated,
			events.EventScheduleDeleted,
			events.EventEntryFlagged,
			events.EventIncidentReported,
			events.EventNotification,
		}
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Error().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						a.logger.Error().Err(err).Msg("websocket write failed")
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	bytes, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, bytes)
}

func (a *API) authMiddleware() func(http.Handler) http.Handler {
	return auth.Middleware(a.jwtSecret)
}

func (a *API) requireRoles(allowed ...models.RoleName) func(http.Handler) http.Handler {
	roles := make([]string, 0, len(allowed))
	for _, role := range allowed {
		roles = append(roles, string(role))
	}
	return auth.RequireRole(roles...)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, events.EventType(strings.TrimSpace(part)))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// auditContext extracts user and request info for audit logging.
func (a *API) auditContext(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok && claims != nil {
		payload["actor"] = claims.UserID

		var user models.User
		if err := a.db.Select("email").First(&user, "id = ?", claims.UserID).Error; err == nil {
			payload["user_email"] = user.Email
		}
	}

	return payload
}

// publishAuditEvent publishes an audit event with user and request context.
func (a *API) publishAuditEvent(r *http.Request, eventType events.EventType, data events.Payload) {
	payload := a.auditContext(r)
	for k, v := range data {
		payload[k] = v
	}
	a.bus.Publish(eventType, payload)
}
