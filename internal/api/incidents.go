/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitewisehq/sitewise/internal/auth"
	"github.com/sitewisehq/sitewise/internal/incidents"
	"github.com/sitewisehq/sitewise/internal/models"
)

type incidentCreateRequest struct {
	JobID       string                  `json:"job_id"`
	Severity    models.IncidentSeverity `json:"severity"`
	Description string                  `json:"description"`
	OccurredAt  *time.Time              `json:"occurred_at"`
}

func (a *API) handleIncidentsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := a.incidents.List(r.Context(), q.Get("job_id"), models.IncidentSeverity(q.Get("severity")), q.Get("open") == "true")
	if err != nil {
		a.logger.Error().Err(err).Msg("incident list failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleIncidentsCreate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req incidentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.JobID == "" || req.Description == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	report := incidents.Report{
		JobID:       req.JobID,
		ReportedBy:  claims.UserID,
		Severity:    req.Severity,
		Description: req.Description,
	}
	if req.OccurredAt != nil {
		report.OccurredAt = *req.OccurredAt
	}

	incident, err := a.incidents.File(r.Context(), report)
	if err != nil {
		a.logger.Error().Err(err).Msg("incident file failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, incident)
}

func (a *API) handleIncidentsGet(w http.ResponseWriter, r *http.Request) {
	incident, err := a.incidents.Get(r.Context(), chi.URLParam(r, "incidentID"))
	if errors.Is(err, incidents.ErrNotFound) {
		writeError(w, http.StatusNotFound, "incident_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

func (a *API) handleIncidentsResolve(w http.ResponseWriter, r *http.Request) {
	incident, err := a.incidents.Resolve(r.Context(), chi.URLParam(r, "incidentID"))
	if errors.Is(err, incidents.ErrNotFound) {
		writeError(w, http.StatusNotFound, "incident_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "resolve_failed")
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

func (a *API) handleIncidentsPhotoUpload(w http.ResponseWriter, r *http.Request) {
	incident, err := a.incidents.Get(r.Context(), chi.URLParam(r, "incidentID"))
	if errors.Is(err, incidents.ErrNotFound) {
		writeError(w, http.StatusNotFound, "incident_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}

	key, ok := a.storePhoto(w, r, incident.JobID, incident.ID)
	if !ok {
		return
	}

	updated, err := a.incidents.AttachPhoto(r.Context(), incident.ID, key)
	if err != nil {
		a.logger.Error().Err(err).Msg("photo attach failed")
		writeError(w, http.StatusInternalServerError, "attach_failed")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleIncidentsPhotoGet(w http.ResponseWriter, r *http.Request) {
	incident, err := a.incidents.Get(r.Context(), chi.URLParam(r, "incidentID"))
	if errors.Is(err, incidents.ErrNotFound) {
		writeError(w, http.StatusNotFound, "incident_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	a.servePhoto(w, r, incident.PhotoKey)
}
