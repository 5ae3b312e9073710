/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitewisehq/sitewise/internal/events"
	"github.com/sitewisehq/sitewise/internal/schedule"
	"github.com/sitewisehq/sitewise/internal/telemetry"
)

type conflictResponse struct {
	Error     string              `json:"error"`
	Conflicts []schedule.Conflict `json:"conflicts"`
}

// handleSchedulesList returns schedules filtered by job, employee, day or
// date range. Filters combine by narrowing; an unfiltered request returns
// the full list.
func (a *API) handleSchedulesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if day := q.Get("day"); day != "" {
		d, err := schedule.ParseDate(day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day")
			return
		}
		writeJSON(w, http.StatusOK, a.schedules.ForDay(d))
		return
	}

	list := a.schedules.All()
	if jobID := q.Get("job_id"); jobID != "" {
		list = a.schedules.ByJob(jobID)
	} else if employeeID := q.Get("employee_id"); employeeID != "" {
		list = a.schedules.ByEmployee(employeeID)
	}

	if from, to := q.Get("from"), q.Get("to"); from != "" && to != "" {
		start, err := schedule.ParseDate(from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from")
			return
		}
		end, err := schedule.ParseDate(to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to")
			return
		}
		filtered := make([]schedule.Schedule, 0, len(list))
		inRange := make(map[string]struct{})
		for _, s := range a.schedules.InRange(start, end) {
			inRange[s.ID] = struct{}{}
		}
		for _, s := range list {
			if _, ok := inRange[s.ID]; ok {
				filtered = append(filtered, s)
			}
		}
		list = filtered
	}

	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleSchedulesCreate(w http.ResponseWriter, r *http.Request) {
	var in schedule.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if in.JobID == "" || in.StartDate.IsZero() || in.EndDate.IsZero() {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if in.EndDate.Before(in.StartDate) {
		writeError(w, http.StatusBadRequest, "end_before_start")
		return
	}

	sched, conflicts := a.schedules.Create(r.Context(), in)
	if len(conflicts) > 0 {
		telemetry.ScheduleConflictsTotal.Inc()
		writeJSON(w, http.StatusConflict, conflictResponse{Error: "schedule_conflict", Conflicts: conflicts})
		return
	}

	a.bus.Publish(events.EventScheduleCreated, schedulePayload(sched))
	a.publishAuditEvent(r, events.EventAuditScheduleCreate, events.Payload{
		"resource_type": "schedule",
		"resource_id":   sched.ID,
		"title":         sched.Title,
	})
	writeJSON(w, http.StatusCreated, sched)
}

func (a *API) handleSchedulesGet(w http.ResponseWriter, r *http.Request) {
	sched, ok := a.schedules.Get(chi.URLParam(r, "scheduleID"))
	if !ok {
		writeError(w, http.StatusNotFound, "schedule_not_found")
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (a *API) handleSchedulesUpdate(w http.ResponseWriter, r *http.Request) {
	var upd schedule.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	sched, conflicts, err := a.schedules.Update(r.Context(), chi.URLParam(r, "scheduleID"), upd)
	if errors.Is(err, schedule.ErrNotFound) {
		writeError(w, http.StatusNotFound, "schedule_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_update")
		return
	}
	if len(conflicts) > 0 {
		telemetry.ScheduleConflictsTotal.Inc()
		writeJSON(w, http.StatusConflict, conflictResponse{Error: "schedule_conflict", Conflicts: conflicts})
		return
	}

	a.bus.Publish(events.EventScheduleUpdated, schedulePayload(sched))
	a.publishAuditEvent(r, events.EventAuditScheduleUpdate, events.Payload{
		"resource_type": "schedule",
		"resource_id":   sched.ID,
	})
	writeJSON(w, http.StatusOK, sched)
}

func (a *API) handleSchedulesDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scheduleID")
	if _, ok := a.schedules.Get(id); !ok {
		writeError(w, http.StatusNotFound, "schedule_not_found")
		return
	}

	a.schedules.Delete(r.Context(), id)
	a.bus.Publish(events.EventScheduleDeleted, events.Payload{"schedule_id": id})
	a.publishAuditEvent(r, events.EventAuditScheduleDelete, events.Payload{
		"resource_type": "schedule",
		"resource_id":   id,
	})
	w.WriteHeader(http.StatusNoContent)
}

type scheduleCheckRequest struct {
	EmployeeIDs []string      `json:"employee_ids"`
	StartDate   schedule.Date `json:"start_date"`
	EndDate     schedule.Date `json:"end_date"`
	ExcludeID   string        `json:"exclude_id"`
}

// handleSchedulesCheck runs a dry conflict check without mutating anything,
// for availability probes while a dispatcher drafts an assignment.
func (a *API) handleSchedulesCheck(w http.ResponseWriter, r *http.Request) {
	var req scheduleCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	conflicts := a.schedules.CheckConflicts(req.EmployeeIDs, req.StartDate, req.EndDate, req.ExcludeID)
	writeJSON(w, http.StatusOK, map[string]any{
		"available": len(conflicts) == 0,
		"conflicts": conflicts,
	})
}

func (a *API) handleSchedulesCalendar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.schedules.CalendarEvents(r.Context(), a.directory, a.directory))
}

func (a *API) handleSchedulesExportICal(w http.ResponseWriter, r *http.Request) {
	start, end, ok := exportRange(w, r)
	if !ok {
		return
	}

	result, err := a.schedules.ExportICal(r.Context(), a.directory, start, end)
	if err != nil {
		a.logger.Error().Err(err).Msg("ical export failed")
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}
	writeExport(w, result)
}

func (a *API) handleSchedulesExportCrewSheet(w http.ResponseWriter, r *http.Request) {
	start, end, ok := exportRange(w, r)
	if !ok {
		return
	}

	result, err := a.schedules.ExportCrewSheet(r.Context(), a.directory, a.directory, start, end)
	if err != nil {
		a.logger.Error().Err(err).Msg("crew sheet export failed")
		writeError(w, http.StatusInternalServerError, "export_failed")
		return
	}
	writeExport(w, result)
}

func exportRange(w http.ResponseWriter, r *http.Request) (schedule.Date, schedule.Date, bool) {
	start, err := schedule.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_from")
		return schedule.Date{}, schedule.Date{}, false
	}
	end, err := schedule.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_to")
		return schedule.Date{}, schedule.Date{}, false
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_before_start")
		return schedule.Date{}, schedule.Date{}, false
	}
	return start, end, true
}

func writeExport(w http.ResponseWriter, result *schedule.ExportResult) {
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func schedulePayload(sched schedule.Schedule) events.Payload {
	return events.Payload{
		"schedule_id":  sched.ID,
		"job_id":       sched.JobID,
		"employee_ids": sched.EmployeeIDs,
		"title":        sched.Title,
		"start_date":   sched.StartDate.String(),
		"end_date":     sched.EndDate.String(),
		"status":       string(sched.Status),
	}
}
