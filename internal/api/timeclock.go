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

	"github.com/sitewisehq/sitewise/internal/timeclock"
)

type punchRequest struct {
	EmployeeID string   `json:"employee_id"`
	JobID      string   `json:"job_id"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Note       string   `json:"note"`
}

func (a *API) handleClockIn(w http.ResponseWriter, r *http.Request) {
	var req punchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.EmployeeID == "" || req.JobID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	entry, err := a.timeclock.ClockIn(r.Context(), req.EmployeeID, req.JobID, timeclock.Punch{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Note:      req.Note,
	})
	switch {
	case errors.Is(err, timeclock.ErrAlreadyClockedIn):
		writeError(w, http.StatusConflict, "already_clocked_in")
		return
	case errors.Is(err, timeclock.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	case err != nil:
		a.logger.Error().Err(err).Msg("clock in failed")
		writeError(w, http.StatusInternalServerError, "clock_in_failed")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleClockOut(w http.ResponseWriter, r *http.Request) {
	var req punchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	entry, err := a.timeclock.ClockOut(r.Context(), req.EmployeeID, timeclock.Punch{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Note:      req.Note,
	})
	switch {
	case errors.Is(err, timeclock.ErrNotClockedIn):
		writeError(w, http.StatusConflict, "not_clocked_in")
		return
	case err != nil:
		a.logger.Error().Err(err).Msg("clock out failed")
		writeError(w, http.StatusInternalServerError, "clock_out_failed")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handleEntriesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := timeclock.EntryFilters{
		EmployeeID:  q.Get("employee_id"),
		JobID:       q.Get("job_id"),
		FlaggedOnly: q.Get("flagged") == "true",
	}

	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from")
			return
		}
		filters.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to")
			return
		}
		filters.To = t
	}

	entries, err := a.timeclock.Entries(r.Context(), filters)
	if err != nil {
		a.logger.Error().Err(err).Msg("entry list failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handlePayroll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_from")
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_to")
		return
	}
	if !to.After(from) {
		writeError(w, http.StatusBadRequest, "end_before_start")
		return
	}

	lines, err := a.timeclock.PayrollSummary(r.Context(), from, to)
	if err != nil {
		a.logger.Error().Err(err).Msg("payroll summary failed")
		writeError(w, http.StatusInternalServerError, "payroll_failed")
		return
	}
	writeJSON(w, http.StatusOK, lines)
}
