/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitewisehq/sitewise/internal/directory"
)

type employeeCreateRequest struct {
	Name       string  `json:"name"`
	Trade      string  `json:"trade"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
	HourlyRate float64 `json:"hourly_rate"`
	Active     *bool   `json:"active"`
}

type employeeUpdateRequest struct {
	Name       *string  `json:"name"`
	Trade      *string  `json:"trade"`
	Phone      *string  `json:"phone"`
	Email      *string  `json:"email"`
	HourlyRate *float64 `json:"hourly_rate"`
	Active     *bool    `json:"active"`
}

func (a *API) handleEmployeesList(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	emps, err := a.directory.ListEmployees(r.Context(), activeOnly)
	if err != nil {
		a.logger.Error().Err(err).Msg("employee list failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, emps)
}

func (a *API) handleEmployeesCreate(w http.ResponseWriter, r *http.Request) {
	var req employeeCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}

	// New crew members are active unless the request says otherwise.
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	emp, err := a.directory.CreateEmployee(r.Context(), directory.EmployeeInput{
		Name:       req.Name,
		Trade:      req.Trade,
		Phone:      req.Phone,
		Email:      req.Email,
		HourlyRate: req.HourlyRate,
		Active:     active,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("employee create failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (a *API) handleEmployeesGet(w http.ResponseWriter, r *http.Request) {
	emp, err := a.directory.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if errors.Is(err, directory.ErrNotFound) {
		writeError(w, http.StatusNotFound, "employee_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) handleEmployeesUpdate(w http.ResponseWriter, r *http.Request) {
	var req employeeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	emp, err := a.directory.UpdateEmployee(r.Context(), chi.URLParam(r, "employeeID"), directory.EmployeeUpdate{
		Name:       req.Name,
		Trade:      req.Trade,
		Phone:      req.Phone,
		Email:      req.Email,
		HourlyRate: req.HourlyRate,
		Active:     req.Active,
	})
	if errors.Is(err, directory.ErrNotFound) {
		writeError(w, http.StatusNotFound, "employee_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) handleEmployeesDelete(w http.ResponseWriter, r *http.Request) {
	err := a.directory.DeleteEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if errors.Is(err, directory.ErrNotFound) {
		writeError(w, http.StatusNotFound, "employee_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
