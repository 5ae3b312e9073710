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

	"github.com/sitewisehq/sitewise/internal/directory"
	"github.com/sitewisehq/sitewise/internal/models"
)

type jobCreateRequest struct {
	Name          string           `json:"name"`
	ClientName    string           `json:"client_name"`
	Address       string           `json:"address"`
	Status        models.JobStatus `json:"status"`
	Latitude      float64          `json:"latitude"`
	Longitude     float64          `json:"longitude"`
	FenceRadiusM  float64          `json:"fence_radius_m"`
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	ContractValue float64          `json:"contract_value"`
}

type jobUpdateRequest struct {
	Name          *string           `json:"name"`
	ClientName    *string           `json:"client_name"`
	Address       *string           `json:"address"`
	Status        *models.JobStatus `json:"status"`
	Latitude      *float64          `json:"latitude"`
	Longitude     *float64          `json:"longitude"`
	FenceRadiusM  *float64          `json:"fence_radius_m"`
	StartDate     *time.Time        `json:"start_date"`
	EndDate       *time.Time        `json:"end_date"`
	ContractValue *float64          `json:"contract_value"`
}

func (a *API) handleJobsList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.directory.ListJobs(r.Context(), models.JobStatus(r.URL.Query().Get("status")))
	if err != nil {
		a.logger.Error().Err(err).Msg("job list failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (a *API) handleJobsCreate(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_name")
		return
	}

	job, err := a.directory.CreateJob(r.Context(), directory.JobInput{
		Name:          req.Name,
		ClientName:    req.ClientName,
		Address:       req.Address,
		Status:        req.Status,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		FenceRadiusM:  req.FenceRadiusM,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		ContractValue: req.ContractValue,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("job create failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (a *API) handleJobsGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.directory.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if errors.Is(err, directory.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) handleJobsUpdate(w http.ResponseWriter, r *http.Request) {
	var req jobUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	job, err := a.directory.UpdateJob(r.Context(), chi.URLParam(r, "jobID"), directory.JobUpdate{
		Name:          req.Name,
		ClientName:    req.ClientName,
		Address:       req.Address,
		Status:        req.Status,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		FenceRadiusM:  req.FenceRadiusM,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		ContractValue: req.ContractValue,
	})
	if errors.Is(err, directory.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) handleJobsDelete(w http.ResponseWriter, r *http.Request) {
	err := a.directory.DeleteJob(r.Context(), chi.URLParam(r, "jobID"))
	if errors.Is(err, directory.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
