/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitewisehq/sitewise/internal/deliveries"
	"github.com/sitewisehq/sitewise/internal/models"
)

type deliveryCreateRequest struct {
	JobID        string     `json:"job_id"`
	Supplier     string     `json:"supplier"`
	Material     string     `json:"material"`
	Quantity     float64    `json:"quantity"`
	Unit         string     `json:"unit"`
	ExpectedDate *time.Time `json:"expected_date"`
	Notes        string     `json:"notes"`
}

type deliveryStatusRequest struct {
	Status models.DeliveryStatus `json:"status"`
}

func (a *API) handleDeliveriesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := a.deliveries.List(r.Context(), q.Get("job_id"), models.DeliveryStatus(q.Get("status")))
	if err != nil {
		a.logger.Error().Err(err).Msg("delivery list failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleDeliveriesCreate(w http.ResponseWriter, r *http.Request) {
	var req deliveryCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.JobID == "" || req.Material == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	delivery, err := a.deliveries.Log(r.Context(), deliveries.Input{
		JobID:        req.JobID,
		Supplier:     req.Supplier,
		Material:     req.Material,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		ExpectedDate: req.ExpectedDate,
		Notes:        req.Notes,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("delivery create failed")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, delivery)
}

func (a *API) handleDeliveriesGet(w http.ResponseWriter, r *http.Request) {
	delivery, err := a.deliveries.Get(r.Context(), chi.URLParam(r, "deliveryID"))
	if errors.Is(err, deliveries.ErrNotFound) {
		writeError(w, http.StatusNotFound, "delivery_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

func (a *API) handleDeliveriesSetStatus(w http.ResponseWriter, r *http.Request) {
	var req deliveryStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	switch req.Status {
	case models.DeliveryOrdered, models.DeliveryInTransit, models.DeliveryReceived, models.DeliveryRejected:
	default:
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	delivery, err := a.deliveries.SetStatus(r.Context(), chi.URLParam(r, "deliveryID"), req.Status)
	if errors.Is(err, deliveries.ErrNotFound) {
		writeError(w, http.StatusNotFound, "delivery_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

func (a *API) handleDeliveriesPhotoUpload(w http.ResponseWriter, r *http.Request) {
	delivery, err := a.deliveries.Get(r.Context(), chi.URLParam(r, "deliveryID"))
	if errors.Is(err, deliveries.ErrNotFound) {
		writeError(w, http.StatusNotFound, "delivery_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}

	key, ok := a.storePhoto(w, r, delivery.JobID, delivery.ID)
	if !ok {
		return
	}

	updated, err := a.deliveries.AttachPhoto(r.Context(), delivery.ID, key)
	if err != nil {
		a.logger.Error().Err(err).Msg("photo attach failed")
		writeError(w, http.StatusInternalServerError, "attach_failed")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeliveriesPhotoGet(w http.ResponseWriter, r *http.Request) {
	delivery, err := a.deliveries.Get(r.Context(), chi.URLParam(r, "deliveryID"))
	if errors.Is(err, deliveries.ErrNotFound) {
		writeError(w, http.StatusNotFound, "delivery_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return
	}
	a.servePhoto(w, r, delivery.PhotoKey)
}

func (a *API) handleDeliveriesDelete(w http.ResponseWriter, r *http.Request) {
	err := a.deliveries.Delete(r.Context(), chi.URLParam(r, "deliveryID"))
	if errors.Is(err, deliveries.ErrNotFound) {
		writeError(w, http.StatusNotFound, "delivery_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// storePhoto reads the multipart "photo" field and writes it through the
// storage backend. Errors are written to the response; the caller only
// proceeds when ok is true.
func (a *API) storePhoto(w http.ResponseWriter, r *http.Request, jobID, objectID string) (string, bool) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_multipart")
		return "", false
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo_required")
		return "", false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	key, err := a.storage.Store(r.Context(), jobID, objectID, contentType, file)
	if err != nil {
		a.logger.Error().Err(err).Msg("photo store failed")
		writeError(w, http.StatusInternalServerError, "store_failed")
		return "", false
	}
	return key, true
}

func (a *API) servePhoto(w http.ResponseWriter, r *http.Request, key string) {
	if key == "" {
		writeError(w, http.StatusNotFound, "no_photo")
		return
	}

	reader, err := a.storage.Open(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "photo_not_found")
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
