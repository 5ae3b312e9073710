/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/sitewisehq/sitewise/internal/auth"
)

func (a *API) handleNotificationsList(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	list, total, err := a.notifications.ListForUser(r.Context(), claims.UserID, q.Get("unread") == "true", limit, offset)
	if err != nil {
		a.logger.Error().Err(err).Msg("notification list failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": list,
		"total":         total,
	})
}

func (a *API) handleNotificationsUnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := a.notifications.UnreadCount(r.Context(), claims.UserID)
	if err != nil {
		a.logger.Error().Err(err).Msg("unread count failed")
		writeError(w, http.StatusInternalServerError, "count_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

func (a *API) handleNotificationsMarkRead(w http.ResponseWriter, r *http.Request) {
	err := a.notifications.MarkAsRead(r.Context(), chi.URLParam(r, "notificationID"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "notification_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "mark_read_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
