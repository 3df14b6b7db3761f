// Package handlers provides HTTP handlers for notifications.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/rs/zerolog"
)

// Handler handles notification HTTP requests
type Handler struct {
	repo *notifications.Repository
	log  zerolog.Logger
}

// NewHandler creates a new notifications handler
func NewHandler(repo *notifications.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "notifications").Logger(),
	}
}

// HandleList handles GET /api/notifications?unread=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	var (
		items []notifications.Notification
		err   error
	)
	if unreadOnly {
		items, err = h.repo.Unread(limit)
	} else {
		items, err = h.repo.List(limit)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list notifications")
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []notifications.Notification{}
	}

	unreadCount, err := h.repo.CountUnread()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count unread notifications")
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": items,
		"metadata": map[string]interface{}{
			"count":     len(items),
			"unread":    unreadCount,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleMarkRead handles POST /api/notifications/{id}/read
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request, id string) {
	ok, err := h.repo.MarkRead(id)
	if err != nil {
		h.log.Error().Err(err).Str("notification_id", id).Msg("Failed to mark notification read")
		http.Error(w, "Failed to mark notification read", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Notification not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"read": id},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleMarkAllRead handles POST /api/notifications/read-all
func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	flipped, err := h.repo.MarkAllRead()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to mark notifications read")
		http.Error(w, "Failed to mark notifications read", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"marked_read": flipped},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
