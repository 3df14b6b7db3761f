// Package handlers provides HTTP handlers for farmer registrations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/agrisage/agrisage/internal/modules/farmers"
	"github.com/rs/zerolog"
)

// Handler handles farmer HTTP requests
type Handler struct {
	repo *farmers.Repository
	log  zerolog.Logger
}

// NewHandler creates a new farmers handler
func NewHandler(repo *farmers.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "farmers").Logger(),
	}
}

// HandleCreate handles POST /api/farmers
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var farmer farmers.Farmer
	if err := json.NewDecoder(r.Body).Decode(&farmer); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(farmer)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create farmer")
		http.Error(w, "Failed to create farmer", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": created,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleList handles GET /api/farmers?limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	list, err := h.repo.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list farmers")
		http.Error(w, "Failed to list farmers", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []farmers.Farmer{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": list,
		"metadata": map[string]interface{}{
			"count":     len(list),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/farmers/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request, id string) {
	farmer, err := h.repo.GetByID(id)
	if err != nil {
		h.log.Error().Err(err).Str("farmer_id", id).Msg("Failed to get farmer")
		http.Error(w, "Failed to get farmer", http.StatusInternalServerError)
		return
	}
	if farmer == nil {
		http.Error(w, "Farmer not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": farmer,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdate handles PUT /api/farmers/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var farmer farmers.Farmer
	if err := json.NewDecoder(r.Body).Decode(&farmer); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	farmer.ID = id

	updated, err := h.repo.Update(farmer)
	if err != nil {
		h.log.Error().Err(err).Str("farmer_id", id).Msg("Failed to update farmer")
		http.Error(w, "Failed to update farmer", http.StatusBadRequest)
		return
	}
	if updated == nil {
		http.Error(w, "Farmer not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": updated,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleDelete handles DELETE /api/farmers/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request, id string) {
	deleted, err := h.repo.Delete(id)
	if err != nil {
		h.log.Error().Err(err).Str("farmer_id", id).Msg("Failed to delete farmer")
		http.Error(w, "Failed to delete farmer", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "Farmer not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"deleted": id},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleStats handles GET /api/farmers/stats
// Returns registration counts per crop and per mandal.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	byCrop, err := h.repo.CountByCrop()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count farmers by crop")
		http.Error(w, "Failed to get farmer stats", http.StatusInternalServerError)
		return
	}
	byMandal, err := h.repo.CountByMandal()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count farmers by mandal")
		http.Error(w, "Failed to get farmer stats", http.StatusInternalServerError)
		return
	}
	total, err := h.repo.Count()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count farmers")
		http.Error(w, "Failed to get farmer stats", http.StatusInternalServerError)
		return
	}

	if byCrop == nil {
		byCrop = []farmers.CropCount{}
	}
	if byMandal == nil {
		byMandal = []farmers.MandalCount{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"total":     total,
			"by_crop":   byCrop,
			"by_mandal": byMandal,
		},
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
