// Package handlers provides HTTP handlers for weather observations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/agrisage/agrisage/internal/modules/weather"
	"github.com/rs/zerolog"
)

// Handler handles weather HTTP requests
type Handler struct {
	repo *weather.Repository
	log  zerolog.Logger
}

// NewHandler creates a new weather handler
func NewHandler(repo *weather.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "weather").Logger(),
	}
}

// HandleRecord handles POST /api/weather
// Records a daily observation; re-posting the same mandal and date replaces it.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var sample weather.Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.Record(sample); err != nil {
		h.log.Error().Err(err).Str("mandal", sample.Mandal).Msg("Failed to record weather sample")
		http.Error(w, "Failed to record weather sample", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"mandal": sample.Mandal,
			"date":   sample.Date,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleList handles GET /api/weather?mandal=&limit=
// Returns recorded samples for a mandal, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	mandal := r.URL.Query().Get("mandal")
	if mandal == "" {
		http.Error(w, "mandal query parameter is required", http.StatusBadRequest)
		return
	}

	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	samples, err := h.repo.ListForMandal(mandal, limit)
	if err != nil {
		h.log.Error().Err(err).Str("mandal", mandal).Msg("Failed to list weather samples")
		http.Error(w, "Failed to list weather samples", http.StatusInternalServerError)
		return
	}
	if samples == nil {
		samples = []weather.Sample{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": samples,
		"metadata": map[string]interface{}{
			"mandal":    mandal,
			"count":     len(samples),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleLatest handles GET /api/weather/latest?mandal=
// Returns the most recent observation for a mandal.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	mandal := r.URL.Query().Get("mandal")
	if mandal == "" {
		http.Error(w, "mandal query parameter is required", http.StatusBadRequest)
		return
	}

	sample, err := h.repo.LatestForMandal(mandal)
	if err != nil {
		h.log.Error().Err(err).Str("mandal", mandal).Msg("Failed to get latest weather")
		http.Error(w, "Failed to get latest weather", http.StatusInternalServerError)
		return
	}
	if sample == nil {
		http.Error(w, "No weather recorded for mandal", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": sample,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleMandals handles GET /api/weather/mandals
// Returns the mandals with at least one recorded sample.
func (h *Handler) HandleMandals(w http.ResponseWriter, r *http.Request) {
	mandals, err := h.repo.Mandals()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list mandals")
		http.Error(w, "Failed to list mandals", http.StatusInternalServerError)
		return
	}
	if mandals == nil {
		mandals = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": mandals,
		"metadata": map[string]interface{}{
			"count":     len(mandals),
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
