// Package handlers provides HTTP handlers for advisory operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/agrisage/agrisage/internal/modules/advisories"
	"github.com/agrisage/agrisage/internal/modules/snapshots"
	"github.com/rs/zerolog"
)

// Handler handles advisory HTTP requests
type Handler struct {
	service      *advisories.Service
	reportRepo   *advisories.Repository
	snapshotRepo *snapshots.Repository
	log          zerolog.Logger
}

// NewHandler creates a new advisories handler
func NewHandler(
	service *advisories.Service,
	reportRepo *advisories.Repository,
	snapshotRepo *snapshots.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		service:      service,
		reportRepo:   reportRepo,
		snapshotRepo: snapshotRepo,
		log:          log.With().Str("handler", "advisories").Logger(),
	}
}

// HandleGenerate handles POST /api/advisories
// Generates a fresh advisory for a registered farmer or an inline request.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req advisories.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.service.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, advisories.ErrFarmerNotFound) {
			http.Error(w, "Farmer not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("farmer_id", req.FarmerID).Msg("Failed to generate advisory")
		http.Error(w, "Failed to generate advisory", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRecent handles GET /api/advisories?limit=
// Returns current reports across farmers, most recently updated first.
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	reports, err := h.reportRepo.Recent(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list advisories")
		http.Error(w, "Failed to list advisories", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []advisories.Report{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": reports,
		"metadata": map[string]interface{}{
			"count":     len(reports),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetByFarmer handles GET /api/advisories/{farmerID}
// Returns the farmer's current report.
func (h *Handler) HandleGetByFarmer(w http.ResponseWriter, r *http.Request, farmerID string) {
	report, err := h.reportRepo.GetByFarmer(farmerID)
	if err != nil {
		h.log.Error().Err(err).Str("farmer_id", farmerID).Msg("Failed to get advisory")
		http.Error(w, "Failed to get advisory", http.StatusInternalServerError)
		return
	}
	if report == nil {
		http.Error(w, "No advisory for farmer", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleHistory handles GET /api/advisories/{farmerID}/history?limit=
// Returns archived advisory snapshots for a farmer, newest first.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request, farmerID string) {
	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	snaps, err := h.snapshotRepo.ListForFarmer(farmerID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("farmer_id", farmerID).Msg("Failed to list advisory history")
		http.Error(w, "Failed to list advisory history", http.StatusInternalServerError)
		return
	}

	history := make([]map[string]interface{}, 0, len(snaps))
	for _, snap := range snaps {
		var report advisories.Report
		if err := snap.Decode(&report); err != nil {
			h.log.Warn().Err(err).Int64("snapshot_id", snap.ID).Msg("Skipping undecodable snapshot")
			continue
		}
		history = append(history, map[string]interface{}{
			"archived_at": snap.CreatedAt,
			"report":      report,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": history,
		"metadata": map[string]interface{}{
			"farmer_id": farmerID,
			"count":     len(history),
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
