// Package handlers provides HTTP handlers for mandi price operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/rs/zerolog"
)

// PriceBroadcaster pushes freshly recorded quotes to live subscribers.
// Defined here to avoid an import cycle with the server's stream hub.
type PriceBroadcaster interface {
	Broadcast(p market.MandiPrice)
}

// Handler handles mandi price HTTP requests
type Handler struct {
	repo        *market.Repository
	trends      *market.TrendService
	broadcaster PriceBroadcaster
	log         zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(repo *market.Repository, trends *market.TrendService, log zerolog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		trends: trends,
		log:    log.With().Str("handler", "market").Logger(),
	}
}

// SetBroadcaster sets the live price broadcaster (for dependency injection)
func (h *Handler) SetBroadcaster(b PriceBroadcaster) {
	h.broadcaster = b
}

// HandleRecord handles POST /api/prices
// Records a mandi quote and pushes it to stream subscribers.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var price market.MandiPrice
	if err := json.NewDecoder(r.Body).Decode(&price); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.Record(price); err != nil {
		h.log.Error().Err(err).Str("crop", price.Crop).Msg("Failed to record mandi price")
		http.Error(w, "Failed to record mandi price", http.StatusBadRequest)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.Broadcast(price)
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"crop":   price.Crop,
			"market": price.Market,
			"date":   price.Date,
			"price":  price.PricePerQuintal,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleHistory handles GET /api/prices?crop=&limit=
// Returns recorded quotes for a crop, newest first.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	crop := r.URL.Query().Get("crop")
	if crop == "" {
		http.Error(w, "crop query parameter is required", http.StatusBadRequest)
		return
	}

	limit := 90
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	prices, err := h.repo.HistoryForCrop(crop, limit)
	if err != nil {
		h.log.Error().Err(err).Str("crop", crop).Msg("Failed to get price history")
		http.Error(w, "Failed to get price history", http.StatusInternalServerError)
		return
	}
	if prices == nil {
		prices = []market.MandiPrice{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": prices,
		"metadata": map[string]interface{}{
			"crop":      crop,
			"count":     len(prices),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleLatest handles GET /api/prices/latest?crop=
// Returns the most recent quote for a crop across all mandis.
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	crop := r.URL.Query().Get("crop")
	if crop == "" {
		http.Error(w, "crop query parameter is required", http.StatusBadRequest)
		return
	}

	price, err := h.repo.LatestForCrop(crop)
	if err != nil {
		h.log.Error().Err(err).Str("crop", crop).Msg("Failed to get latest price")
		http.Error(w, "Failed to get latest price", http.StatusInternalServerError)
		return
	}
	if price == nil {
		http.Error(w, "No prices recorded for crop", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": price,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleTrend handles GET /api/prices/trend?crop=&limit=
// Returns trend indicators derived from the recorded series.
func (h *Handler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	crop := r.URL.Query().Get("crop")
	if crop == "" {
		http.Error(w, "crop query parameter is required", http.StatusBadRequest)
		return
	}

	limit := 90
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	trend, err := h.trends.TrendForCrop(crop, limit)
	if err != nil {
		h.log.Error().Err(err).Str("crop", crop).Msg("Failed to compute price trend")
		http.Error(w, "Failed to compute price trend", http.StatusInternalServerError)
		return
	}
	if trend == nil {
		http.Error(w, "No prices recorded for crop", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": trend,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCrops handles GET /api/prices/crops
// Returns the crops with at least one recorded quote.
func (h *Handler) HandleCrops(w http.ResponseWriter, r *http.Request) {
	crops, err := h.repo.Crops()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list crops")
		http.Error(w, "Failed to list crops", http.StatusInternalServerError)
		return
	}
	if crops == nil {
		crops = []string{}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": crops,
		"metadata": map[string]interface{}{
			"count":     len(crops),
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
