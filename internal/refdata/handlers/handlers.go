// Package handlers provides HTTP handlers for the crop catalog.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/agrisage/agrisage/internal/refdata"
)

// Handler handles crop catalog HTTP requests
type Handler struct {
	catalog *refdata.Catalog
	log     zerolog.Logger
}

// NewHandler creates a new crop catalog handler
func NewHandler(catalog *refdata.Catalog, log zerolog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		log:     log.With().Str("handler", "crops").Logger(),
	}
}

// RangeResponse is an inclusive interval in a crop profile response.
type RangeResponse struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// CropResponse describes one catalogued crop. Field names match the YAML
// overlay format, so a fetched profile can be edited and fed back as an
// override entry.
type CropResponse struct {
	Name             string        `json:"name"`
	BaseYieldPerAcre float64       `json:"base_yield_per_acre"`
	MinYieldPerAcre  float64       `json:"min_yield_per_acre"`
	MaxYieldPerAcre  float64       `json:"max_yield_per_acre"`
	TemperatureC     RangeResponse `json:"temperature_c"`
	RainfallMM       RangeResponse `json:"rainfall_mm"`
	HumidityPct      RangeResponse `json:"humidity_pct"`
	AvgPrice         float64       `json:"avg_price"`
	MinPrice         float64       `json:"min_price"`
	MaxPrice         float64       `json:"max_price"`
	PeakMonths       []int         `json:"peak_months"`
	LowMonths        []int         `json:"low_months"`
}

func toCropResponse(p refdata.CropProfile) CropResponse {
	peak := make([]int, 0, len(p.PeakMonths))
	for _, m := range p.PeakMonths {
		peak = append(peak, int(m))
	}
	low := make([]int, 0, len(p.LowMonths))
	for _, m := range p.LowMonths {
		low = append(low, int(m))
	}

	return CropResponse{
		Name:             p.Name,
		BaseYieldPerAcre: p.BaseYieldPerAcre,
		MinYieldPerAcre:  p.MinYieldPerAcre,
		MaxYieldPerAcre:  p.MaxYieldPerAcre,
		TemperatureC:     RangeResponse{Lo: p.OptimalTempC.Lo, Hi: p.OptimalTempC.Hi},
		RainfallMM:       RangeResponse{Lo: p.OptimalRainfall.Lo, Hi: p.OptimalRainfall.Hi},
		HumidityPct:      RangeResponse{Lo: p.OptimalHumidity.Lo, Hi: p.OptimalHumidity.Hi},
		AvgPrice:         p.AvgPrice,
		MinPrice:         p.MinPrice,
		MaxPrice:         p.MaxPrice,
		PeakMonths:       peak,
		LowMonths:        low,
	}
}

// HandleList handles GET /api/crops
// Returns every catalogued crop profile, sorted by name.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	names := h.catalog.Names()
	crops := make([]CropResponse, 0, len(names))
	for _, name := range names {
		crops = append(crops, toCropResponse(h.catalog.Profile(name)))
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": crops,
		"metadata": map[string]interface{}{
			"count":     len(crops),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGet handles GET /api/crops/{name}
// Unknown crops are 404; the advisory engine's default profile is an engine
// behavior, not a catalog entry.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.catalog.Has(name) {
		http.Error(w, "Crop not in catalog", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": toCropResponse(h.catalog.Profile(name)),
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
