package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all mandi price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/prices", func(r chi.Router) {
		r.Post("/", h.HandleRecord)
		r.Get("/", h.HandleHistory)
		r.Get("/latest", h.HandleLatest)
		r.Get("/trend", h.HandleTrend)
		r.Get("/crops", h.HandleCrops)
	})
}
