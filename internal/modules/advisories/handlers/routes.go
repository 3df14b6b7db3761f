package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all advisory routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/advisories", func(r chi.Router) {
		r.Post("/", h.HandleGenerate)
		r.Get("/", h.HandleRecent)
		r.Get("/{farmerID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetByFarmer(w, r, chi.URLParam(r, "farmerID"))
		})
		r.Get("/{farmerID}/history", func(w http.ResponseWriter, r *http.Request) {
			h.HandleHistory(w, r, chi.URLParam(r, "farmerID"))
		})
	})
}
