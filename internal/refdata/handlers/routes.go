package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all crop catalog routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/crops", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/{name}", h.HandleGet)
	})
}
