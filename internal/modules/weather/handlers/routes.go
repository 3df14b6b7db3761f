package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all weather routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/weather", func(r chi.Router) {
		r.Post("/", h.HandleRecord)
		r.Get("/", h.HandleList)
		r.Get("/latest", h.HandleLatest)
		r.Get("/mandals", h.HandleMandals)
	})
}
