package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all farmer routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/farmers", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/stats", h.HandleStats)
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGet(w, r, chi.URLParam(r, "id"))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpdate(w, r, chi.URLParam(r, "id"))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDelete(w, r, chi.URLParam(r, "id"))
		})
	})
}
