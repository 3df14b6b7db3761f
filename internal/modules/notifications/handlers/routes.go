package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all notification routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/read-all", h.HandleMarkAllRead)
		r.Post("/{id}/read", func(w http.ResponseWriter, r *http.Request) {
			h.HandleMarkRead(w, r, chi.URLParam(r, "id"))
		})
	})
}
