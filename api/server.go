/*
server.go - HTTP router configuration

PURPOSE:
  Wires the handlers into a chi router with the middleware stack: request
  IDs, request logging, panic recovery, and CORS for the local dev
  frontend.

SEE ALSO:
  - handlers.go: The handlers mounted here
  - cmd/server: Binds the router to an http.Server
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the full API router around the given handler.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/cycle", h.GetCycle)
		r.Get("/occurrences", h.GetOccurrences)
		r.Get("/summary", h.GetSummary)

		r.Route("/obligations", func(r chi.Router) {
			r.Get("/", h.ListObligations)
			r.Post("/", h.CreateObligation)
			r.Put("/{id}", h.UpdateObligation)
			r.Delete("/{id}", h.DeleteObligation)

			r.Route("/{id}/occurrences/{date}", func(r chi.Router) {
				r.Post("/settle", h.ToggleSettled)
				r.Put("/", h.EditOccurrence)
				r.Delete("/", h.ExcludeOccurrence)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", h.ListCards)
			r.Post("/", h.CreateCard)
			r.Put("/{id}", h.UpdateCard)
			r.Delete("/{id}", h.DeleteCard)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
			r.Post("/days-off/{date}", h.ToggleDayOff)
			r.Post("/savings/{date}", h.ToggleSavingsDay)
			r.Put("/savings/{date}", h.AdjustSavings)
		})

		r.Route("/snapshot", func(r chi.Router) {
			r.Get("/", h.ExportSnapshot)
			r.Post("/", h.ImportSnapshot)
		})
	})

	return r
}
