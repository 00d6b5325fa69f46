package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Init builds the vaultd router. Every /api/vault route requires a valid
// bearer token; the authenticated user ID scopes all store access.
func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Get("/api/version", h.getServerVersion)
	})

	router.Group(func(r chi.Router) {
		r.Use(h.withAuth)

		r.Route("/api/vault", func(r chi.Router) {
			r.Get("/salt", h.getSalt)
			r.Post("/salt", h.createSalt)
			r.Delete("/salt", h.deleteSalt)

			r.Get("/items", h.listEnvelopes)
			r.Put("/items", h.putEnvelope)
			r.Delete("/items", h.deleteAllEnvelopes)
			r.Get("/items/{id}", h.getEnvelope)
			r.Delete("/items/{id}", h.deleteEnvelope)

			r.Get("/session", h.getSession)
			r.Put("/session", h.putSession)
			r.Delete("/session", h.deleteSession)
		})
	})

	return router
}
