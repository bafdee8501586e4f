package equipment

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers all equipment routes with the Chi router.
// Every route requires authentication.
func RegisterRoutes(r chi.Router, handler *Handler, authMiddleware Middleware) {
	r.Route("/equipment", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/analytics/stats", handler.Statistics)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.Get)
			r.Put("/", handler.Update)
			r.Delete("/", handler.Delete)

			r.Post("/retire", handler.Retire)
			r.Post("/reactivate", handler.Reactivate)
		})
	})
}
