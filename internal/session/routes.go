package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is an interface for HTTP middleware
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers all sailing session routes with the Chi router.
// Every route requires authentication.
func RegisterRoutes(r chi.Router, handler *Handler, authMiddleware Middleware) {
	r.Route("/sessions", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", handler.Create)
		r.Get("/", handler.List)
		r.Get("/analytics/performance", handler.PerformanceAnalytics)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.Get)
			r.Put("/", handler.Update)
			r.Delete("/", handler.Delete)

			r.Post("/settings", handler.CreateSettings)
			r.Get("/settings", handler.GetSettings)

			r.Get("/equipment", handler.ListEquipment)
			r.Post("/equipment", handler.AttachEquipment)
			r.Delete("/equipment/{equipmentId}", handler.DetachEquipment)
		})
	})
}
