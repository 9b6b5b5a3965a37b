// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/dalemusser/stratawatch/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the dashboard feature. The HTML page and
// the JSON endpoints are all operator-gated.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireOperator)

	r.Get("/", h.ServeDashboard)

	return r
}

// APIRoutes returns the router for the dashboard JSON endpoints.
func APIRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireOperator)

	r.Get("/statistics", h.ServeStatistics)
	r.Get("/graph-data", h.ServeGraphData)

	return r
}
