package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns the configured chi.Router for the Cybether dashboard API.
//
// Route layout (all under /api):
//
//	GET  /health                      – DB connectivity probe (public)
//	POST /login                       – credential exchange for a token pair
//	POST /refresh-token               – access-token renewal (refresh token)
//	GET  /threat-level                – current threat level (public)
//	GET  /maturity-rating             – current maturity rating (public)
//	GET  /maturity-trend              – monthly trend points (public)
//	GET  /risks, /projects, /compliance          – resource lists (public)
//	GET  /projects/stats, /compliance/stats      – derived aggregates (public)
//	POST/PUT/DELETE on the resources above       – admin only
//
// Reads are deliberately unauthenticated: the dashboard data is public and
// only writes require an admin identity.
func NewRouter(srv *Server) http.Handler {
	r := chi.NewRouter()

	// Built-in chi middleware for observability and hygiene.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Post("/login", srv.handleLogin)
		r.Post("/refresh-token", srv.handleRefreshToken)

		// Public dashboard reads.
		r.Get("/threat-level", srv.handleGetThreatLevel)
		r.Get("/maturity-rating", srv.handleGetMaturityRating)
		r.Get("/maturity-trend", srv.handleGetMaturityTrend)
		r.Get("/risks", srv.handleListRisks)
		r.Get("/projects", srv.handleListProjects)
		r.Get("/projects/stats", srv.handleProjectStats)
		r.Get("/compliance", srv.handleListFrameworks)
		r.Get("/compliance/stats", srv.handleComplianceStats)

		// Admin-gated writes.
		r.Group(func(r chi.Router) {
			r.Use(srv.requireAdmin)

			r.Post("/threat-level", srv.handleUpdateThreatLevel)
			r.Post("/maturity-rating", srv.handleUpdateMaturityRating)
			r.Post("/maturity-trend", srv.handleUpsertTrendPoint)
			r.Delete("/maturity-trend/{month}", srv.handleDeleteTrendPoint)

			r.Post("/risks", srv.handleCreateRisk)
			r.Put("/risks/{id}", srv.handleUpdateRisk)
			r.Delete("/risks/{id}", srv.handleDeleteRisk)

			r.Post("/projects", srv.handleCreateProject)
			r.Put("/projects/{id}", srv.handleUpdateProject)
			r.Delete("/projects/{id}", srv.handleDeleteProject)

			r.Post("/compliance", srv.handleCreateFramework)
			r.Put("/compliance/{id}", srv.handleUpdateFramework)
			r.Delete("/compliance/{id}", srv.handleDeleteFramework)
		})
	})

	return r
}
