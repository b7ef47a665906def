// -----------------------------------------------------------------------
// Last Modified: Thursday, 9th October 2025 8:53:55 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Categories
	mux.HandleFunc("/api/categories", s.categoryCollectionRoute)
	mux.HandleFunc("/api/categories/schedules/capacity", s.app.CategoryHandler.CapacityHandler)
	mux.HandleFunc("/api/categories/", s.app.CategoryHandler.ItemHandler)

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.jobCollectionRoute)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.ItemHandler)

	// API routes - Articles
	mux.HandleFunc("/api/articles/stats", s.app.ArticleHandler.StatsHandler)
	mux.HandleFunc("/api/articles/export", s.app.ArticleHandler.ExportHandler)
	mux.HandleFunc("/api/articles", s.app.ArticleHandler.ListHandler)
	mux.HandleFunc("/api/articles/", s.app.ArticleHandler.ItemHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/ready", s.app.APIHandler.ReadyHandler)
	mux.HandleFunc("/live", s.app.APIHandler.LiveHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// categoryCollectionRoute routes /api/categories requests (list and create).
func (s *Server) categoryCollectionRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.CategoryHandler.ListHandler, s.app.CategoryHandler.CreateHandler)
}

// jobCollectionRoute routes /api/jobs requests (list and create).
func (s *Server) jobCollectionRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r, s.app.JobHandler.ListHandler, s.app.JobHandler.CreateHandler)
}
