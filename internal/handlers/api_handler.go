package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/interfaces"
)

// APIHandler serves version and liveness/readiness probes.
type APIHandler struct {
	store  interfaces.Store
	logger arbor.ILogger
}

// NewAPIHandler builds an APIHandler.
func NewAPIHandler(store interfaces.Store, logger arbor.ILogger) *APIHandler {
	return &APIHandler{store: store, logger: logger}
}

// VersionHandler returns version information.
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
	})
}

// HealthHandler reports overall health, including store reachability.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.store.ArticleStats(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("health check: store unreachable")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler reports readiness: identical to HealthHandler, since this
// service has no separate warm-up phase beyond store connectivity.
func (h *APIHandler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	h.HealthHandler(w, r)
}

// LiveHandler reports liveness without touching the store, so a stalled
// store never fails the liveness probe and triggers needless restarts.
func (h *APIHandler) LiveHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFoundHandler handles 404s with a JSON body.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
