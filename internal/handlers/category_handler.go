package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/models"
)

// UpdateScheduleRequest is the payload for PATCH /api/categories/{id}/schedule.
type UpdateScheduleRequest struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"interval_minutes"`
}

// CategoryHandler serves category CRUD.
type CategoryHandler struct {
	store  interfaces.Store
	logger arbor.ILogger
}

// NewCategoryHandler builds a CategoryHandler.
func NewCategoryHandler(store interfaces.Store, logger arbor.ILogger) *CategoryHandler {
	return &CategoryHandler{store: store, logger: logger}
}

// ListHandler handles GET /api/categories.
func (h *CategoryHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	activeOnly, _ := queryBool(r, "active")

	cats, err := h.store.ListCategories(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list categories")
		WriteAppError(w, err)
		return
	}
	if cats == nil {
		cats = []*models.Category{}
	}
	WriteJSON(w, http.StatusOK, cats)
}

// CreateHandler handles POST /api/categories.
func (h *CategoryHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var cat models.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.store.CreateCategory(r.Context(), &cat)
	if err != nil {
		h.logger.Warn().Err(err).Str("name", cat.Name).Msg("failed to create category")
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

// CapacityHandler handles GET /api/categories/schedules/capacity: the
// aggregate scheduled crawl load across every active, schedule-enabled
// category.
func (h *CategoryHandler) CapacityHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	cats, err := h.store.ListCategories(r.Context(), true)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list categories for capacity")
		WriteAppError(w, err)
		return
	}

	scheduled := 0
	var jobsPerHour float64
	for _, c := range cats {
		if !c.ScheduleEnabled || c.ScheduleIntervalMin <= 0 {
			continue
		}
		scheduled++
		jobsPerHour += 60.0 / float64(c.ScheduleIntervalMin)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"scheduled_category_count": scheduled,
		"estimated_jobs_per_hour":  jobsPerHour,
	})
}

// ItemHandler handles GET/PUT/DELETE /api/categories/{id} and
// PATCH /api/categories/{id}/schedule.
func (h *CategoryHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id, rest := extractIDFromPath(r.URL.Path, "/api/categories/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "category id is required")
		return
	}

	if rest == "schedule" && r.Method == "PATCH" {
		h.updateSchedule(w, r, id)
		return
	}

	switch r.Method {
	case "GET":
		h.get(w, r, id)
	case "PUT":
		h.update(w, r, id)
	case "DELETE":
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CategoryHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	cat, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var cat models.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cat.ID = id

	updated, err := h.store.UpdateCategory(r.Context(), &cat)
	if err != nil {
		h.logger.Warn().Err(err).Str("category_id", id).Msg("failed to update category")
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (h *CategoryHandler) updateSchedule(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.store.GetCategory(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	cat.ScheduleEnabled = req.Enabled
	cat.ScheduleIntervalMin = req.IntervalMinutes
	if req.Enabled {
		next := time.Now().UTC().Add(time.Duration(req.IntervalMinutes) * time.Minute)
		cat.NextScheduledRunAt = &next
	} else {
		cat.NextScheduledRunAt = nil
	}

	updated, err := h.store.UpdateCategory(r.Context(), cat)
	if err != nil {
		h.logger.Warn().Err(err).Str("category_id", id).Msg("failed to update category schedule")
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (h *CategoryHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Str("category_id", id).Msg("failed to delete category")
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
