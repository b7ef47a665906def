package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/dispatcher"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/jobmanager"
	"github.com/ternarybob/newscrawler/internal/models"
)

// CreateJobRequest is the payload for POST /api/jobs (an on-demand crawl).
type CreateJobRequest struct {
	CategoryID    string         `json:"category_id"`
	Priority      int            `json:"priority"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	StartDate     *time.Time     `json:"start_date,omitempty"`
	EndDate       *time.Time     `json:"end_date,omitempty"`
	MaxResults    int            `json:"max_results,omitempty"`
}

// UpdatePriorityRequest is the payload for PATCH (or PUT) /api/jobs/{id}/priority.
type UpdatePriorityRequest struct {
	Priority int `json:"priority"`
}

// UpdateJobRequest is the payload for PUT /api/jobs/{id}: a partial update
// of the mutable fields of a job that is not running.
type UpdateJobRequest struct {
	Priority     *int           `json:"priority,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
}

// executePriority is the priority stamped on a job cloned via
// POST /api/jobs/{id}/execute: an operator-triggered run jumps the queue.
const executePriority = 10

// JobHandler serves job CRUD and lifecycle operations.
type JobHandler struct {
	store      interfaces.Store
	jobManager *jobmanager.Manager
	dispatcher *dispatcher.Dispatcher
	logger     arbor.ILogger
}

// NewJobHandler builds a JobHandler.
func NewJobHandler(store interfaces.Store, jobManager *jobmanager.Manager, disp *dispatcher.Dispatcher, logger arbor.ILogger) *JobHandler {
	return &JobHandler{store: store, jobManager: jobManager, dispatcher: disp, logger: logger}
}

// ListHandler handles GET /api/jobs.
func (h *JobHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	q := r.URL.Query()
	filter := models.JobFilter{
		Status:         models.JobStatus(q.Get("status")),
		CategoryID:     q.Get("category_id"),
		ExternalTaskID: q.Get("external_task_id"),
		Limit:          queryInt(r, "limit", 0),
		Offset:         queryInt(r, "offset", 0),
	}
	if active, ok := queryBool(r, "active_order"); ok {
		filter.ActiveOrder = active
	}

	jobs, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list jobs")
		WriteAppError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// CreateHandler handles POST /api/jobs: creates an on-demand job and
// enqueues it onto the crawl queue for dispatch.
func (h *JobHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CategoryID == "" {
		WriteError(w, http.StatusBadRequest, "category_id is required")
		return
	}
	if req.StartDate != nil && req.EndDate != nil {
		if req.EndDate.Before(*req.StartDate) {
			WriteError(w, http.StatusUnprocessableEntity, "end_date must not precede start_date")
			return
		}
		if req.EndDate.Sub(*req.StartDate) > models.MaxJobDateWindow {
			WriteError(w, http.StatusUnprocessableEntity, "date range cannot exceed 90 days")
			return
		}
	}

	job, err := h.store.CreateJob(r.Context(), models.JobCreateParams{
		CategoryID:    req.CategoryID,
		Priority:      req.Priority,
		CorrelationID: req.CorrelationID,
		Metadata:      req.Metadata,
		JobType:       models.JobTypeOnDemand,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		MaxResults:    req.MaxResults,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("category_id", req.CategoryID).Msg("failed to create job")
		WriteAppError(w, err)
		return
	}

	if err := h.dispatcher.Enqueue(r.Context(), job.ID, dispatcher.QueueCrawl, job.Priority); err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to enqueue job")
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// ItemHandler handles GET/PUT/DELETE /api/jobs/{id}, PATCH or PUT /api/jobs/{id}/priority,
// and POST /api/jobs/{id}/execute.
func (h *JobHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id, rest := extractIDFromPath(r.URL.Path, "/api/jobs/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	if rest == "priority" && (r.Method == "PATCH" || r.Method == "PUT") {
		h.updatePriority(w, r, id)
		return
	}
	if rest == "execute" && r.Method == "POST" {
		h.execute(w, r, id)
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

func (h *JobHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

func (h *JobHandler) updatePriority(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdatePriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.jobManager.UpdatePriority(r.Context(), id, req.Priority); err != nil {
		h.logger.Warn().Err(err).Str("job_id", id).Msg("failed to update job priority")
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *JobHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := interfaces.JobStatusUpdate{
		Priority:     req.Priority,
		Metadata:     req.Metadata,
		ErrorMessage: req.ErrorMessage,
	}
	if _, err := h.jobManager.UpdateJob(r.Context(), id, fields); err != nil {
		h.logger.Warn().Err(err).Str("job_id", id).Msg("failed to update job")
		WriteAppError(w, err)
		return
	}

	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// execute handles POST /api/jobs/{id}/execute: clones the referenced job as
// a new max-priority on-demand job and dispatches it immediately, leaving
// the original job untouched.
func (h *JobHandler) execute(w http.ResponseWriter, r *http.Request, id string) {
	source, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	job, err := h.store.CreateJob(r.Context(), models.JobCreateParams{
		CategoryID:    source.CategoryID,
		Priority:      executePriority,
		CorrelationID: source.CorrelationID,
		Metadata:      source.Metadata,
		JobType:       models.JobTypeOnDemand,
		StartDate:     source.StartDate,
		EndDate:       source.EndDate,
		MaxResults:    source.MaxResults,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("source_job_id", id).Msg("failed to create job for execute")
		WriteAppError(w, err)
		return
	}

	if err := h.dispatcher.Enqueue(r.Context(), job.ID, dispatcher.QueueCrawl, job.Priority); err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to enqueue executed job")
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

func (h *JobHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	force, _ := queryBool(r, "force")
	deleteArticles, _ := queryBool(r, "delete_articles")

	impact, err := h.jobManager.DeleteJob(r.Context(), id, models.DeleteJobOptions{
		Force:          force,
		DeleteArticles: deleteArticles,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", id).Msg("failed to delete job")
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, impact)
}
