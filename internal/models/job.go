package models

import "time"

// JobStatus is the lifecycle state of a Job.
type JobStatus string

// MaxJobDateWindow is the widest start_date/end_date span a job may
// request, enforced both at creation time and at extraction time.
const MaxJobDateWindow = 90 * 24 * time.Hour

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobType distinguishes scanner-originated jobs from operator-triggered ones.
type JobType string

const (
	JobTypeScheduled JobType = "scheduled"
	JobTypeOnDemand  JobType = "on_demand"
)

// Job is a single crawl attempt for one category.
type Job struct {
	ID             string          `json:"id" badgerhold:"key"`
	CategoryID     string          `json:"category_id" badgerhold:"index"`
	Status         JobStatus       `json:"status" badgerhold:"index"`
	Priority       int             `json:"priority" validate:"min=0,max=10"`
	RetryCount     int             `json:"retry_count" validate:"min=0,max=10"`
	JobType        JobType         `json:"job_type"`
	ExternalTaskID string          `json:"external_task_id,omitempty" badgerhold:"unique"`
	StartedAt      *time.Time      `json:"started_at,omitempty" badgerhold:"index"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	MaxResults     int             `json:"max_results,omitempty"`
	ArticlesFound  int             `json:"articles_found"`
	ArticlesSaved  int             `json:"articles_saved"`
	CreatedAt      time.Time       `json:"created_at" badgerhold:"index"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Validate checks the cross-field invariants of §3 that struct tags cannot express.
func (j *Job) Validate() error {
	if (j.StartedAt == nil) != (j.Status == JobStatusPending) {
		return errValidation("started_at must be null iff status is pending")
	}
	completedOK := j.Status == JobStatusCompleted || j.Status == JobStatusFailed
	if (j.CompletedAt == nil) == completedOK {
		return errValidation("completed_at must be null iff status is pending or running")
	}
	if j.CompletedAt != nil && j.StartedAt != nil && j.CompletedAt.Before(*j.StartedAt) {
		return errValidation("completed_at must not precede started_at")
	}
	if j.ArticlesSaved > j.ArticlesFound {
		return errValidation("articles_saved must not exceed articles_found")
	}
	return nil
}

// JobCreateParams is the input to CreateJob: an on-demand or
// scanner-originated crawl request, with an optional explicit date
// window and result cap.
type JobCreateParams struct {
	CategoryID    string
	Priority      int
	CorrelationID string
	Metadata      map[string]any
	JobType       JobType
	StartDate     *time.Time
	EndDate       *time.Time
	MaxResults    int
}

// JobImpact reports the effect of a delete_job call.
type JobImpact struct {
	ArticlesAffected int  `json:"articles_affected"`
	ArticlesDeleted  int  `json:"articles_deleted"`
	WasRunning       bool `json:"was_running"`
}

// DeleteJobOptions controls delete_job behavior.
type DeleteJobOptions struct {
	Force           bool
	DeleteArticles  bool
}

// JobFilter narrows list_jobs.
type JobFilter struct {
	Status         JobStatus
	CategoryID     string
	ExternalTaskID string
	Limit          int
	Offset         int
	// ActiveOrder sorts by (priority desc, created_at asc) for pending work;
	// when false, sorts by created_at desc for history views.
	ActiveOrder bool
}
