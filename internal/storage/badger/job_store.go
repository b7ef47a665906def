package badger

import (
	"context"
	"time"

	"github.com/ternarybob/newscrawler/internal/apperrors"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CreateJob inserts a new pending job for a category.
func (s *Store) CreateJob(ctx context.Context, params models.JobCreateParams) (*models.Job, error) {
	if _, err := s.GetCategory(ctx, params.CategoryID); err != nil {
		return nil, err
	}
	if params.StartDate != nil && params.EndDate != nil {
		if params.EndDate.Before(*params.StartDate) {
			return nil, apperrors.New(apperrors.KindValidation, "end_date must not precede start_date")
		}
		if params.EndDate.Sub(*params.StartDate) > models.MaxJobDateWindow {
			return nil, apperrors.New(apperrors.KindValidation, "date range cannot exceed 90 days")
		}
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:            common.NewID("job"),
		CategoryID:    params.CategoryID,
		Status:        models.JobStatusPending,
		Priority:      params.Priority,
		RetryCount:    0,
		JobType:       params.JobType,
		CorrelationID: params.CorrelationID,
		Metadata:      params.Metadata,
		StartDate:     params.StartDate,
		EndDate:       params.EndDate,
		MaxResults:    params.MaxResults,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if err := s.hold().Insert(job.ID, job); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "insert job")
	}
	return job, nil
}

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := s.hold().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, apperrors.New(apperrors.KindNotFound, "job not found: "+id)
		}
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "get job")
	}
	return &job, nil
}

// UpdateJobStatus applies a partial update, honoring the §3 state invariants.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, fields interfaces.JobStatusUpdate) (bool, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return false, nil
		}
		return false, err
	}

	if fields.Status != nil {
		job.Status = *fields.Status
	}
	if fields.ExternalTaskID != nil {
		job.ExternalTaskID = *fields.ExternalTaskID
	}
	if fields.ClearStartedAt {
		job.StartedAt = nil
	} else if fields.StartedAt != nil {
		job.StartedAt = fields.StartedAt
	}
	if fields.CompletedAt != nil {
		job.CompletedAt = fields.CompletedAt
	}
	if fields.ErrorMessage != nil {
		job.ErrorMessage = *fields.ErrorMessage
	}
	if fields.RetryCount != nil {
		job.RetryCount = *fields.RetryCount
	}
	if fields.Priority != nil {
		job.Priority = *fields.Priority
	}
	if fields.Metadata != nil {
		job.Metadata = fields.Metadata
	}
	if fields.ArticlesFound != nil {
		job.ArticlesFound = *fields.ArticlesFound
	}
	if fields.ArticlesSaved != nil {
		job.ArticlesSaved = *fields.ArticlesSaved
	}
	job.UpdatedAt = time.Now().UTC()

	if err := job.Validate(); err != nil {
		return false, err
	}
	if err := s.hold().Update(job.ID, job); err != nil {
		return false, apperrors.Wrap(apperrors.KindDatabase, err, "update job status")
	}
	return true, nil
}

// ListJobs lists jobs matching filter, ordered per §4.1: active work by
// (priority desc, created_at asc), history by created_at desc.
func (s *Store) ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if filter.Status != "" {
		query = query.And("Status").Eq(filter.Status)
	}
	if filter.CategoryID != "" {
		query = query.And("CategoryID").Eq(filter.CategoryID)
	}
	if filter.ExternalTaskID != "" {
		query = query.And("ExternalTaskID").Eq(filter.ExternalTaskID)
	}

	var rows []models.Job
	if err := s.hold().Find(&rows, query); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "list jobs")
	}

	if filter.ActiveOrder {
		sortByPriorityThenCreatedAsc(rows)
	} else {
		sortByCreatedDesc(rows)
	}

	if filter.Offset > 0 && filter.Offset < len(rows) {
		rows = rows[filter.Offset:]
	} else if filter.Offset >= len(rows) {
		rows = nil
	}
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}

	return toJobPointers(rows), nil
}

// FindStuckJobs returns running jobs whose started_at is older than threshold.
func (s *Store) FindStuckJobs(ctx context.Context, threshold time.Duration) ([]*models.Job, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	var rows []models.Job
	err := s.hold().Find(&rows, badgerhold.Where("Status").Eq(models.JobStatusRunning).
		And("StartedAt").Lt(cutoff))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "find stuck jobs")
	}
	return toJobPointers(rows), nil
}

// ResetStuckJobs transitions stuck running jobs to failed with a canonical
// error message, incrementing retry_count.
func (s *Store) ResetStuckJobs(ctx context.Context, threshold time.Duration) (int, error) {
	stuck, err := s.FindStuckJobs(ctx, threshold)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	reset := 0
	for _, job := range stuck {
		job.Status = models.JobStatusFailed
		job.CompletedAt = &now
		job.ErrorMessage = "stuck job reset by maintenance sweep"
		job.RetryCount++
		job.UpdatedAt = now
		if err := s.hold().Update(job.ID, job); err != nil {
			return reset, apperrors.Wrap(apperrors.KindDatabase, err, "reset stuck job")
		}
		reset++
	}
	return reset, nil
}

// CleanupOldJobs deletes completed/failed jobs older than age.
func (s *Store) CleanupOldJobs(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	var rows []models.Job
	err := s.hold().Find(&rows, badgerhold.Where("CreatedAt").Lt(cutoff).
		And("Status").In(models.JobStatusCompleted, models.JobStatusFailed))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindDatabase, err, "find old jobs")
	}

	deleted := 0
	for _, job := range rows {
		if err := s.hold().Delete(job.ID, &models.Job{}); err != nil {
			return deleted, apperrors.Wrap(apperrors.KindDatabase, err, "delete old job")
		}
		deleted++
	}
	return deleted, nil
}

// DeleteJob deletes a job and applies the impact policy of §4.1/§9: when
// delete_articles is true, an article is deleted iff its crawl_job_id
// still equals this job's id at the time of deletion (since crawl_job_id
// is single-valued and always reflects the most recent observer, that
// equality is exactly "no later job retained it").
func (s *Store) DeleteJob(ctx context.Context, jobID string, opts models.DeleteJobOptions) (*models.JobImpact, error) {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	wasRunning := job.Status == models.JobStatusRunning
	if wasRunning && !opts.Force {
		return nil, apperrors.New(apperrors.KindStateViolation, "cannot delete a running job without force")
	}

	var articles []models.Article
	if err := s.hold().Find(&articles, badgerhold.Where("CrawlJobID").Eq(jobID)); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "find articles tracked by job")
	}

	impact := &models.JobImpact{WasRunning: wasRunning, ArticlesAffected: len(articles)}

	for _, art := range articles {
		if opts.DeleteArticles {
			if err := s.deleteArticleAndLinks(art.ID); err != nil {
				return nil, err
			}
			impact.ArticlesDeleted++
		} else {
			art.CrawlJobID = ""
			if err := s.hold().Update(art.ID, &art); err != nil {
				return nil, apperrors.Wrap(apperrors.KindDatabase, err, "dissociate article from job")
			}
		}
	}

	if err := s.hold().Delete(jobID, &models.Job{}); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "delete job")
	}

	return impact, nil
}

func (s *Store) deleteArticleAndLinks(articleID string) error {
	var links []models.ArticleCategoryLink
	if err := s.hold().Find(&links, badgerhold.Where("ArticleID").Eq(articleID)); err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, err, "find article links")
	}
	for _, l := range links {
		if err := s.hold().Delete(l.ID, &models.ArticleCategoryLink{}); err != nil {
			return apperrors.Wrap(apperrors.KindDatabase, err, "delete article link")
		}
	}
	if err := s.hold().Delete(articleID, &models.Article{}); err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, err, "delete article")
	}
	return nil
}

func toJobPointers(rows []models.Job) []*models.Job {
	out := make([]*models.Job, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func sortByPriorityThenCreatedAsc(rows []models.Job) {
	insertionSort(rows, func(a, b models.Job) bool {
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func sortByCreatedDesc(rows []models.Job) {
	insertionSort(rows, func(a, b models.Job) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func insertionSort(rows []models.Job, less func(a, b models.Job) bool) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && less(rows[j], rows[j-1]); j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
}
