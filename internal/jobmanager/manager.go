// Package jobmanager handles job lifecycle operations that sit outside
// the execution pipeline: priority updates, impact-aware deletion, and
// the stuck-job detection/reset sweep.
package jobmanager

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/apperrors"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/models"
)

// Manager wraps a Store with the job-management operations of §4.7.
type Manager struct {
	store  interfaces.Store
	logger arbor.ILogger
}

// New builds a Manager over the given Store.
func New(store interfaces.Store, logger arbor.ILogger) *Manager {
	return &Manager{store: store, logger: logger}
}

// UpdatePriority changes a pending job's priority. Rejected on running jobs.
func (m *Manager) UpdatePriority(ctx context.Context, jobID string, priority int) error {
	if err := m.rejectIfRunning(ctx, jobID); err != nil {
		return err
	}
	_, err := m.store.UpdateJobStatus(ctx, jobID, interfaces.JobStatusUpdate{Priority: &priority})
	return err
}

// UpdateJob applies an arbitrary partial update to a job. Rejected on running jobs.
func (m *Manager) UpdateJob(ctx context.Context, jobID string, fields interfaces.JobStatusUpdate) (bool, error) {
	if err := m.rejectIfRunning(ctx, jobID); err != nil {
		return false, err
	}
	return m.store.UpdateJobStatus(ctx, jobID, fields)
}

// rejectIfRunning returns a KindStateViolation error when the job is
// currently running, since an in-flight crawl must not have its priority
// or fields rewritten out from under it.
func (m *Manager) rejectIfRunning(ctx context.Context, jobID string) error {
	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusRunning {
		return apperrors.New(apperrors.KindStateViolation, "cannot update a running job: "+jobID)
	}
	return nil
}

// DeleteJob deletes a job and, per opts, its exclusively-owned articles.
func (m *Manager) DeleteJob(ctx context.Context, jobID string, opts models.DeleteJobOptions) (*models.JobImpact, error) {
	impact, err := m.store.DeleteJob(ctx, jobID, opts)
	if err != nil {
		return nil, err
	}
	m.logger.Info().
		Str("job_id", jobID).
		Int("articles_affected", impact.ArticlesAffected).
		Int("articles_deleted", impact.ArticlesDeleted).
		Bool("was_running", impact.WasRunning).
		Msg("job deleted")
	return impact, nil
}

// ResetStuckJobs finds jobs stuck in running past threshold and resets
// them to failed, logging an alert whenever any are found.
func (m *Manager) ResetStuckJobs(ctx context.Context, threshold time.Duration) (int, error) {
	reset, err := m.store.ResetStuckJobs(ctx, threshold)
	if err != nil {
		return 0, err
	}
	if reset > 0 {
		m.logger.Warn().
			Int("jobs_reset", reset).
			Dur("threshold", threshold).
			Msg("stuck jobs detected and reset to failed")
	}
	return reset, nil
}

// CleanupOldJobs removes completed/failed jobs older than age.
func (m *Manager) CleanupOldJobs(ctx context.Context, age time.Duration) (int, error) {
	deleted, err := m.store.CleanupOldJobs(ctx, age)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		m.logger.Info().Int("jobs_deleted", deleted).Msg("cleanup swept old jobs")
	}
	return deleted, nil
}
