// Package schedulescanner implements the periodic tick that finds due
// scheduled categories and creates their jobs. It intentionally uses a
// plain time.Ticker rather than robfig/cron: the schedule's only cadence
// is the fixed interval, unlike the ambient maintenance tasks which run
// on cron expressions.
package schedulescanner

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/dispatcher"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/models"
)

// TickResult reports the outcome of one scanner tick.
type TickResult struct {
	CategoriesDue     int
	JobsCreated       int
	FailedCategoryIDs []string
}

// Scanner periodically creates pending jobs for due scheduled categories.
type Scanner struct {
	store      interfaces.Store
	dispatcher *dispatcher.Dispatcher
	interval   time.Duration
	logger     arbor.ILogger

	stop chan struct{}
	done chan struct{}
}

// New builds a Scanner with the given tick interval (defaults to 60s).
func New(store interfaces.Store, disp *dispatcher.Dispatcher, interval time.Duration, logger arbor.ILogger) *Scanner {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Scanner{
		store:      store,
		dispatcher: disp,
		interval:   interval,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the ticker loop in a background goroutine until Stop is called.
func (s *Scanner) Start() {
	common.SafeGo(s.logger, "schedule-scanner", func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		defer close(s.done)

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				result := s.Tick(context.Background())
				if len(result.FailedCategoryIDs) > 0 {
					s.logger.Warn().
						Strs("failed_category_ids", result.FailedCategoryIDs).
						Int("jobs_created", result.JobsCreated).
						Msg("schedule scanner tick completed with errors")
				} else if result.JobsCreated > 0 {
					s.logger.Info().
						Int("categories_due", result.CategoriesDue).
						Int("jobs_created", result.JobsCreated).
						Msg("schedule scanner tick completed")
				}
			}
		}
	})
}

// Stop halts the ticker loop and waits for it to exit.
func (s *Scanner) Stop() {
	close(s.stop)
	<-s.done
}

// Tick performs one scan: find due categories, create+enqueue a job for
// each, and advance their schedule timing. Per-category failures are
// isolated and reported rather than aborting the tick.
func (s *Scanner) Tick(ctx context.Context) TickResult {
	now := time.Now().UTC()
	result := TickResult{}

	due, err := s.store.GetDueScheduledCategories(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query due scheduled categories")
		return result
	}
	result.CategoriesDue = len(due)

	for _, category := range due {
		if err := s.processCategory(ctx, category, now); err != nil {
			s.logger.Error().Err(err).Str("category_id", category.ID).Msg("schedule tick failed for category")
			result.FailedCategoryIDs = append(result.FailedCategoryIDs, category.ID)
			continue
		}
		result.JobsCreated++
	}

	return result
}

func (s *Scanner) processCategory(ctx context.Context, category *models.Category, now time.Time) error {
	job, err := s.store.CreateJob(ctx, models.JobCreateParams{
		CategoryID: category.ID,
		Priority:   0,
		Metadata:   map[string]any{"triggered_by": "scanner"},
		JobType:    models.JobTypeScheduled,
	})
	if err != nil {
		return err
	}

	if err := s.dispatcher.Enqueue(ctx, job.ID, dispatcher.QueueCrawl, job.Priority); err != nil {
		return err
	}

	interval := time.Duration(category.ScheduleIntervalMin) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	nextRun := now.Add(interval)

	return s.store.UpdateScheduleTiming(ctx, category.ID, now, nextRun)
}
