// Package crawlworker executes one job end to end: query construction,
// bounded-concurrency candidate extraction, deduplication, keyword
// matching, relevance scoring, and multi-category linking.
package crawlworker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/apperrors"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/dedupe"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/keywordmatcher"
	"github.com/ternarybob/newscrawler/internal/linker"
	"github.com/ternarybob/newscrawler/internal/models"
)

const (
	minRelevanceThreshold = 0.3
	maxDateWindow         = models.MaxJobDateWindow
	retryTaskKind         = "crawl"
	defaultRetryQueueName = "crawl_queue"
)

// Enqueuer routes a job back onto a named dispatch queue. It is satisfied
// by *dispatcher.Dispatcher; crawlworker depends only on this narrow
// interface so it need not import the dispatcher package.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string, queueName string, priority int) error
}

// Config parameterizes one CrawlWorker.
type Config struct {
	DefaultMaxResults int
	MaxResultsUpperBound int
	ExecutionTimeout  time.Duration
	ConcurrentBrowsers int
	TabsPerBrowser     int
	RetryQueueName     string
}

// Worker executes jobs against a Store via an Extractor.
type Worker struct {
	store     interfaces.Store
	extractor interfaces.Extractor
	cfg       Config
	logger    arbor.ILogger
	enqueuer  Enqueuer
}

// New builds a CrawlWorker.
func New(store interfaces.Store, extractor interfaces.Extractor, cfg Config, logger arbor.ILogger) *Worker {
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 1800 * time.Second
	}
	if cfg.ConcurrentBrowsers <= 0 {
		cfg.ConcurrentBrowsers = 5
	}
	if cfg.TabsPerBrowser <= 0 {
		cfg.TabsPerBrowser = 10
	}
	if cfg.RetryQueueName == "" {
		cfg.RetryQueueName = defaultRetryQueueName
	}
	return &Worker{store: store, extractor: extractor, cfg: cfg, logger: logger}
}

// SetEnqueuer registers the dispatch queue a retried job is re-enqueued
// onto. Until called, failed jobs are never retried even if retryable.
func (w *Worker) SetEnqueuer(e Enqueuer) {
	w.enqueuer = e
}

// Run executes jobID's pipeline to completion, applying the hard
// execution-timeout ceiling.
func (w *Worker) Run(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.ExecutionTimeout)
	defer cancel()

	job, err := w.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.JobStatusPending {
		return apperrors.New(apperrors.KindStateViolation, "job is not pending: "+jobID)
	}

	now := time.Now().UTC()
	externalTaskID := common.NewID("task")
	status := models.JobStatusRunning
	started := now
	if ok, err := w.store.UpdateJobStatus(ctx, jobID, interfaces.JobStatusUpdate{
		Status:         &status,
		ExternalTaskID: &externalTaskID,
		StartedAt:      &started,
	}); err != nil || !ok {
		if err != nil {
			return err
		}
		return apperrors.New(apperrors.KindNotFound, "job disappeared before start: "+jobID)
	}
	job.ExternalTaskID = externalTaskID
	job.StartedAt = &started

	w.logger.Info().Str("job_id", jobID).Str("category_id", job.CategoryID).Msg("crawl job started")

	category, err := w.store.GetCategory(ctx, job.CategoryID)
	if err != nil || !category.IsActive {
		return w.complete(ctx, jobID, 0, 0, "")
	}

	query, err := keywordmatcher.BuildQueryWithExclusions(category.Keywords, category.ExcludeKeywords)
	if err != nil {
		return w.fail(ctx, job, err)
	}

	maxResults := job.MaxResults
	if maxResults <= 0 {
		maxResults = w.cfg.DefaultMaxResults
	}
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > w.cfg.MaxResultsUpperBound {
		maxResults = w.cfg.MaxResultsUpperBound
	}

	startDate, endDate := effectiveWindow(job, category, now)

	candidates, err := w.extractor.Search(ctx, interfaces.ExtractRequest{
		Query:      query,
		Language:   category.Language,
		Country:    category.Country,
		StartDate:  startDate,
		EndDate:    endDate,
		MaxResults: maxResults,
	})
	if err != nil {
		if isCancellation(ctx, err) {
			return w.fail(ctx, job, apperrors.New(apperrors.KindTimeout, "cancelled"))
		}
		return w.fail(ctx, job, err)
	}

	activeCategories, err := w.store.GetActiveCategories(ctx)
	if err != nil {
		return w.fail(ctx, job, err)
	}
	others := make([]*models.Category, 0, len(activeCategories))
	for _, c := range activeCategories {
		if c.ID != category.ID {
			others = append(others, c)
		}
	}

	extracted := w.extractConcurrently(ctx, candidates)
	if ctx.Err() != nil {
		return w.fail(ctx, job, apperrors.New(apperrors.KindTimeout, cancellationMessage(ctx)))
	}

	articlesFound := 0
	articlesSaved := 0

	for _, full := range extracted {
		if !full.HasMinimumFields() {
			continue
		}
		articlesFound++

		if ctx.Err() != nil {
			return w.fail(ctx, job, apperrors.New(apperrors.KindTimeout, cancellationMessage(ctx)))
		}

		matched := keywordmatcher.Match(full.Title, full.Content, category.Keywords)
		primaryRelevance := keywordmatcher.Relevance(full.Title, full.Content, matched)

		links := []models.CategoryLink{{CategoryID: category.ID, Relevance: primaryRelevance}}
		links = append(links, linker.FindMatches(full.Title, full.Content, others, minRelevanceThreshold)...)

		article := &models.Article{
			Title:           full.Title,
			Content:         full.Content,
			Author:          full.Author,
			PublishDate:     full.PublishDate,
			ImageURL:        full.ImageURL,
			SourceURL:       full.SourceURL,
			URLHash:         dedupe.URLHash(full.SourceURL),
			ContentHash:     dedupe.ContentHash(full.Content),
			KeywordsMatched: matched,
			RelevanceScore:  primaryRelevance,
			CrawlJobID:      jobID,
		}

		outcome, _, err := w.store.UpsertArticleWithLinks(ctx, article, links)
		if err != nil {
			w.logger.Warn().Err(err).Str("job_id", jobID).Str("url", full.SourceURL).Msg("failed to upsert article")
			continue
		}
		if outcome == models.UpsertInserted || outcome == models.UpsertUpdated {
			articlesSaved++
		}
	}

	return w.complete(ctx, jobID, articlesFound, articlesSaved, externalTaskID)
}

func (w *Worker) extractConcurrently(ctx context.Context, candidates []models.Candidate) []models.Candidate {
	pool := w.cfg.ConcurrentBrowsers * w.cfg.TabsPerBrowser
	if pool <= 0 {
		pool = 50
	}
	sem := make(chan struct{}, pool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make([]models.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		candidate := c
		wg.Add(1)
		sem <- struct{}{}
		common.SafeGoWithContext(context.WithoutCancel(ctx), w.logger, "extract-candidate", func() {
			defer wg.Done()
			defer func() { <-sem }()

			full, err := w.extractor.ExtractFull(ctx, candidate)
			if err != nil {
				w.logger.Debug().Err(err).Str("url", candidate.SourceURL).Msg("candidate extraction failed")
				return
			}
			mu.Lock()
			results = append(results, full)
			mu.Unlock()
		})
	}
	wg.Wait()
	return results
}

func (w *Worker) complete(ctx context.Context, jobID string, found, saved int, externalTaskID string) error {
	status := models.JobStatusCompleted
	completed := time.Now().UTC()
	update := interfaces.JobStatusUpdate{
		Status:        &status,
		CompletedAt:   &completed,
		ArticlesFound: &found,
		ArticlesSaved: &saved,
	}
	if _, err := w.store.UpdateJobStatus(context.Background(), jobID, update); err != nil {
		return err
	}
	w.logger.Info().Str("job_id", jobID).Int("articles_found", found).Int("articles_saved", saved).Msg("crawl job completed")
	_ = externalTaskID
	_ = ctx
	return nil
}

// fail marks a job failed. When cause is retryable and the job hasn't
// exhausted its attempt budget, it is re-enqueued with a computed backoff
// instead of being finalized; otherwise it is finalized as failed and an
// alert-level log is raised.
func (w *Worker) fail(ctx context.Context, job *models.Job, cause error) error {
	jobID := job.ID
	message := cause.Error()

	if apperrors.IsRetryable(cause) && job.RetryCount+1 < apperrors.MaxAttempts(retryTaskKind) {
		return w.scheduleRetry(jobID, job, cause, message)
	}

	status := models.JobStatusFailed
	completed := time.Now().UTC()
	if _, err := w.store.UpdateJobStatus(context.Background(), jobID, interfaces.JobStatusUpdate{
		Status:       &status,
		CompletedAt:  &completed,
		ErrorMessage: &message,
	}); err != nil {
		return err
	}
	w.logger.Error().Str("job_id", jobID).Str("error", message).Int("retry_count", job.RetryCount).Msg("crawl job failed permanently, alert")
	_ = ctx
	return nil
}

func (w *Worker) scheduleRetry(jobID string, job *models.Job, cause error, message string) error {
	nextRetryCount := job.RetryCount + 1
	delay := apperrors.RetryDelay(apperrors.KindOf(cause), job.RetryCount)

	pending := models.JobStatusPending
	if _, err := w.store.UpdateJobStatus(context.Background(), jobID, interfaces.JobStatusUpdate{
		Status:         &pending,
		ClearStartedAt: true,
		RetryCount:     &nextRetryCount,
		ErrorMessage:   &message,
	}); err != nil {
		return err
	}

	w.logger.Warn().Str("job_id", jobID).Str("error", message).Int("retry_count", nextRetryCount).Dur("retry_delay", delay).Msg("crawl job failed, retry scheduled")

	if w.enqueuer == nil {
		w.logger.Warn().Str("job_id", jobID).Msg("no enqueuer registered, retry left pending without dispatch")
		return nil
	}
	queueName := w.cfg.RetryQueueName
	priority := job.Priority
	time.AfterFunc(delay, func() {
		if err := w.enqueuer.Enqueue(context.Background(), jobID, queueName, priority); err != nil {
			w.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to re-enqueue retried job")
		}
	})
	return nil
}

func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}

func cancellationMessage(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "cancelled"
	}
	return "cancelled"
}

// effectiveWindow intersects the job's explicit date range (capped at 90
// days) with the category's crawl_period relative to now.
func effectiveWindow(job *models.Job, category *models.Category, now time.Time) (*time.Time, *time.Time) {
	var start, end *time.Time

	if job.StartDate != nil {
		start = job.StartDate
	}
	if job.EndDate != nil {
		end = job.EndDate
	}

	if category.CrawlPeriod != "" {
		if periodStart, ok := parseCrawlPeriod(category.CrawlPeriod, now); ok {
			if start == nil || periodStart.After(*start) {
				start = &periodStart
			}
		}
	}

	if start != nil && end != nil && end.Sub(*start) > maxDateWindow {
		capped := start.Add(maxDateWindow)
		end = &capped
	}

	return start, end
}

func parseCrawlPeriod(period string, now time.Time) (time.Time, bool) {
	if len(period) < 2 {
		return time.Time{}, false
	}
	unit := period[len(period)-1]
	numPart := period[:len(period)-1]
	var n int
	for _, r := range numPart {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
		n = n*10 + int(r-'0')
	}
	switch unit {
	case 'h':
		return now.Add(-time.Duration(n) * time.Hour), true
	case 'd':
		return now.AddDate(0, 0, -n), true
	case 'w':
		return now.AddDate(0, 0, -7*n), true
	case 'm':
		return now.AddDate(0, -n, 0), true
	case 'y':
		return now.AddDate(-n, 0, 0), true
	default:
		return time.Time{}, false
	}
}
