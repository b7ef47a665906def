// -----------------------------------------------------------------------
// Last Modified: Friday, 8th November 2025 4:00:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/crawlworker"
	"github.com/ternarybob/newscrawler/internal/dispatcher"
	"github.com/ternarybob/newscrawler/internal/extractor"
	"github.com/ternarybob/newscrawler/internal/handlers"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/jobmanager"
	"github.com/ternarybob/newscrawler/internal/maintenance"
	"github.com/ternarybob/newscrawler/internal/schedulescanner"
	"github.com/ternarybob/newscrawler/internal/storage/badger"
)

// App holds all application components and dependencies. Every component
// is wired explicitly here and injected into its dependents; nothing is
// reached via a package-level global.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Store      interfaces.Store
	Extractor  interfaces.Extractor
	Worker     *crawlworker.Worker
	Dispatcher *dispatcher.Dispatcher
	JobManager *jobmanager.Manager
	Scanner    *schedulescanner.Scanner
	Maintenance *maintenance.Scheduler

	APIHandler      *handlers.APIHandler
	CategoryHandler *handlers.CategoryHandler
	JobHandler      *handlers.JobHandler
	ArticleHandler  *handlers.ArticleHandler
}

// New initializes the application with all dependencies: storage first,
// then the execution pipeline built on top of it, then the schedulers
// that drive the pipeline.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := app.initPipeline(); err != nil {
		return nil, fmt.Errorf("failed to initialize crawl pipeline: %w", err)
	}

	app.Scanner = schedulescanner.New(
		app.Store,
		app.Dispatcher,
		time.Duration(cfg.Schedule.ScanIntervalSeconds)*time.Second,
		logger,
	)

	maintCfg := maintenance.Config{
		HealthMonitorCron: cfg.Schedule.HealthMonitorCron,
		CleanupCron:       cfg.Schedule.CleanupCron,
		StuckJobSweepCron: cfg.Schedule.StuckJobSweepCron,
		StuckThreshold:    time.Duration(cfg.Jobs.StuckThresholdHours) * time.Hour,
		CleanupAge:        time.Duration(cfg.Jobs.CleanupDays) * 24 * time.Hour,
	}
	maintScheduler, err := maintenance.New(app.JobManager, maintCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize maintenance scheduler: %w", err)
	}
	app.Maintenance = maintScheduler

	app.Dispatcher.Start()
	app.Scanner.Start()
	app.Maintenance.Start()

	logger.Info().
		Int("max_concurrent_jobs", cfg.Dispatcher.MaxConcurrentJobs).
		Int("scan_interval_seconds", cfg.Schedule.ScanIntervalSeconds).
		Msg("application initialization complete")

	return app, nil
}

// initStore opens the Badger-backed store.
func (a *App) initStore() error {
	store, err := badger.New(a.Logger, &a.Config.Store.Badger)
	if err != nil {
		return err
	}
	a.Store = store
	a.Logger.Info().
		Str("path", a.Config.Store.Badger.Path).
		Msg("store initialized")
	return nil
}

// initPipeline wires the extractor, crawl worker, dispatcher and job
// manager that together execute crawl jobs pulled off the queue.
func (a *App) initPipeline() error {
	cfg := a.Config

	ext, err := extractor.New(extractor.Config{
		ProviderSearchURL:           "https://www.google.com/search",
		UserAgent:                   cfg.Crawler.UserAgent,
		RequestTimeout:              cfg.Crawler.RequestTimeout,
		RateLimitPerMinute:          cfg.Crawler.RateLimitPerMinute,
		ResolveRedirectsWithBrowser: true,
		BrowserInstances:            cfg.Crawler.ExtractorBrowsers,
		BrowserTabsPerInstance:      cfg.Crawler.ExtractorTabs,
		RedirectWaitTime:            500 * time.Millisecond,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}
	a.Extractor = ext

	a.Worker = crawlworker.New(a.Store, a.Extractor, crawlworker.Config{
		DefaultMaxResults:    cfg.Crawler.DefaultMaxResults,
		MaxResultsUpperBound: cfg.Crawler.MaxResultsUpperBound,
		ExecutionTimeout:     time.Duration(cfg.Jobs.ExecutionTimeoutSeconds) * time.Second,
		ConcurrentBrowsers:   cfg.Crawler.ExtractorBrowsers,
		TabsPerBrowser:       cfg.Crawler.ExtractorTabs,
	}, a.Logger)

	visibilityTimeout, err := time.ParseDuration(cfg.Dispatcher.QueueVisibilityTimeout)
	if err != nil {
		visibilityTimeout = 5 * time.Minute
	}

	store, ok := a.Store.(*badger.Store)
	if !ok {
		return fmt.Errorf("store does not support queue creation")
	}

	disp, err := dispatcher.New(store.NewQueueManager, a.Worker, dispatcher.Config{
		MaxConcurrentJobs:      cfg.Dispatcher.MaxConcurrentJobs,
		CrawlRateLimitPerMin:   cfg.Dispatcher.CrawlRateLimitPerMinute,
		MaintenanceRatePerHour: cfg.Dispatcher.MaintenanceRatePerHour,
		DefaultRateLimitPerMin: cfg.Dispatcher.DefaultRateLimitPerMin,
		VisibilityTimeout:      visibilityTimeout,
		MaxReceive:             cfg.Dispatcher.QueueMaxReceive,
		PriorityLookup: func(jobID string) int {
			job, err := a.Store.GetJob(context.Background(), jobID)
			if err != nil {
				return 0
			}
			return job.Priority
		},
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	a.Dispatcher = disp
	a.Worker.SetEnqueuer(a.Dispatcher)

	a.JobManager = jobmanager.New(a.Store, a.Logger)

	a.APIHandler = handlers.NewAPIHandler(a.Store, a.Logger)
	a.CategoryHandler = handlers.NewCategoryHandler(a.Store, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.Store, a.JobManager, a.Dispatcher, a.Logger)
	a.ArticleHandler = handlers.NewArticleHandler(a.Store, a.Logger)

	return nil
}

// Close shuts down all application resources in reverse dependency order.
func (a *App) Close() error {
	if a.Maintenance != nil {
		a.Maintenance.Stop()
	}
	if a.Scanner != nil {
		a.Scanner.Stop()
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	if ext, ok := a.Extractor.(*extractor.Extractor); ok {
		ext.Close()
	}

	a.Logger.Info().Msg("flushing logs")
	common.Stop()

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
		a.Logger.Info().Msg("store closed")
	}
	return nil
}
