// Package maintenance runs the ambient cron-scheduled upkeep tasks
// (health monitor, job cleanup, stuck-job sweep) that sit alongside the
// fixed-cadence schedulescanner.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/jobmanager"
)

// Scheduler wraps a robfig/cron instance registered with the three
// maintenance tasks.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *jobmanager.Manager
	logger arbor.ILogger

	stuckThreshold time.Duration
	cleanupAge     time.Duration
}

// Config parameterizes cron expressions and maintenance thresholds.
type Config struct {
	HealthMonitorCron string
	CleanupCron       string
	StuckJobSweepCron string
	StuckThreshold    time.Duration
	CleanupAge        time.Duration
}

// New builds a Scheduler registered with health/cleanup/stuck-sweep jobs.
func New(jobs *jobmanager.Manager, cfg Config, logger arbor.ILogger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser))

	s := &Scheduler{
		cron:           c,
		jobs:           jobs,
		logger:         logger,
		stuckThreshold: cfg.StuckThreshold,
		cleanupAge:     cfg.CleanupAge,
	}

	if _, err := c.AddFunc(cfg.HealthMonitorCron, s.runHealthMonitor); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(cfg.CleanupCron, s.runCleanup); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(cfg.StuckJobSweepCron, s.runStuckSweep); err != nil {
		return nil, err
	}

	return s, nil
}

// Start begins the cron scheduler's background goroutine.
func (s *Scheduler) Start() {
	s.logger.Info().Msg("maintenance scheduler starting")
	s.cron.Start()
}

// Stop halts the cron scheduler, waiting for any in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("maintenance scheduler stopped")
}

func (s *Scheduler) runHealthMonitor() {
	s.logger.Debug().Msg("health monitor tick")
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.jobs.CleanupOldJobs(ctx, s.cleanupAge); err != nil {
		s.logger.Error().Err(err).Msg("cleanup task failed")
	}
}

func (s *Scheduler) runStuckSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.jobs.ResetStuckJobs(ctx, s.stuckThreshold); err != nil {
		s.logger.Error().Err(err).Msg("stuck job sweep failed")
	}
}
