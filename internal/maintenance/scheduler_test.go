package maintenance

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/jobmanager"
	"github.com/ternarybob/newscrawler/internal/models"
	"github.com/ternarybob/newscrawler/internal/storage/badger"
)

func newTestManager(t *testing.T) (*jobmanager.Manager, *badger.Store) {
	t.Helper()
	dir, err := os.MkdirTemp("", "newscrawler-maintenance-test")
	if err != nil {
		t.Fatalf("temp dir failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	store, err := badger.New(arbor.NewLogger(), &common.BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return jobmanager.New(store, arbor.NewLogger()), store
}

func validConfig() Config {
	return Config{
		HealthMonitorCron: "*/30 * * * * *",
		CleanupCron:       "0 0 3 * * *",
		StuckJobSweepCron: "0 */15 * * * *",
		StuckThreshold:    time.Hour,
		CleanupAge:        30 * 24 * time.Hour,
	}
}

func TestNewRejectsInvalidCronExpression(t *testing.T) {
	manager, _ := newTestManager(t)
	cfg := validConfig()
	cfg.HealthMonitorCron = "not a cron expression"
	if _, err := New(manager, cfg, arbor.NewLogger()); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestNewRegistersAllThreeTasks(t *testing.T) {
	manager, _ := newTestManager(t)
	scheduler, err := New(manager, validConfig(), arbor.NewLogger())
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}
	if len(scheduler.cron.Entries()) != 3 {
		t.Fatalf("expected 3 registered cron entries, got %d", len(scheduler.cron.Entries()))
	}
}

func TestRunCleanupIsANoopWhenNothingIsAged(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, &models.Category{Name: "Tech", Keywords: []string{"go"}, IsActive: true})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	job, err := store.CreateJob(ctx, models.JobCreateParams{CategoryID: cat.ID, Priority: 0, CorrelationID: "", Metadata: nil, JobType: models.JobTypeOnDemand})
	if err != nil {
		t.Fatalf("create job failed: %v", err)
	}
	failed := models.JobStatusFailed
	done := time.Now().UTC()
	msg := "boom"
	if _, err := store.UpdateJobStatus(ctx, job.ID, interfaces.JobStatusUpdate{Status: &failed, CompletedAt: &done, ErrorMessage: &msg}); err != nil {
		t.Fatalf("transition to failed failed: %v", err)
	}

	scheduler, err := New(manager, validConfig(), arbor.NewLogger())
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}

	// runCleanup's default CleanupAge (30 days) leaves a just-failed job untouched.
	scheduler.runCleanup()

	if _, err := store.GetJob(ctx, job.ID); err != nil {
		t.Fatalf("expected recently-failed job to survive cleanup, got %v", err)
	}
}

func TestRunStuckSweepResetsStuckJobs(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, &models.Category{Name: "Tech", Keywords: []string{"go"}, IsActive: true})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	job, err := store.CreateJob(ctx, models.JobCreateParams{CategoryID: cat.ID, Priority: 0, CorrelationID: "", Metadata: nil, JobType: models.JobTypeOnDemand})
	if err != nil {
		t.Fatalf("create job failed: %v", err)
	}
	running := models.JobStatusRunning
	stale := time.Now().UTC().Add(-2 * time.Hour)
	if _, err := store.UpdateJobStatus(ctx, job.ID, interfaces.JobStatusUpdate{Status: &running, StartedAt: &stale}); err != nil {
		t.Fatalf("transition to running failed: %v", err)
	}

	cfg := validConfig()
	cfg.StuckThreshold = time.Hour
	scheduler, err := New(manager, cfg, arbor.NewLogger())
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}

	scheduler.runStuckSweep()

	reloaded, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Status != models.JobStatusFailed {
		t.Fatalf("expected stuck job reset to failed, got %s", reloaded.Status)
	}
}
