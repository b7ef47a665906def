package server

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/app"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/dispatcher"
	"github.com/ternarybob/newscrawler/internal/handlers"
	"github.com/ternarybob/newscrawler/internal/jobmanager"
	"github.com/ternarybob/newscrawler/internal/models"
	"github.com/ternarybob/newscrawler/internal/queue"
	"github.com/ternarybob/newscrawler/internal/storage/badger"
	"github.com/timshannon/badgerhold/v4"
)

type noopExecutor struct{}

func (noopExecutor) Run(ctx context.Context, jobID string) error { return nil }

// newTestServer assembles an *app.App by hand, wiring a real Badger store
// and a real Badger-backed dispatcher but skipping extractor.New (which
// would otherwise spin up a chromedp browser pool with no browser present).
func newTestServer(t *testing.T) *Server {
	t.Helper()

	storeDir, err := os.MkdirTemp("", "newscrawler-server-store-test")
	if err != nil {
		t.Fatalf("temp dir failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(storeDir) })
	store, err := badger.New(arbor.NewLogger(), &common.BadgerConfig{Path: storeDir})
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	queueDir, err := os.MkdirTemp("", "newscrawler-server-queue-test")
	if err != nil {
		t.Fatalf("temp dir failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(queueDir) })
	opts := badgerhold.DefaultOptions
	opts.Dir = queueDir
	opts.ValueDir = queueDir
	qStore, err := badgerhold.Open(opts)
	if err != nil {
		t.Fatalf("open queue badgerhold failed: %v", err)
	}
	t.Cleanup(func() { qStore.Close() })

	opener := func(name string, visibilityTimeout time.Duration, maxReceive int) (*queue.BadgerManager, error) {
		return queue.NewBadgerManager(qStore, name, visibilityTimeout, maxReceive)
	}
	disp, err := dispatcher.New(opener, noopExecutor{}, dispatcher.Config{MaxConcurrentJobs: 1}, arbor.NewLogger())
	if err != nil {
		t.Fatalf("new dispatcher failed: %v", err)
	}
	jobs := jobmanager.New(store, arbor.NewLogger())

	cfg := &common.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 0

	application := &app.App{
		Config:          cfg,
		Logger:          arbor.NewLogger(),
		Store:           store,
		Dispatcher:      disp,
		JobManager:      jobs,
		APIHandler:      handlers.NewAPIHandler(store, arbor.NewLogger()),
		CategoryHandler: handlers.NewCategoryHandler(store, arbor.NewLogger()),
		JobHandler:      handlers.NewJobHandler(store, jobs, disp, arbor.NewLogger()),
		ArticleHandler:  handlers.NewArticleHandler(store, arbor.NewLogger()),
	}

	return New(application)
}

func seedServerCategory(t *testing.T, store *badger.Store, name string) *models.Category {
	t.Helper()
	cat, err := store.CreateCategory(context.Background(), &models.Category{
		Name:     name,
		Keywords: []string{"go"},
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed category failed: %v", err)
	}
	return cat
}
