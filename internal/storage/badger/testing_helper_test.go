package badger

import (
	"os"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/common"
)

// newTestStore opens a Store rooted in a fresh temp directory, matching the
// teacher's job_storage_test.go approach of exercising real badgerhold
// rather than a mock.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "newscrawler-badger-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := New(arbor.NewLogger(), &common.BadgerConfig{Path: dir})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
