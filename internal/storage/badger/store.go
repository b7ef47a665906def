package badger

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/queue"
	"github.com/timshannon/badgerhold/v4"
)

// Store implements interfaces.Store over a single BadgerDB/badgerhold
// connection, using the same badgerhold query-building idiom throughout.
// upsertMu serializes
// UpsertArticleWithLinks: badgerhold has no multi-document transactions,
// so the atomic-per-article guarantee is realized by serializing
// upserts in-process.
type Store struct {
	db        *BadgerDB
	logger    arbor.ILogger
	upsertMu  sync.Mutex
}

var _ interfaces.Store = (*Store)(nil)

// New builds a Store from configuration, opening (or creating) the
// Badger database directory.
func New(logger arbor.ILogger, config *common.BadgerConfig) (*Store, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) hold() *badgerhold.Store {
	return s.db.Store()
}

// Close closes the underlying Badger connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewQueueManager builds a named Badger-backed queue sharing this store's
// connection.
func (s *Store) NewQueueManager(queueName string, visibilityTimeout time.Duration, maxReceive int) (*queue.BadgerManager, error) {
	return queue.NewBadgerManager(s.hold(), queueName, visibilityTimeout, maxReceive)
}
