// Package dispatcher runs the bounded worker pool that pulls pending
// jobs off three named, Badger-backed queues and hands each to a
// CrawlWorker.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/queue"
	"golang.org/x/time/rate"
)

const (
	QueueDefault     = "default"
	QueueCrawl       = "crawl_queue"
	QueueMaintenance = "maintenance_queue"
)

// Executor runs one queued job to completion.
type Executor interface {
	Run(ctx context.Context, jobID string) error
}

type namedQueue struct {
	name    string
	manager *queue.BadgerManager
	limiter *rate.Limiter
}

// Dispatcher is the bounded worker pool. Each worker polls the named
// queues in priority order (crawl, maintenance, default) and executes
// whatever it receives via the registered Executor.
type Dispatcher struct {
	queues     []*namedQueue
	executor   Executor
	logger     arbor.ILogger
	numWorkers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config parameterizes queue rate limits and pool size.
type Config struct {
	MaxConcurrentJobs      int
	CrawlRateLimitPerMin   int
	MaintenanceRatePerHour int
	DefaultRateLimitPerMin int
	VisibilityTimeout      time.Duration
	MaxReceive             int

	// PriorityLookup, when set, is consulted by each queue's Receive to
	// rank pending messages by a job's current priority (priority desc,
	// created_at asc) instead of the priority it was enqueued with, so a
	// priority change applied after enqueue still affects pick order.
	PriorityLookup func(jobID string) int
}

// QueueOpener builds a named queue manager sharing the store's connection.
type QueueOpener func(name string, visibilityTimeout time.Duration, maxReceive int) (*queue.BadgerManager, error)

// New builds a Dispatcher with its three named queues opened via opener.
func New(opener QueueOpener, executor Executor, cfg Config, logger arbor.ILogger) (*Dispatcher, error) {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 10
	}
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = 5 * time.Minute
	}
	if cfg.MaxReceive <= 0 {
		cfg.MaxReceive = 3
	}

	crawlMgr, err := opener(QueueCrawl, cfg.VisibilityTimeout, cfg.MaxReceive)
	if err != nil {
		return nil, err
	}
	maintMgr, err := opener(QueueMaintenance, cfg.VisibilityTimeout, cfg.MaxReceive)
	if err != nil {
		return nil, err
	}
	defaultMgr, err := opener(QueueDefault, cfg.VisibilityTimeout, cfg.MaxReceive)
	if err != nil {
		return nil, err
	}

	if cfg.PriorityLookup != nil {
		crawlMgr.SetPriorityLookup(cfg.PriorityLookup)
		maintMgr.SetPriorityLookup(cfg.PriorityLookup)
		defaultMgr.SetPriorityLookup(cfg.PriorityLookup)
	}

	crawlRate := cfg.CrawlRateLimitPerMin
	if crawlRate <= 0 {
		crawlRate = 20
	}
	maintRate := cfg.MaintenanceRatePerHour
	if maintRate <= 0 {
		maintRate = 1
	}
	defaultRate := cfg.DefaultRateLimitPerMin
	if defaultRate <= 0 {
		defaultRate = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		queues: []*namedQueue{
			{name: QueueCrawl, manager: crawlMgr, limiter: rate.NewLimiter(rate.Limit(float64(crawlRate)/60.0), crawlRate)},
			{name: QueueMaintenance, manager: maintMgr, limiter: rate.NewLimiter(rate.Limit(float64(maintRate)/3600.0), 1)},
			{name: QueueDefault, manager: defaultMgr, limiter: rate.NewLimiter(rate.Limit(float64(defaultRate)/60.0), defaultRate)},
		},
		executor:   executor,
		logger:     logger,
		numWorkers: cfg.MaxConcurrentJobs,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Enqueue routes a job onto the named queue (QueueCrawl/QueueMaintenance/QueueDefault),
// stamping the message with the job's priority so Receive can rank it.
func (d *Dispatcher) Enqueue(ctx context.Context, jobID string, queueName string, priority int) error {
	for _, q := range d.queues {
		if q.name == queueName {
			return q.manager.Enqueue(ctx, queue.Message{JobID: jobID, QueueName: queueName, Priority: priority})
		}
	}
	return d.queues[len(d.queues)-1].manager.Enqueue(ctx, queue.Message{JobID: jobID, QueueName: QueueDefault, Priority: priority})
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	d.logger.Info().Int("workers", d.numWorkers).Msg("dispatcher starting worker pool")
	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		workerID := i
		go d.runWorker(workerID)
	}
}

// Stop signals all workers to drain and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.logger.Info().Msg("dispatcher stopping worker pool")
	d.cancel()
	d.wg.Wait()
	d.logger.Info().Msg("dispatcher worker pool stopped")
}

func (d *Dispatcher) runWorker(workerID int) {
	defer d.wg.Done()
	idle := time.NewTicker(250 * time.Millisecond)
	defer idle.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		if d.processOne(workerID) {
			continue
		}

		select {
		case <-d.ctx.Done():
			return
		case <-idle.C:
		}
	}
}

// processOne polls queues in priority order and runs at most one job.
// Returns true if a job was processed.
func (d *Dispatcher) processOne(workerID int) bool {
	for _, q := range d.queues {
		msg, deleteFn, err := q.manager.Receive(d.ctx)
		if err != nil {
			continue
		}

		if err := q.limiter.Wait(d.ctx); err != nil {
			return true
		}

		d.logger.Info().Int("worker_id", workerID).Str("job_id", msg.JobID).Str("queue", q.name).Msg("dispatching job")

		if err := d.executor.Run(d.ctx, msg.JobID); err != nil {
			d.logger.Error().Err(err).Str("job_id", msg.JobID).Msg("job execution returned error")
		}

		if err := deleteFn(); err != nil {
			d.logger.Error().Err(err).Str("job_id", msg.JobID).Msg("failed to remove message from queue")
		}
		return true
	}
	return false
}
