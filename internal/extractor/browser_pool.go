package extractor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// browserPool manages a pool of chromedp browser contexts used to resolve
// JS-rendered redirect URLs, adapted from the crawler service's
// round-robin ChromeDP pool.
type browserPool struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	maxInstances     int
	currentIndex     int
	logger           arbor.ILogger
	userAgent        string
	initialized      bool
}

type browserPoolConfig struct {
	Instances      int
	UserAgent      string
	RequestTimeout time.Duration
}

func newBrowserPool(logger arbor.ILogger) *browserPool {
	return &browserPool{logger: logger}
}

func (p *browserPool) init(cfg browserPoolConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if cfg.Instances <= 0 {
		return fmt.Errorf("browser pool instances must be greater than 0, got: %d", cfg.Instances)
	}

	p.maxInstances = cfg.Instances
	p.userAgent = cfg.UserAgent
	p.browsers = make([]context.Context, 0, cfg.Instances)
	p.browserCancels = make([]context.CancelFunc, 0, cfg.Instances)
	p.allocatorCancels = make([]context.CancelFunc, 0, cfg.Instances)

	successCount := 0
	var lastErr error
	for i := 0; i < cfg.Instances; i++ {
		if err := p.createInstance(i, cfg); err != nil {
			lastErr = err
			p.logger.Warn().Err(err).Int("browser_index", i).Msg("failed to create browser instance")
			continue
		}
		successCount++
	}
	if successCount == 0 {
		p.cleanup()
		return fmt.Errorf("failed to create any browser instances: %w", lastErr)
	}
	p.maxInstances = successCount
	p.initialized = true
	p.logger.Info().Int("browsers", successCount).Msg("extractor browser pool initialized")
	return nil
}

func (p *browserPool) createInstance(index int, cfg browserPoolConfig) error {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	testCtx, testCancel := context.WithTimeout(browserCtx, timeout)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return err
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)
	return nil
}

// resolve navigates to targetURL and returns the final URL after any
// client-side redirects have settled.
func (p *browserPool) resolve(ctx context.Context, targetURL string) (string, error) {
	browserCtx, release := p.acquire()
	defer release()

	if browserCtx == nil {
		return targetURL, fmt.Errorf("extractor browser pool not initialized")
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()
	tabCtx, cancel = context.WithTimeout(tabCtx, 20*time.Second)
	defer cancel()

	var finalURL string
	err := chromedp.Run(tabCtx,
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(targetURL),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return targetURL, err
	}
	if finalURL == "" {
		finalURL = targetURL
	}
	return finalURL, nil
}

func (p *browserPool) acquire() (context.Context, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || len(p.browsers) == 0 {
		return nil, func() {}
	}
	index := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)
	return p.browsers[index], func() {}
}

func (p *browserPool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleanup()
}

func (p *browserPool) cleanup() {
	for _, cancel := range p.browserCancels {
		if cancel != nil {
			cancel()
		}
	}
	for _, cancel := range p.allocatorCancels {
		if cancel != nil {
			cancel()
		}
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.currentIndex = 0
	p.initialized = false
}
