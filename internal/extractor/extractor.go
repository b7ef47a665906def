// Package extractor wraps the external news-search provider and
// per-article content fetching behind the interfaces.Extractor contract,
// so the rest of the system never knows whether a result required
// JavaScript rendering to resolve its final URL.
package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/models"
	"golang.org/x/time/rate"
)

// Config parameterizes the extractor adapter.
type Config struct {
	ProviderSearchURL          string
	UserAgent                  string
	RequestTimeout             time.Duration
	RateLimitPerMinute         int
	ResolveRedirectsWithBrowser bool
	BrowserInstances           int
	BrowserTabsPerInstance     int
	RedirectWaitTime           time.Duration
}

// Extractor is the concrete interfaces.Extractor implementation.
type Extractor struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	browsers   *browserPool
	logger     arbor.ILogger
}

var _ interfaces.Extractor = (*Extractor)(nil)

// New builds an Extractor and, if configured, its JS-redirect-resolving
// browser pool (5 browser instances by default; BrowserTabsPerInstance is not used here).
func New(cfg Config, logger arbor.ILogger) (*Extractor, error) {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 100
	}

	e := &Extractor{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMinute)/60.0), cfg.RateLimitPerMinute),
		logger:     logger,
	}

	if cfg.ResolveRedirectsWithBrowser {
		pool := newBrowserPool(logger)
		instances := cfg.BrowserInstances
		if instances <= 0 {
			instances = 5
		}
		if err := pool.init(browserPoolConfig{
			Instances:      instances,
			UserAgent:      cfg.UserAgent,
			RequestTimeout: cfg.RequestTimeout,
		}); err != nil {
			return nil, fmt.Errorf("extractor: init browser pool: %w", err)
		}
		e.browsers = pool
	}

	return e, nil
}

// Close releases the browser pool, if any.
func (e *Extractor) Close() {
	if e.browsers != nil {
		e.browsers.close()
	}
}

// Search queries the external provider and parses its result page into
// discovery-stage candidates (title + source_url).
func (e *Extractor) Search(ctx context.Context, req interfaces.ExtractRequest) ([]models.Candidate, error) {
	if err := e.awaitLimiter(ctx); err != nil {
		return nil, err
	}

	searchURL, err := e.buildSearchURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", e.cfg.UserAgent)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &interfaces.RateLimited{RetryAfter: retryAfter}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if req.MaxResults > 0 && len(candidates) >= req.MaxResults {
			return
		}
		href, _ := s.Attr("href")
		title := strings.TrimSpace(s.Text())
		if href == "" || title == "" {
			return
		}
		resolved, err := url.Parse(href)
		if err != nil || resolved.Scheme == "" {
			return
		}
		candidates = append(candidates, models.Candidate{
			Title:     title,
			SourceURL: resolved.String(),
		})
	})

	return candidates, nil
}

// ExtractFull resolves the candidate's final article URL (via the
// browser pool when redirect resolution is enabled) and fetches the
// article page to backfill content/author/publish_date/image_url.
func (e *Extractor) ExtractFull(ctx context.Context, candidate models.Candidate) (models.Candidate, error) {
	if err := e.awaitLimiter(ctx); err != nil {
		return candidate, err
	}

	finalURL := candidate.SourceURL
	if e.browsers != nil {
		resolved, err := e.browsers.resolve(ctx, candidate.SourceURL)
		if err == nil && resolved != "" {
			finalURL = resolved
		} else if err != nil {
			e.logger.Warn().Err(err).Str("url", candidate.SourceURL).Msg("redirect resolution failed, using original url")
		}
	}

	full, err := parsePage(e.httpClient, finalURL)
	if err != nil {
		return candidate, err
	}

	full.SourceURL = finalURL
	if full.Title == "" {
		full.Title = candidate.Title
	}
	return full, nil
}

func (e *Extractor) buildSearchURL(req interfaces.ExtractRequest) (string, error) {
	base, err := url.Parse(e.cfg.ProviderSearchURL)
	if err != nil {
		return "", fmt.Errorf("extractor: invalid provider search url: %w", err)
	}
	q := base.Query()
	q.Set("q", req.Query)
	if req.Language != "" {
		q.Set("hl", req.Language)
	}
	if req.Country != "" {
		q.Set("gl", req.Country)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (e *Extractor) awaitLimiter(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	reservation := e.limiter.Reserve()
	if !reservation.OK() {
		return &interfaces.RateLimited{RetryAfter: time.Minute}
	}
	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return time.Minute
	}
	if seconds, err := time.ParseDuration(header + "s"); err == nil {
		return seconds
	}
	return time.Minute
}
