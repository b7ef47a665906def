package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/newscrawler/internal/models"
)

// ExtractRequest parameterizes one Extractor.Search call.
type ExtractRequest struct {
	Query      string
	Language   string
	Country    string
	StartDate  *time.Time
	EndDate    *time.Time
	MaxResults int
}

// Extractor wraps the external search-and-extract capability. The core
// treats it as opaque: it does not know whether JavaScript rendering was
// used to resolve a candidate's final URL.
type Extractor interface {
	// Search returns discovery-stage candidate records for the query: at
	// minimum title and source_url, with content/author/date/image filled
	// in where the search result itself carried them. It is a blocking
	// call; callers thread ctx for cancellation at its suspension points.
	Search(ctx context.Context, req ExtractRequest) ([]models.Candidate, error)

	// ExtractFull resolves a discovery candidate's final article page
	// (following JS-rendered redirects where needed) and backfills any
	// missing content/author/publish_date/image_url. Called per-candidate
	// under the worker's bounded concurrency pool.
	ExtractFull(ctx context.Context, candidate models.Candidate) (models.Candidate, error)
}

// RateLimited is the typed condition an Extractor raises when the
// external provider throttles requests.
type RateLimited struct {
	RetryAfter time.Duration
}

func (e *RateLimited) Error() string {
	return "extractor: rate limited"
}
