package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/newscrawler/internal/models"
)

// Store is the durable, transactional source of truth for categories,
// jobs, articles, and article-category links.
type Store interface {
	CreateCategory(ctx context.Context, cat *models.Category) (*models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	UpdateCategory(ctx context.Context, cat *models.Category) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context, activeOnly bool) ([]*models.Category, error)
	GetActiveCategories(ctx context.Context) ([]*models.Category, error)
	GetDueScheduledCategories(ctx context.Context, now time.Time) ([]*models.Category, error)
	UpdateScheduleTiming(ctx context.Context, categoryID string, lastRun, nextRun time.Time) error

	CreateJob(ctx context.Context, params models.JobCreateParams) (*models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, fields JobStatusUpdate) (bool, error)
	ListJobs(ctx context.Context, filter models.JobFilter) ([]*models.Job, error)
	FindStuckJobs(ctx context.Context, threshold time.Duration) ([]*models.Job, error)
	ResetStuckJobs(ctx context.Context, threshold time.Duration) (int, error)
	CleanupOldJobs(ctx context.Context, age time.Duration) (int, error)
	DeleteJob(ctx context.Context, jobID string, opts models.DeleteJobOptions) (*models.JobImpact, error)

	UpsertArticleWithLinks(ctx context.Context, candidate *models.Article, links []models.CategoryLink) (models.UpsertOutcome, *models.Article, error)
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]*models.Article, error)
	GetArticleCategories(ctx context.Context, articleID string) ([]*models.ArticleCategoryLink, error)
	ArticleStats(ctx context.Context) (*ArticleStats, error)

	Close() error
}

// JobStatusUpdate is a partial update applied to a Job row.
type JobStatusUpdate struct {
	Status         *models.JobStatus
	ExternalTaskID *string
	StartedAt     *time.Time
	// ClearStartedAt resets started_at to nil, e.g. when a failed job is
	// moved back to pending for a retry.
	ClearStartedAt bool
	CompletedAt   *time.Time
	ErrorMessage  *string
	RetryCount    *int
	Priority      *int
	Metadata      map[string]any
	ArticlesFound *int
	ArticlesSaved *int
}

// ArticleFilter narrows ListArticles.
type ArticleFilter struct {
	CategoryID string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// ArticleStats is the aggregate result of GET /articles/stats.
type ArticleStats struct {
	TotalArticles int            `json:"total_articles"`
	ByCategory    map[string]int `json:"by_category"`
}
