package models

import "time"

// Article is a deduplicated news item, identified by its source URL hash.
type Article struct {
	ID              string    `json:"id" badgerhold:"key"`
	Title           string    `json:"title" validate:"required,max=500"`
	Content         string    `json:"content,omitempty"`
	Author          string    `json:"author,omitempty"`
	PublishDate     *time.Time `json:"publish_date,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	SourceURL       string    `json:"source_url" validate:"required,url"`
	URLHash         string    `json:"url_hash" badgerhold:"unique"`
	ContentHash     string    `json:"content_hash,omitempty" badgerhold:"index"`
	KeywordsMatched []string  `json:"keywords_matched,omitempty"`
	RelevanceScore  float64   `json:"relevance_score" validate:"min=0,max=1"`
	LastSeen        time.Time `json:"last_seen" badgerhold:"index"`
	CrawlJobID      string    `json:"crawl_job_id,omitempty" badgerhold:"index"`
	CreatedAt       time.Time `json:"created_at"`
}

// ArticleCategoryLink associates an article with a category at a given relevance.
type ArticleCategoryLink struct {
	ID             string  `json:"id" badgerhold:"key"`
	ArticleID      string  `json:"article_id" badgerhold:"index"`
	CategoryID     string  `json:"category_id" badgerhold:"index"`
	RelevanceScore float64 `json:"relevance_score" validate:"min=0,max=1"`
}

// Candidate is a pre-extraction result returned by the Extractor adapter.
type Candidate struct {
	Title       string
	Content     string
	Author      string
	PublishDate *time.Time
	ImageURL    string
	SourceURL   string
}

// HasMinimumFields reports whether the candidate has enough data to count
// toward articles_found (title and source_url recovered).
func (c *Candidate) HasMinimumFields() bool {
	return c.Title != "" && c.SourceURL != ""
}

// CategoryLink pairs a category id with a computed relevance, used both as
// CategoryLinker output and as upsert_article_with_links input.
type CategoryLink struct {
	CategoryID string
	Relevance  float64
}

// UpsertOutcome is the result of Store.UpsertArticleWithLinks.
type UpsertOutcome string

const (
	UpsertInserted UpsertOutcome = "inserted"
	UpsertUpdated  UpsertOutcome = "updated"
)
