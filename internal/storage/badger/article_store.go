package badger

import (
	"context"
	"time"

	"github.com/ternarybob/newscrawler/internal/apperrors"
	"github.com/ternarybob/newscrawler/internal/common"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// UpsertArticleWithLinks is the keystone dedup operation. upsertMu
// serializes the whole find-or-insert-and-merge sequence so that
// concurrent upserts for the same url_hash produce exactly one inserted
// row and merged links.
func (s *Store) UpsertArticleWithLinks(ctx context.Context, candidate *models.Article, links []models.CategoryLink) (models.UpsertOutcome, *models.Article, error) {
	s.upsertMu.Lock()
	defer s.upsertMu.Unlock()

	var existing []models.Article
	if err := s.hold().Find(&existing, badgerhold.Where("URLHash").Eq(candidate.URLHash)); err != nil {
		return "", nil, apperrors.Wrap(apperrors.KindDatabase, err, "lookup article by url_hash")
	}

	now := time.Now().UTC()

	if len(existing) == 0 {
		candidate.ID = common.NewID("art")
		candidate.LastSeen = now
		candidate.CreatedAt = now
		if err := s.hold().Insert(candidate.ID, candidate); err != nil {
			return "", nil, apperrors.Wrap(apperrors.KindDatabase, err, "insert article")
		}
		if err := s.insertLinks(candidate.ID, links); err != nil {
			return "", nil, err
		}
		return models.UpsertInserted, candidate, nil
	}

	stored := &existing[0]
	stored.LastSeen = now
	if stored.Content == "" && candidate.Content != "" {
		stored.Content = candidate.Content
		stored.ContentHash = candidate.ContentHash
	}
	if stored.Author == "" && candidate.Author != "" {
		stored.Author = candidate.Author
	}
	if stored.PublishDate == nil && candidate.PublishDate != nil {
		stored.PublishDate = candidate.PublishDate
	}
	if stored.ImageURL == "" && candidate.ImageURL != "" {
		stored.ImageURL = candidate.ImageURL
	}
	if candidate.CrawlJobID != "" {
		stored.CrawlJobID = candidate.CrawlJobID
	}
	if candidate.RelevanceScore > stored.RelevanceScore {
		stored.RelevanceScore = candidate.RelevanceScore
		stored.KeywordsMatched = candidate.KeywordsMatched
	}

	if err := s.hold().Update(stored.ID, stored); err != nil {
		return "", nil, apperrors.Wrap(apperrors.KindDatabase, err, "update article")
	}
	if err := s.mergeLinks(stored.ID, links); err != nil {
		return "", nil, err
	}
	return models.UpsertUpdated, stored, nil
}

func (s *Store) insertLinks(articleID string, links []models.CategoryLink) error {
	for _, l := range links {
		link := &models.ArticleCategoryLink{
			ID:             common.NewID("link"),
			ArticleID:      articleID,
			CategoryID:     l.CategoryID,
			RelevanceScore: l.Relevance,
		}
		if err := s.hold().Insert(link.ID, link); err != nil {
			return apperrors.Wrap(apperrors.KindDatabase, err, "insert article-category link")
		}
	}
	return nil
}

func (s *Store) mergeLinks(articleID string, links []models.CategoryLink) error {
	for _, l := range links {
		var existing []models.ArticleCategoryLink
		err := s.hold().Find(&existing, badgerhold.Where("ArticleID").Eq(articleID).
			And("CategoryID").Eq(l.CategoryID))
		if err != nil {
			return apperrors.Wrap(apperrors.KindDatabase, err, "lookup article-category link")
		}
		if len(existing) == 0 {
			if err := s.insertLinks(articleID, []models.CategoryLink{l}); err != nil {
				return err
			}
			continue
		}
		row := existing[0]
		if l.Relevance > row.RelevanceScore {
			row.RelevanceScore = l.Relevance
			if err := s.hold().Update(row.ID, &row); err != nil {
				return apperrors.Wrap(apperrors.KindDatabase, err, "raise article-category link relevance")
			}
		}
	}
	return nil
}

// GetArticle fetches an article by id.
func (s *Store) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	var art models.Article
	if err := s.hold().Get(id, &art); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, apperrors.New(apperrors.KindNotFound, "article not found: "+id)
		}
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "get article")
	}
	return &art, nil
}

// ListArticles lists articles matching filter, most-recently-seen first.
func (s *Store) ListArticles(ctx context.Context, filter interfaces.ArticleFilter) ([]*models.Article, error) {
	var rows []models.Article
	var err error

	if filter.CategoryID != "" {
		var links []models.ArticleCategoryLink
		if err := s.hold().Find(&links, badgerhold.Where("CategoryID").Eq(filter.CategoryID)); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabase, err, "find category links")
		}
		for _, l := range links {
			var art models.Article
			if err := s.hold().Get(l.ArticleID, &art); err == nil {
				rows = append(rows, art)
			}
		}
	} else {
		err = s.hold().Find(&rows, badgerhold.Where("ID").Ne("").SortBy("LastSeen").Reverse())
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabase, err, "list articles")
		}
	}

	if filter.Since != nil || filter.Until != nil {
		filtered := rows[:0]
		for _, a := range rows {
			if filter.Since != nil && a.LastSeen.Before(*filter.Since) {
				continue
			}
			if filter.Until != nil && a.LastSeen.After(*filter.Until) {
				continue
			}
			filtered = append(filtered, a)
		}
		rows = filtered
	}

	if filter.Offset > 0 && filter.Offset < len(rows) {
		rows = rows[filter.Offset:]
	} else if filter.Offset >= len(rows) && len(rows) > 0 {
		rows = nil
	}
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}

	out := make([]*models.Article, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

// GetArticleCategories returns the category links for an article.
func (s *Store) GetArticleCategories(ctx context.Context, articleID string) ([]*models.ArticleCategoryLink, error) {
	var rows []models.ArticleCategoryLink
	if err := s.hold().Find(&rows, badgerhold.Where("ArticleID").Eq(articleID)); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "get article categories")
	}
	out := make([]*models.ArticleCategoryLink, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

// ArticleStats computes the aggregate totals behind GET /articles/stats.
func (s *Store) ArticleStats(ctx context.Context) (*interfaces.ArticleStats, error) {
	count, err := s.hold().Count(&models.Article{}, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "count articles")
	}

	var links []models.ArticleCategoryLink
	if err := s.hold().Find(&links, nil); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, err, "list links for stats")
	}
	byCategory := map[string]int{}
	for _, l := range links {
		byCategory[l.CategoryID]++
	}

	return &interfaces.ArticleStats{TotalArticles: count, ByCategory: byCategory}, nil
}
