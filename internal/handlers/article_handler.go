package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/interfaces"
	"github.com/ternarybob/newscrawler/internal/models"
)

// ExportRequest is the payload for POST /api/articles/export.
type ExportRequest struct {
	Format     string     `json:"format"`
	CategoryID string     `json:"category_id,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// ArticleHandler serves read-only article access.
type ArticleHandler struct {
	store  interfaces.Store
	logger arbor.ILogger
}

// NewArticleHandler builds an ArticleHandler.
func NewArticleHandler(store interfaces.Store, logger arbor.ILogger) *ArticleHandler {
	return &ArticleHandler{store: store, logger: logger}
}

// ListHandler handles GET /api/articles.
func (h *ArticleHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	filter := interfaces.ArticleFilter{
		CategoryID: r.URL.Query().Get("category_id"),
		Since:      queryTime(r, "since"),
		Until:      queryTime(r, "until"),
		Limit:      queryInt(r, "limit", 100),
		Offset:     queryInt(r, "offset", 0),
	}

	articles, err := h.store.ListArticles(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list articles")
		WriteAppError(w, err)
		return
	}
	if articles == nil {
		articles = []*models.Article{}
	}
	WriteJSON(w, http.StatusOK, articles)
}

// StatsHandler handles GET /api/articles/stats.
func (h *ArticleHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	stats, err := h.store.ArticleStats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute article stats")
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// ExportHandler handles POST /api/articles/export, streaming matching
// articles as json or csv. xlsx is not offered: no xlsx writer exists
// among this module's dependencies.
func (h *ArticleHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	format := strings.ToLower(req.Format)
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		WriteError(w, http.StatusUnprocessableEntity, "unsupported export format: "+format)
		return
	}

	filter := interfaces.ArticleFilter{
		CategoryID: req.CategoryID,
		Since:      req.Since,
		Until:      req.Until,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}
	articles, err := h.store.ListArticles(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list articles for export")
		WriteAppError(w, err)
		return
	}
	if len(articles) == 0 {
		WriteError(w, http.StatusNotFound, "no articles match the export filter")
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="articles.csv"`)
		cw := csv.NewWriter(w)
		cw.Write([]string{"id", "title", "source_url", "author", "publish_date", "relevance_score", "crawl_job_id"})
		for _, a := range articles {
			publishDate := ""
			if a.PublishDate != nil {
				publishDate = a.PublishDate.Format(time.RFC3339)
			}
			cw.Write([]string{
				a.ID, a.Title, a.SourceURL, a.Author, publishDate,
				fmt.Sprintf("%.3f", a.RelevanceScore), a.CrawlJobID,
			})
		}
		cw.Flush()
		return
	}

	WriteJSON(w, http.StatusOK, articles)
}

// ItemHandler handles GET /api/articles/{id}.
func (h *ArticleHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	id, _ := extractIDFromPath(r.URL.Path, "/api/articles/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "article id is required")
		return
	}

	article, err := h.store.GetArticle(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	categories, err := h.store.GetArticleCategories(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"article":    article,
		"categories": categories,
	})
}
