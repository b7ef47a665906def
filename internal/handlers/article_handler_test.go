package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/newscrawler/internal/models"
)

func TestArticleItemHandlerNotFound(t *testing.T) {
	deps := newTestDeps(t)
	h := NewArticleHandler(deps.store, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/articles/missing", nil)
	rec := httptest.NewRecorder()
	h.ItemHandler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestArticleItemHandlerReturnsArticleAndCategories(t *testing.T) {
	deps := newTestDeps(t)
	cat := seedHandlerCategory(t, deps.store, "Tech")
	_, stored, err := deps.store.UpsertArticleWithLinks(context.Background(), &models.Article{
		Title:     "Golang Release",
		SourceURL: "https://example.com/a",
		URLHash:   "hash-a",
	}, []models.CategoryLink{{CategoryID: cat.ID, Relevance: 1}})
	if err != nil {
		t.Fatalf("upsert article failed: %v", err)
	}
	h := NewArticleHandler(deps.store, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/articles/"+stored.ID, nil)
	rec := httptest.NewRecorder()
	h.ItemHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Article    models.Article                 `json:"article"`
		Categories []models.ArticleCategoryLink `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if payload.Article.ID != stored.ID {
		t.Fatalf("expected article id %s, got %s", stored.ID, payload.Article.ID)
	}
	if len(payload.Categories) != 1 {
		t.Fatalf("expected 1 category link, got %d", len(payload.Categories))
	}
}

func TestArticleStatsHandler(t *testing.T) {
	deps := newTestDeps(t)
	cat := seedHandlerCategory(t, deps.store, "Tech")
	if _, _, err := deps.store.UpsertArticleWithLinks(context.Background(), &models.Article{
		Title: "A", SourceURL: "https://example.com/a", URLHash: "h1",
	}, []models.CategoryLink{{CategoryID: cat.ID, Relevance: 1}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	h := NewArticleHandler(deps.store, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/articles/stats", nil)
	rec := httptest.NewRecorder()
	h.StatsHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stats struct {
		TotalArticles int            `json:"total_articles"`
		ByCategory    map[string]int `json:"by_category"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if stats.TotalArticles != 1 {
		t.Fatalf("expected 1 total article, got %d", stats.TotalArticles)
	}
}

func TestArticleExportReturnsJSONByDefault(t *testing.T) {
	deps := newTestDeps(t)
	cat := seedHandlerCategory(t, deps.store, "Tech")
	if _, _, err := deps.store.UpsertArticleWithLinks(context.Background(), &models.Article{
		Title: "A", SourceURL: "https://example.com/a", URLHash: "h1",
	}, []models.CategoryLink{{CategoryID: cat.ID, Relevance: 1}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	h := NewArticleHandler(deps.store, arbor.NewLogger())

	body, _ := json.Marshal(ExportRequest{})
	req := httptest.NewRequest("POST", "/api/articles/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExportHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var articles []models.Article
	if err := json.Unmarshal(rec.Body.Bytes(), &articles); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 exported article, got %d", len(articles))
	}
}

func TestArticleExportSupportsCSVFormat(t *testing.T) {
	deps := newTestDeps(t)
	cat := seedHandlerCategory(t, deps.store, "Tech")
	if _, _, err := deps.store.UpsertArticleWithLinks(context.Background(), &models.Article{
		Title: "A", SourceURL: "https://example.com/a", URLHash: "h1",
	}, []models.CategoryLink{{CategoryID: cat.ID, Relevance: 1}}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	h := NewArticleHandler(deps.store, arbor.NewLogger())

	body, _ := json.Marshal(ExportRequest{Format: "csv"})
	req := httptest.NewRequest("POST", "/api/articles/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExportHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "csv") {
		t.Fatalf("expected csv content type, got %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "A,https://example.com/a") {
		t.Fatalf("expected csv body to contain article row, got %q", rec.Body.String())
	}
}

func TestArticleExportRejectsUnsupportedFormat(t *testing.T) {
	deps := newTestDeps(t)
	h := NewArticleHandler(deps.store, arbor.NewLogger())

	body, _ := json.Marshal(ExportRequest{Format: "xlsx"})
	req := httptest.NewRequest("POST", "/api/articles/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExportHandler(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for xlsx, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestArticleExportReturns404WhenNoMatches(t *testing.T) {
	deps := newTestDeps(t)
	h := NewArticleHandler(deps.store, arbor.NewLogger())

	body, _ := json.Marshal(ExportRequest{})
	req := httptest.NewRequest("POST", "/api/articles/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ExportHandler(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for no matching articles, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestArticleListHandlerFiltersByCategory(t *testing.T) {
	deps := newTestDeps(t)
	catA := seedHandlerCategory(t, deps.store, "A")
	catB := seedHandlerCategory(t, deps.store, "B")
	if _, _, err := deps.store.UpsertArticleWithLinks(context.Background(), &models.Article{
		Title: "a1", SourceURL: "https://example.com/1", URLHash: "h1",
	}, []models.CategoryLink{{CategoryID: catA.ID, Relevance: 1}}); err != nil {
		t.Fatalf("upsert a1 failed: %v", err)
	}
	if _, _, err := deps.store.UpsertArticleWithLinks(context.Background(), &models.Article{
		Title: "b1", SourceURL: "https://example.com/2", URLHash: "h2",
	}, []models.CategoryLink{{CategoryID: catB.ID, Relevance: 1}}); err != nil {
		t.Fatalf("upsert b1 failed: %v", err)
	}
	h := NewArticleHandler(deps.store, arbor.NewLogger())

	req := httptest.NewRequest("GET", "/api/articles?category_id="+catA.ID, nil)
	rec := httptest.NewRecorder()
	h.ListHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var articles []models.Article
	if err := json.Unmarshal(rec.Body.Bytes(), &articles); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "a1" {
		t.Fatalf("expected only category A's article, got %+v", articles)
	}
}
