package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ternarybob/newscrawler/internal/models"
)

func TestSetupRoutesHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSetupRoutesUnknownAPIPathReturns404(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCategoryCollectionRouteListsAndCreates(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(models.Category{Name: "Tech", Keywords: []string{"go"}, IsActive: true})
	createReq := httptest.NewRequest("POST", "/api/categories", bytes.NewReader(body))
	createRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(createRec, createReq)
	if createRec.Code != http.StatusCreated {
		t.Fatalf("expected 201 on create, got %d: %s", createRec.Code, createRec.Body.String())
	}

	listReq := httptest.NewRequest("GET", "/api/categories", nil)
	listRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(listRec, listReq)
	if listRec.Code != http.StatusOK {
		t.Fatalf("expected 200 on list, got %d: %s", listRec.Code, listRec.Body.String())
	}

	var cats []models.Category
	if err := json.Unmarshal(listRec.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(cats) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cats))
	}
}

func TestCategoryCollectionRouteRejectsDelete(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("DELETE", "/api/categories", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestShutdownHandlerRejectsNonPost(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/shutdown", nil)
	rec := httptest.NewRecorder()
	srv.ShutdownHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestShutdownHandlerSignalsChannelOnPost(t *testing.T) {
	srv := newTestServer(t)
	ch := make(chan struct{}, 1)
	srv.SetShutdownChannel(ch)

	req := httptest.NewRequest("POST", "/api/shutdown", nil)
	rec := httptest.NewRecorder()
	srv.ShutdownHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected shutdown channel to be signaled")
	}
}
