package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorrelationIDMiddlewareGeneratesIDWhenAbsent(t *testing.T) {
	srv := newTestServer(t)
	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = r.Context().Value(correlationIDKey).(string)
	})

	req := httptest.NewRequest("GET", "/x", nil)
	rec := httptest.NewRecorder()
	srv.correlationIDMiddleware(inner).ServeHTTP(rec, req)

	if seenID == "" {
		t.Fatal("expected a correlation id to be generated")
	}
	if rec.Header().Get("X-Correlation-ID") != seenID {
		t.Fatalf("expected response header to echo correlation id, got %q vs %q", rec.Header().Get("X-Correlation-ID"), seenID)
	}
}

func TestCorrelationIDMiddlewarePreservesIncomingHeader(t *testing.T) {
	srv := newTestServer(t)
	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = r.Context().Value(correlationIDKey).(string)
	})

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	srv.correlationIDMiddleware(inner).ServeHTTP(rec, req)

	if seenID != "fixed-id" {
		t.Fatalf("expected incoming request id to be preserved, got %q", seenID)
	}
}

func TestCORSMiddlewareHandlesPreflight(t *testing.T) {
	srv := newTestServer(t)
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest("OPTIONS", "/x", nil)
	rec := httptest.NewRecorder()
	srv.corsMiddleware(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on preflight, got %d", rec.Code)
	}
	if called {
		t.Fatal("expected preflight to short-circuit before reaching inner handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header to be set")
	}
}

func TestCORSMiddlewarePassesThroughNonPreflight(t *testing.T) {
	srv := newTestServer(t)
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest("GET", "/x", nil)
	rec := httptest.NewRecorder()
	srv.corsMiddleware(inner).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected non-preflight request to reach inner handler")
	}
}

func TestRecoveryMiddlewareRecoversFromPanic(t *testing.T) {
	srv := newTestServer(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest("GET", "/x", nil)
	rec := httptest.NewRecorder()
	srv.recoveryMiddleware(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after recovered panic, got %d", rec.Code)
	}
}

func TestLoggingMiddlewareCapturesStatusAndBytes(t *testing.T) {
	srv := newTestServer(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hi"))
	})

	req := httptest.NewRequest("GET", "/x", nil)
	rec := httptest.NewRecorder()
	srv.loggingMiddleware(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected status to pass through, got %d", rec.Code)
	}
	if rec.Body.String() != "hi" {
		t.Fatalf("expected body to pass through, got %q", rec.Body.String())
	}
}

func TestWithConditionalMiddlewareBypassesForWebsocket(t *testing.T) {
	srv := newTestServer(t)
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest("GET", "/ws", nil)
	rec := httptest.NewRecorder()
	srv.withConditionalMiddleware(inner).ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected websocket path to still reach the inner handler")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected CORS header to be set even on the websocket bypass path")
	}
}
