package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/davidrdinardo/smart-spend-map/internal/api/middleware"
)

func TestRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("generates an ID", func(t *testing.T) {
		rec := httptest.NewRecorder()
		middleware.RequestID(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		header := rec.Header().Get("X-Request-ID")
		if header == "" {
			t.Fatal("no X-Request-ID header set")
		}
		if seen != header {
			t.Errorf("context ID = %q, header = %q", seen, header)
		}
	})

	t.Run("honors a supplied ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-abc")

		rec := httptest.NewRecorder()
		middleware.RequestID(inner).ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "req-abc" {
			t.Errorf("X-Request-ID = %q, want req-abc", got)
		}
		if seen != "req-abc" {
			t.Errorf("context ID = %q, want req-abc", seen)
		}
	})
}

func TestLoggerWritesAccessLine(t *testing.T) {
	buf := &bytes.Buffer{}
	log := zerolog.New(buf)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})
	chain := middleware.RequestID(middleware.Logger(log)(inner))

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process", nil))

	line := buf.String()
	for _, want := range []string{`"method":"POST"`, `"path":"/api/process"`, `"status":201`, "request_id"} {
		if !strings.Contains(line, want) {
			t.Errorf("access line missing %s: %s", want, line)
		}
	}
}

func TestLoggerLevelTracksStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "info"},
		{http.StatusBadRequest, "warn"},
		{http.StatusBadGateway, "error"},
	}

	for _, tt := range tests {
		buf := &bytes.Buffer{}
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})

		rec := httptest.NewRecorder()
		middleware.Logger(zerolog.New(buf))(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if !strings.Contains(buf.String(), `"level":"`+tt.wantLevel+`"`) {
			t.Errorf("status %d logged as %s, want level %s", tt.status, buf.String(), tt.wantLevel)
		}
	}
}

func TestRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	inner := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	middleware.Recovery(zerolog.New(buf))(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if body["error"] == "" {
		t.Error("error body missing message")
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("panic value not logged: %s", buf.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the handler")
	})

	rec := httptest.NewRecorder()
	middleware.CORS(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/process", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Access-Control-Allow-Origin header missing")
	}
}
