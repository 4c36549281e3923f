// AngelaMos | 2026
// headers_test.go

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nexxstore/storefront/internal/config"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" || rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("propagated id: context %q header %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if len(seen) != 36 || seen != rec.Header().Get(RequestIDHeader) {
		t.Errorf("oversized id not replaced: %q", seen)
	}

	if GetRequestID(req.Context()) != "" {
		t.Error("GetRequestID on bare context should be empty")
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("nope"))
	})))

	req := httptest.NewRequest(http.MethodPost, "/v1/session/balance/withdraw", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "WARN" {
		t.Errorf("level: got %v, want WARN", entry["level"])
	}
	if entry["status"] != float64(http.StatusUnprocessableEntity) {
		t.Errorf("status: got %v", entry["status"])
	}
	if entry["bytes"] != float64(4) {
		t.Errorf("bytes: got %v", entry["bytes"])
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id: got %v", entry["request_id"])
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	for _, production := range []bool{false, true} {
		rec := httptest.NewRecorder()
		SecurityHeaders(production)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("production=%v: nosniff missing", production)
		}
		hsts := rec.Header().Get("Strict-Transport-Security") != ""
		if hsts != production {
			t.Errorf("production=%v: HSTS set=%v", production, hsts)
		}
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := CORS(config.CORSConfig{
		AllowedOrigins:   []string{"https://shop.nexx.ru"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/v1/session/login", nil)
	req.Header.Set("Origin", "https://SHOP.nexx.ru")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status: got %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://SHOP.nexx.ru" {
		t.Errorf("Allow-Origin: got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Allow-Credentials missing")
	}
	if rec.Header().Get("Access-Control-Allow-Methods") != "GET, POST" {
		t.Errorf("Allow-Methods: got %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/session/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("simple request status: got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign origin was allowed")
	}
}
