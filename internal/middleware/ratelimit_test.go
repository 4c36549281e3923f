// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/session/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterLocalBucket(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit:   PerMinute(2, 2),
		KeyFunc: KeyByScopedIP("credentials"),
	})
	h := rl.Handler(okHandler)

	for i := range 2 {
		if rec := hit(h, "10.0.0.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, rec.Code)
		}
	}

	rec := hit(h, "10.0.0.1:5000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if rec.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("X-RateLimit-Limit: got %q", rec.Header().Get("X-RateLimit-Limit"))
	}

	if rec := hit(h, "10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Errorf("other address: got %d, want 200", rec.Code)
	}
}

func TestRateLimiterFallsBackWhenRedisDown(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	rl := NewRateLimiter(client, RateLimitConfig{Limit: PerMinute(1, 1)})
	h := rl.Handler(okHandler)

	if rec := hit(h, "10.0.0.3:5000"); rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", rec.Code)
	}
	if rec := hit(h, "10.0.0.3:5000"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: got %d, want 429 from local bucket", rec.Code)
	}
}

func TestRateLimiterBypass(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(nil, RateLimitConfig{
		Limit:      PerMinute(1, 1),
		BypassFunc: func(r *http.Request) bool { return r.Header.Get("X-Internal") == "1" },
	})
	h := rl.Handler(okHandler)

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Internal", "1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("bypassed request: got %d", rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded chain uses last hop", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "192.0.2.1:1", "2.2.2.2"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "192.0.2.1:1", "3.3.3.3"},
		{"no port", nil, "192.0.2.9", "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPerWindow(t *testing.T) {
	t.Parallel()

	l := PerWindow(10, 5, 0)
	if l.Period != time.Minute || l.Rate != 10 || l.Burst != 5 {
		t.Errorf("got %+v", l)
	}
}
