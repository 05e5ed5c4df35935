package apihttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCorsMiddleware_AllowAll_WhenNoOriginsConfigured(t *testing.T) {
	handler := corsMiddleware(nil, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Errorf("expected origin reflected, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
}

func TestCorsMiddleware_AllowWhitelisted(t *testing.T) {
	handler := corsMiddleware([]string{"http://allowed.com", "http://also-allowed.com"}, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://allowed.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://allowed.com" {
		t.Errorf("expected whitelisted origin, got %q", got)
	}
}

func TestCorsMiddleware_RejectNonWhitelisted(t *testing.T) {
	handler := corsMiddleware([]string{"http://allowed.com"}, okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "http://evil.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no ACAO header for rejected origin, got %q", got)
	}
	// The handler still runs (CORS is advisory), but the browser will block the response.
	if rec.Code != http.StatusOK {
		t.Errorf("expected handler to still execute, got %d", rec.Code)
	}
}

func TestCorsMiddleware_PreflightReturns204(t *testing.T) {
	called := false
	handler := corsMiddleware(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if called {
		t.Error("preflight must not reach the next handler")
	}
}

func TestRecoveryMiddleware_ConvertsPanicTo500(t *testing.T) {
	handler := recoveryMiddleware(discardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestRateLimitMiddleware_Exceeded(t *testing.T) {
	handler := rateLimitMiddleware(1, 1, okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/test", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request must pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/test", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 when the bucket is empty, got %d", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After header, got %q", got)
	}
}

func TestRateLimitMiddleware_SkipsHealthAndMetrics(t *testing.T) {
	handler := rateLimitMiddleware(0.0001, 1, okHandler())

	// Drain the bucket.
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	for _, path := range []string{"/internal/health", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s must bypass the limiter, got %d", path, rec.Code)
		}
	}
}

func TestNormalizeRoute(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/video-processor/convert", "/video-processor/convert"},
		{"/video-processor/convert-local", "/video-processor/convert-local"},
		{"/video-processor/status/job_abc123", "/video-processor/status/:jobId"},
		{"/video-processor/jobs", "/video-processor/jobs"},
		{"/metrics", "/metrics"},
		{"/internal/health", "/internal/health"},
		{"/ws", "/ws"},
		{"/something/else", "/other"},
	}
	for _, tc := range cases {
		if got := normalizeRoute(tc.path); got != tc.want {
			t.Errorf("normalizeRoute(%q): expected %q, got %q", tc.path, tc.want, got)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 10.0.0.1")
	if got := clientIP(req); got != "10.1.2.3" {
		t.Errorf("expected first XFF entry, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Real-IP", "10.9.9.9")
	if got := clientIP(req); got != "10.9.9.9" {
		t.Errorf("expected X-Real-IP, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.0.5:1234"
	if got := clientIP(req); got != "192.168.0.5" {
		t.Errorf("expected remote host, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("0123456789", 8); got != "01234..." {
		t.Errorf("expected ellipsis truncation, got %q", got)
	}
	if got := truncate("0123456789", 2); got != "01" {
		t.Errorf("expected hard cut for tiny limits, got %q", got)
	}
}
