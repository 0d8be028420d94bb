package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("client") {
		t.Error("request over the limit should be denied")
	}

	// A different key has its own bucket
	if !rl.Allow("other") {
		t.Error("separate key should not share the exhausted bucket")
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstSize:         2,
	})

	allowed := 0
	for i := 0; i < 10; i++ {
		if rl.Allow("client") {
			allowed++
		}
	}
	if allowed != 4 {
		t.Errorf("expected window plus burst (4) requests allowed, got %d", allowed)
	}
}

func TestRateLimiterRemaining(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	if got := rl.Remaining("client"); got != 5 {
		t.Errorf("expected 5 remaining for fresh key, got %d", got)
	}

	rl.Allow("client")
	rl.Allow("client")
	if got := rl.Remaining("client"); got != 3 {
		t.Errorf("expected 3 remaining after two requests, got %d", got)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    10 * time.Millisecond,
		BurstSize:         0,
	})

	rl.Allow("stale")
	time.Sleep(30 * time.Millisecond)
	rl.Cleanup()

	rl.mu.RLock()
	_, exists := rl.buckets["stale"]
	rl.mu.RUnlock()
	if exists {
		t.Error("expected stale bucket to be removed")
	}
}

func TestRateLimitMiddlewareHandler(t *testing.T) {
	m := &RateLimitMiddleware{
		readLimiter:     NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 100, WindowDuration: time.Minute}),
		mutationLimiter: NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}),
	}

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/folder-auth/addGlobalRole", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	if w := post(); w.Code != http.StatusOK {
		t.Fatalf("first mutation should pass, got %d", w.Code)
	}
	if w := post(); w.Code != http.StatusOK {
		t.Fatalf("second mutation should pass, got %d", w.Code)
	}
	w := post()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third mutation should be limited, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on limited response")
	}

	// Reads use a separate, larger budget
	req := httptest.NewRequest("GET", "/folder-auth/getAllRoles", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("read should not share the mutation budget, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("expected X-RateLimit-Remaining header")
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.1:5000"
	if got := getClientIP(req); got != "192.168.1.1:5000" {
		t.Errorf("expected remote addr, got %s", got)
	}

	req.Header.Set("X-Real-IP", "10.1.1.1")
	if got := getClientIP(req); got != "10.1.1.1" {
		t.Errorf("expected X-Real-IP, got %s", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := getClientIP(req); got != "203.0.113.7" {
		t.Errorf("expected X-Forwarded-For to win, got %s", got)
	}
}
