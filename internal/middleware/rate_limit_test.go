package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("fourth request should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("a different key has its own window")
	}
}

func TestRateLimiterRemaining(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	defer rl.Stop()

	if got := rl.Remaining("10.0.0.1"); got != 5 {
		t.Errorf("fresh key remaining = %d, want 5", got)
	}
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.1")
	if got := rl.Remaining("10.0.0.1"); got != 3 {
		t.Errorf("remaining = %d, want 3", got)
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()

	// The limiter itself keeps working after the cleanup goroutine exits
	if !rl.Allow("10.0.0.1") {
		t.Error("first request should be allowed after Stop")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("limit still enforced after Stop")
	}
}

func TestAuthRateLimiterHandler(t *testing.T) {
	limiter := NewAuthRateLimiter()
	defer limiter.Stop()

	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var lastCode int
	for i := 0; i < 21; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.5:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code

		if i < 20 {
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d: status %d", i+1, rec.Code)
			}
			if rec.Header().Get("X-RateLimit-Limit") != "20" {
				t.Errorf("missing X-RateLimit-Limit header")
			}
		}
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("request over the limit: status %d, want 429", lastCode)
	}
}
