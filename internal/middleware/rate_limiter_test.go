package middleware

import (
	"testing"
	"time"
)

func TestCallerRateLimiterBurstThenDeny(t *testing.T) {
	limiter := NewCallerRateLimiter(1, time.Hour, 2, time.Hour)

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected first request allowed")
	}
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected burst request allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected request over the burst denied")
	}
}

func TestCallerRateLimiterIsolatesKeys(t *testing.T) {
	limiter := NewCallerRateLimiter(1, time.Hour, 1, time.Hour)

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("expected first caller allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected first caller throttled")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("expected second caller unaffected")
	}
}

func TestCallerRateLimiterEmptyKey(t *testing.T) {
	limiter := NewCallerRateLimiter(1, time.Hour, 1, time.Hour)

	if !limiter.Allow("") {
		t.Fatal("expected empty key allowed once")
	}
	if limiter.Allow("") {
		t.Fatal("expected empty keys to share one bucket")
	}
}

func TestCallerRateLimiterEvictsIdleCallers(t *testing.T) {
	limiter := NewCallerRateLimiter(1, time.Hour, 1, time.Minute)

	current := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	limiter.SetNowFunc(func() time.Time { return current })

	limiter.Allow("10.0.0.1")

	current = current.Add(10 * time.Minute)
	limiter.Allow("10.0.0.2")

	limiter.mu.Lock()
	_, stale := limiter.callers["10.0.0.1"]
	limiter.mu.Unlock()
	if stale {
		t.Fatal("expected idle caller evicted")
	}
}
