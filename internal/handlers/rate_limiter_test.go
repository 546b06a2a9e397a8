package handlers

import (
	"testing"
	"time"
)

func TestSimpleRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newSimpleRateLimiter(2, time.Minute, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if ok, _ := limiter.Allow("client"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	now = now.Add(20 * time.Second)
	ok, retryAfter := limiter.Allow("client")
	if ok {
		t.Fatalf("expected third request to be refused")
	}
	if retryAfter != 40*time.Second {
		t.Fatalf("expected 40s retry, got %s", retryAfter)
	}

	if ok, _ := limiter.Allow(" "); !ok {
		t.Fatalf("expected anonymous bucket to be independent")
	}

	now = now.Add(41 * time.Second)
	if ok, _ := limiter.Allow("client"); !ok {
		t.Fatalf("expected window reset to allow request")
	}
}

func TestNewSimpleRateLimiterDisabled(t *testing.T) {
	if limiter := newSimpleRateLimiter(0, time.Minute, nil); limiter != nil {
		t.Fatalf("expected nil limiter for zero limit")
	}
}
