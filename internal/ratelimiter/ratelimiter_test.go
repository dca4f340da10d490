package ratelimiter

import (
	"context"
	"testing"
	"time"
)

// TestNew verifies rate limiter creation with different parameters.
func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond uint
		burst             uint
	}{
		{
			name:              "standard rate",
			requestsPerSecond: 100,
			burst:             200,
		},
		{
			name:              "low rate",
			requestsPerSecond: 1,
			burst:             2,
		},
		{
			name:              "unlimited (zero rate)",
			requestsPerSecond: 0,
			burst:             0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.requestsPerSecond, tt.burst)
			if limiter == nil {
				t.Fatal("New() returned nil")
			}
			if limiter.limiter == nil {
				t.Fatal("internal limiter is nil")
			}
		})
	}
}

// TestAllow verifies that Allow() enforces the configured rate.
func TestAllow(t *testing.T) {
	limiter := New(10, 10)

	// First burst should be allowed up to burst capacity.
	for i := 0; i < 10; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should be allowed (within burst)", i)
		}
	}

	if limiter.Allow() {
		t.Fatal("request should be rate-limited after burst exhausted")
	}

	// 10 req/s replenishes one token every 100ms.
	time.Sleep(110 * time.Millisecond)

	if !limiter.Allow() {
		t.Fatal("request should be allowed after token replenishment")
	}
}

// TestAllowN verifies batch token consumption.
func TestAllowN(t *testing.T) {
	limiter := New(100, 10)

	if !limiter.AllowN(10) {
		t.Fatal("batch of 10 should fit in burst capacity")
	}
	if limiter.AllowN(10) {
		t.Fatal("second batch should be rejected with the bucket drained")
	}
}

// TestWaitCancellation verifies Wait respects context cancellation.
func TestWaitCancellation(t *testing.T) {
	limiter := New(1, 1)

	// Drain the bucket.
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("first request should succeed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Fatal("Wait should fail when context expires before a token is available")
	}
}
