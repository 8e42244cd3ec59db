package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_NextWithinBounds(t *testing.T) {
	min, max := 20*time.Millisecond, 50*time.Millisecond
	limiter := NewLimiter(min, max, 0)

	for i := 0; i < 1000; i++ {
		d := limiter.Next()
		if d < min || d > max {
			t.Fatalf("delay %v outside [%v, %v]", d, min, max)
		}
	}
}

func TestLimiter_FixedWhenMaxBelowMin(t *testing.T) {
	limiter := NewLimiter(30*time.Millisecond, 10*time.Millisecond, 0)

	if d := limiter.Next(); d != 30*time.Millisecond {
		t.Errorf("expected fixed 30ms delay, got %v", d)
	}
	lo, hi := limiter.Bounds()
	if lo != hi {
		t.Errorf("expected collapsed bounds, got %v-%v", lo, hi)
	}
}

func TestLimiter_ZeroDelayDoesNotBlock(t *testing.T) {
	limiter := NewLimiter(0, 0, 0)

	start := time.Now()
	if err := limiter.Pause(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("zero-delay limiter should not block")
	}
}

func TestLimiter_Pause(t *testing.T) {
	limiter := NewLimiter(50*time.Millisecond, 80*time.Millisecond, 0)

	start := time.Now()
	if err := limiter.Pause(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	// Allow some slack for goroutine scheduling.
	if elapsed < 50*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Errorf("expected pause between 50ms and 80ms, took %v", elapsed)
	}
}

func TestLimiter_PauseContextCancellation(t *testing.T) {
	limiter := NewLimiter(time.Second, time.Second, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Pause(ctx); err == nil {
		t.Fatalf("expected context canceled error")
	}
}

func TestLimiter_Ceiling(t *testing.T) {
	// 600 per minute is one request every 100ms, burst 1.
	limiter := NewLimiter(0, 0, 600)
	ctx := context.Background()

	_ = limiter.Wait(ctx)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Errorf("expected ceiling wait around 100ms, took %v", elapsed)
	}
}
