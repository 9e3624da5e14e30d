package telegram

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Wait(t *testing.T) {
	// first request falls within the burst, should not block
	rl := NewRateLimiter(10.0, 1, 0, 0)

	ctx := context.Background()
	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed > 50*time.Millisecond {
		t.Errorf("expected immediate response, got %v", elapsed)
	}
}

func TestRateLimiter_Wait_ContextCanceled(t *testing.T) {
	rl := NewRateLimiter(0.1, 1, 0, 0) // 1 request per 10 seconds

	// use up the burst
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error due to context timeout, got nil")
	}
}

func TestRateLimiter_SetFloodWait(t *testing.T) {
	rl := NewRateLimiter(10.0, 1, 0, 0)
	rl.SetFloodWait(1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	// flood window is 1s but the context expires at 200ms
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded due to flood wait, got %v", err)
	}
	if elapsed < 150*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Errorf("expected ~200ms wait (context timeout), got %v", elapsed)
	}
}

func TestRateLimiter_FloodWaitExpires(t *testing.T) {
	rl := NewRateLimiter(10.0, 1, 0, 0)
	rl.floodWaitUntil = time.Now().Add(-100 * time.Millisecond) // already expired

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected immediate response (flood wait expired), got %v", elapsed)
	}
}

func TestRateLimiter_ThrottleDelayBounds(t *testing.T) {
	rl := NewRateLimiter(100.0, 1, 50*time.Millisecond, 100*time.Millisecond)

	start := time.Now()
	if err := rl.Throttle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 50*time.Millisecond {
		t.Errorf("throttle returned before the minimum delay: %v", elapsed)
	}
	if elapsed > 300*time.Millisecond {
		t.Errorf("throttle took far longer than the maximum delay: %v", elapsed)
	}
}

func TestRateLimiter_ThrottleContextCanceled(t *testing.T) {
	rl := NewRateLimiter(100.0, 1, time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Throttle(ctx); err == nil {
		t.Error("expected error due to context timeout, got nil")
	}
}

func TestDefaultRateLimiter(t *testing.T) {
	rl := DefaultRateLimiter()
	if rl == nil {
		t.Fatal("DefaultRateLimiter returned nil")
	}
	if rl.delayMin != time.Second || rl.delayMax != 3*time.Second {
		t.Errorf("unexpected delay bounds: %v-%v", rl.delayMin, rl.delayMax)
	}
}
