package telegram

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter controls the frequency of requests to the Telegram API.
// Three mechanisms stack up: a token bucket, a uniform random inter-batch
// delay, and a hard pause window after a server FLOOD_WAIT.
type RateLimiter struct {
	limiter *rate.Limiter

	// random delay bounds applied by Throttle between batches
	delayMin time.Duration
	delayMax time.Duration

	floodWaitUntil time.Time
	mu             sync.Mutex
}

// NewRateLimiter creates a rate limiter.
// rps - requests per second (1-2 is safe for scraping with a user account)
// delayMin/delayMax - bounds for the random pause between batches
func NewRateLimiter(rps float64, burst int, delayMin, delayMax time.Duration) *RateLimiter {
	if delayMax < delayMin {
		delayMax = delayMin
	}
	return &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		delayMin: delayMin,
		delayMax: delayMax,
	}
}

// DefaultRateLimiter returns a limiter with conservative settings: 2 rps
// and a 1-3 second pause between batches.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(2.0, 1, time.Second, 3*time.Second)
}

// Wait blocks until the next request is allowed, honoring any active
// FLOOD_WAIT window. It does not apply the random inter-batch delay.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.waitFloodWindow(ctx); err != nil {
		return err
	}
	return r.limiter.Wait(ctx)
}

// Throttle blocks like Wait but additionally sleeps for a random duration
// drawn uniformly from [delayMin, delayMax]. Called between batches so
// paginated walks do not hammer the API at the full bucket rate.
func (r *RateLimiter) Throttle(ctx context.Context) error {
	d := r.delayMin
	if r.delayMax > r.delayMin {
		d += rand.N(r.delayMax - r.delayMin)
	}
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.Wait(ctx)
}

// SetFloodWait records a server-requested pause. Subsequent Wait and
// Throttle calls block until the window has passed.
func (r *RateLimiter) SetFloodWait(seconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.floodWaitUntil = time.Now().Add(time.Duration(seconds) * time.Second)
}

func (r *RateLimiter) waitFloodWindow(ctx context.Context) error {
	r.mu.Lock()
	waitUntil := r.floodWaitUntil
	r.mu.Unlock()

	if time.Now().Before(waitUntil) {
		select {
		case <-time.After(time.Until(waitUntil)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
