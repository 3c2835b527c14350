// Package ratelimit paces outgoing listing requests with a token bucket.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/folderlink/folderlink/internal/constants"
	"github.com/folderlink/folderlink/internal/logging"
)

// warnAfter is the shortest wait worth logging.
const warnAfter = 2 * time.Second

// RateLimiter implements a token bucket rate limiter.
// It allows bursts up to maxTokens, then refills at refillRate tokens/second.
type RateLimiter struct {
	tokens       float64
	maxTokens    float64
	refillRate   float64
	lastRefill   time.Time
	lastWarnTime time.Time
	logger       *logging.Logger
	mu           sync.Mutex
}

// NewRateLimiter creates a limiter that starts with a full bucket.
// A nil logger disables the slow-wait warning.
func NewRateLimiter(tokensPerSecond, burstSize float64, logger *logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &RateLimiter{
		tokens:     burstSize,
		maxTokens:  burstSize,
		refillRate: tokensPerSecond,
		lastRefill: time.Now(),
		logger:     logger,
	}
}

// NewListingRateLimiter creates the limiter shared by all listing fetches.
// The burst covers quick back-and-forth navigation; holding a key down
// through a large tree is paced to ListingRatePerSec.
func NewListingRateLimiter(logger *logging.Logger) *RateLimiter {
	return NewRateLimiter(constants.ListingRatePerSec, constants.ListingBurstCapacity, logger)
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.tryAcquire() {
		return nil
	}

	if wait := rl.timeUntilNextToken(); wait > warnAfter {
		rl.mu.Lock()
		// At most one warning every 10 seconds.
		if time.Since(rl.lastWarnTime) > 10*time.Second {
			rl.logger.Warn().Dur("wait", wait).Msg("rate limited: waiting for request capacity")
			rl.lastWarnTime = time.Now()
		}
		rl.mu.Unlock()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rl.tryAcquire() {
			return nil
		}

		timer := time.NewTimer(rl.timeUntilNextToken())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire takes one token without blocking.
func (rl *RateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

func (rl *RateLimiter) refillLocked(now time.Time) {
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now
}

func (rl *RateLimiter) timeUntilNextToken() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	needed := 1.0 - rl.tokens
	if needed <= 0 {
		return 0
	}
	return time.Duration(needed / rl.refillRate * float64(time.Second))
}

// GetCurrentTokens returns the current number of tokens.
func (rl *RateLimiter) GetCurrentTokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	return rl.tokens
}
