package parser

import (
	"time"

	"mihiraki/progress"
)

// pollInterval bounds how late a cancellation is noticed during Wait.
const pollInterval = 50 * time.Millisecond

// RateLimiter spaces out sequential requests by a fixed interval.
//
// Example usage:
//
//	limiter := parser.NewRateLimiter(500 * time.Millisecond)
//
//	for i := 0; i < total; i++ {
//	    // ... perform request ...
//	    if !limiter.Wait(flag) {
//	        break
//	    }
//	}
type RateLimiter struct {
	interval time.Duration
	sleep    func(time.Duration)
}

// NewRateLimiter creates a rate limiter with the specified interval.
// A zero or negative interval disables waiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		sleep:    time.Sleep,
	}
}

// Wait blocks for the configured interval. It returns false without
// finishing the wait if c reports cancellation, either before the wait
// starts or while it is in progress.
func (rl *RateLimiter) Wait(c progress.Canceller) bool {
	if c != nil && c.IsCancelled() {
		return false
	}

	remaining := rl.interval
	for remaining > 0 {
		step := min(pollInterval, remaining)
		rl.sleep(step)
		remaining -= step

		if c != nil && c.IsCancelled() {
			return false
		}
	}
	return true
}

// GetInterval returns the configured interval for this rate limiter.
func (rl *RateLimiter) GetInterval() time.Duration {
	return rl.interval
}
