package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxRateLimitWait bounds how long a caller is willing to sleep for the
// budget to replenish before giving up and surfacing a RateLimitError.
const maxRateLimitWait = 2 * time.Minute

// RateBudget tracks the shared API rate-limit budget. Every component that
// talks to the API (search paging, accessibility probes, descriptor fetches)
// throttles against the same instance, so none of them can assume full quota.
type RateBudget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	known     bool
}

// NewRateBudget creates an empty budget. The budget is unknown until the
// first response headers are observed.
func NewRateBudget() *RateBudget {
	return &RateBudget{}
}

// Observe records the remaining quota and reset time reported by the server.
func (b *RateBudget) Observe(remaining int, reset time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = remaining
	b.reset = reset
	b.known = true
}

// ObserveHeaders records the X-RateLimit-* headers from an API response, if
// present.
func (b *RateBudget) ObserveHeaders(h http.Header) {
	remStr := h.Get("X-RateLimit-Remaining")
	if remStr == "" {
		return
	}
	remaining, err := strconv.Atoi(remStr)
	if err != nil {
		return
	}

	var reset time.Time
	if resetStr := h.Get("X-RateLimit-Reset"); resetStr != "" {
		if epoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			reset = time.Unix(epoch, 0)
		}
	}

	b.Observe(remaining, reset)
}

// Remaining returns the last observed remaining quota, or -1 if unknown.
func (b *RateBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.known {
		return -1
	}
	return b.remaining
}

// Wait blocks until the budget permits another request. If the budget is
// exhausted and the reset is close, it sleeps until the reset; if the reset
// is too far out (or unknown) it returns a RateLimitError so the caller can
// truncate instead of stalling the whole run.
func (b *RateBudget) Wait(ctx context.Context) error {
	b.mu.Lock()
	exhausted := b.known && b.remaining <= 0
	reset := b.reset
	b.mu.Unlock()

	if !exhausted {
		return nil
	}

	wait := time.Until(reset)
	if wait <= 0 {
		// Reset has passed; optimistically allow the request and let the
		// next response headers correct the budget.
		b.Observe(1, reset)
		return nil
	}
	if wait > maxRateLimitWait {
		return &RateLimitError{Reset: reset}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		b.Observe(1, reset)
		return nil
	}
}
