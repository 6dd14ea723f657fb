package api

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// RateLimiter implements a fixed-window limiter per client identifier.
type RateLimiter struct {
	requests map[string]*bucket
	mu       sync.Mutex
	rate     int           // requests per window
	window   time.Duration // time window
	clock    clock.Clock
	stop     chan struct{}
	once     sync.Once
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a new rate limiter. A nil clock uses wall time.
func NewRateLimiter(requestsPerWindow int, window time.Duration, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	limiter := &RateLimiter{
		requests: make(map[string]*bucket),
		rate:     requestsPerWindow,
		window:   window,
		clock:    clk,
		stop:     make(chan struct{}),
	}

	go limiter.cleanup(clk.Ticker(window * 2))

	return limiter
}

// Allow checks if a request from the given identifier is allowed.
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()

	b, exists := rl.requests[identifier]
	if !exists || now.Sub(b.lastReset) > rl.window {
		rl.requests[identifier] = &bucket{
			tokens:    rl.rate - 1,
			lastReset: now,
		}
		return true
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// cleanup periodically removes old buckets.
func (rl *RateLimiter) cleanup(ticker *clock.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.clock.Now()
			for id, b := range rl.requests {
				if now.Sub(b.lastReset) > rl.window*2 {
					delete(rl.requests, id)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}
