package rsajwt

import (
	"sync"
	"time"
)

const defaultMaxPeers = 10000

// RateLimiter is a per-key token bucket, keyed by whatever identifies a peer
// (remote address, username). It is safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	peers    map[string]*peerBucket
	capacity int
	window   time.Duration
	maxPeers int
	closed   bool
	now      func() time.Time
}

type peerBucket struct {
	available int
	refilled  time.Time
}

// refill credits tokens earned since the last refill, capped at capacity.
// A full window restores the whole bucket.
func (b *peerBucket) refill(now time.Time, capacity int, window time.Duration) {
	elapsed := now.Sub(b.refilled)
	if elapsed <= 0 {
		return
	}
	if elapsed >= window {
		b.available = capacity
		b.refilled = now
		return
	}

	earned := int(int64(capacity) * int64(elapsed) / int64(window))
	if earned > 0 {
		b.available = min(b.available+earned, capacity)
		b.refilled = now
	}
}

// NewRateLimiter allows maxRate requests per window for each key. Invalid
// arguments fall back to 100 per minute.
func NewRateLimiter(maxRate int, window time.Duration) *RateLimiter {
	if maxRate <= 0 {
		maxRate = 100
	}
	if window <= 0 {
		window = time.Minute
	}

	return &RateLimiter{
		peers:    make(map[string]*peerBucket),
		capacity: maxRate,
		window:   window,
		maxPeers: defaultMaxPeers,
		now:      time.Now,
	}
}

// Allow reports whether one more request for key fits in its bucket.
// An empty key is always refused.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.AllowN(key, 1)
}

// AllowN reports whether n requests for key fit, consuming them if so.
// n <= 0 is always allowed.
func (rl *RateLimiter) AllowN(key string, n int) bool {
	switch {
	case n <= 0:
		return true
	case key == "" || n > rl.capacity:
		return false
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.closed {
		return false
	}

	now := rl.now()
	b, ok := rl.peers[key]
	if !ok {
		if len(rl.peers) >= rl.maxPeers {
			rl.dropStalestUnsafe()
		}
		b = &peerBucket{available: rl.capacity, refilled: now}
		rl.peers[key] = b
	} else {
		b.refill(now, rl.capacity, rl.window)
	}

	if b.available < n {
		return false
	}
	b.available -= n
	return true
}

// Reset forgets the bucket for key.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.peers, key)
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.peers)
}

// Close refuses all later requests. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.closed = true
	rl.peers = nil
}

// dropStalestUnsafe removes the bucket refilled longest ago.
func (rl *RateLimiter) dropStalestUnsafe() {
	var (
		stalest string
		oldest  time.Time
		found   bool
	)
	for key, b := range rl.peers {
		if !found || b.refilled.Before(oldest) {
			stalest, oldest, found = key, b.refilled, true
		}
	}
	if found {
		delete(rl.peers, stalest)
	}
}
