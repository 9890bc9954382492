package rsajwt

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(rate int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	rl := NewRateLimiter(rate, window)
	rl.now = clock.Now
	return rl, clock
}

func TestRateLimiterAllow(t *testing.T) {
	rl, clock := newTestLimiter(3, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i)
	}
	assert.False(t, rl.Allow("10.0.0.1"))

	// Other peers have their own bucket.
	assert.True(t, rl.Allow("10.0.0.2"))

	// A third of the window refills one token.
	clock.Advance(20 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))

	clock.Advance(time.Minute)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
}

func TestRateLimiterAllowN(t *testing.T) {
	rl, _ := newTestLimiter(5, time.Minute)
	defer rl.Close()

	assert.True(t, rl.AllowN("peer", 0))
	assert.False(t, rl.AllowN("peer", 6))
	assert.True(t, rl.AllowN("peer", 4))
	assert.False(t, rl.AllowN("peer", 2))
	assert.True(t, rl.AllowN("peer", 1))
	assert.False(t, rl.Allow(""))
}

func TestRateLimiterReset(t *testing.T) {
	rl, _ := newTestLimiter(1, time.Minute)
	defer rl.Close()

	assert.True(t, rl.Allow("peer"))
	assert.False(t, rl.Allow("peer"))
	assert.Equal(t, 1, rl.Len())

	rl.Reset("peer")
	assert.Equal(t, 0, rl.Len())
	assert.True(t, rl.Allow("peer"))
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	defer rl.Close()
	assert.Equal(t, 100, rl.capacity)
	assert.Equal(t, time.Minute, rl.window)
}

func TestRateLimiterEvictsOldestBucket(t *testing.T) {
	rl, clock := newTestLimiter(1, time.Hour)
	defer rl.Close()
	rl.maxPeers = 3

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(fmt.Sprintf("peer-%d", i)))
		clock.Advance(time.Second)
	}
	assert.True(t, rl.Allow("peer-3"))
	assert.Equal(t, 3, rl.Len())

	// peer-0 was evicted and starts with a fresh bucket.
	assert.True(t, rl.Allow("peer-0"))
	assert.False(t, rl.Allow("peer-2"))
}

func TestRateLimiterClose(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	rl.Close()
	rl.Close()
	assert.False(t, rl.Allow("peer"))
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiterConcurrent(t *testing.T) {
	rl, _ := newTestLimiter(50, time.Hour)
	defer rl.Close()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if rl.Allow("shared") {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowed.Load())
}
