// Package kv provides the TTL-bounded fingerprint→bytes cache (C1) that
// backs the RPC response cache, the price oracle, and the gateway's
// fixed-window rate-limit counters. It wraps ristretto the same way the
// teacher's infra.Handlers wraps it for GetCachedData, generalized into a
// reusable component instead of a single demo handler.
package kv

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a TTL-bounded key-value store. A single writer per key is not
// required; concurrent writers racing on the same key may interleave, and
// callers must treat the store as opportunistic, never a source of truth.
type Cache struct {
	rc *ristretto.Cache[string, []byte]
}

// New constructs a Cache sized for response-cache-scale workloads.
func New() (*Cache, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e7,
		MaxCost:     1 << 30,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{rc: rc}, nil
}

// Get returns the cached value for key, and whether it was present and not
// expired. Ristretto's own TTL handles expiry; a value past its TTL never
// comes back from Get.
func (c *Cache) Get(key string) ([]byte, bool) {
	v, ok := c.rc.Get(key)
	if !ok {
		return nil, false
	}
	return v, true
}

// Set stores value under key with the given TTL. Cost is fixed at the byte
// length, which keeps ristretto's admission policy meaningful without
// requiring callers to reason about cost units.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	c.rc.SetWithTTL(key, value, int64(len(value)), ttl)
}

// Del removes key immediately.
func (c *Cache) Del(key string) {
	c.rc.Del(key)
}

// Wait blocks until pending writes are visible to Get. Tests use this to
// avoid racing ristretto's async write buffer, and the gateway's KV
// health probe calls it between its write and its read.
func (c *Cache) Wait() {
	c.rc.Wait()
}

// Close releases cache resources.
func (c *Cache) Close() {
	c.rc.Close()
}

// IncrCounter implements a fixed-window counter: the first increment for a
// window stamps the window's start time and the count starts at 1;
// subsequent increments within the window extend the stored count but
// never move the window's start, so a burst near the window boundary
// cannot extend admission past the original window. Once the window's
// life has elapsed the next increment resets count and windowStart,
// rather than keeping the key alive forever under sustained traffic. It
// returns the new count after the increment and the number of seconds
// left in the window, for callers that need a Retry-After value.
//
// This is best-effort under ristretto's async write buffer: concurrent
// increments racing on the same key can each observe the pre-increment
// count and still produce a count that is off by a small, bounded amount
// near the window boundary.
func (c *Cache) IncrCounter(key string, window time.Duration) (count int, retryAfterSecs int) {
	now := time.Now()
	raw, ok := c.Get(key)
	windowStart := now
	if ok {
		count, windowStart = decodeWindow(raw)
	}
	if !ok || now.Sub(windowStart) >= window {
		count = 0
		windowStart = now
	}
	count++

	remaining := window - now.Sub(windowStart)
	if remaining < 0 {
		remaining = 0
	}
	c.Set(key, encodeWindow(count, windowStart), remaining)

	return count, int(remaining.Seconds())
}

func encodeWindow(n int, windowStart time.Time) []byte {
	b := make([]byte, 16)
	for i := 0; i < 8; i++ {
		b[i] = byte(n >> (8 * i))
	}
	unixNano := windowStart.UnixNano()
	for i := 0; i < 8; i++ {
		b[8+i] = byte(unixNano >> (8 * i))
	}
	return b
}

func decodeWindow(b []byte) (count int, windowStart time.Time) {
	if len(b) < 16 {
		return 0, time.Now()
	}
	n := 0
	for i := 0; i < 8; i++ {
		n |= int(b[i]) << (8 * i)
	}
	var unixNano int64
	for i := 0; i < 8; i++ {
		unixNano |= int64(b[8+i]) << (8 * i)
	}
	return n, time.Unix(0, unixNano)
}
