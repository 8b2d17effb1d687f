package gateway

import (
	"fmt"
	"time"

	"github.com/crolens/crolens-api/internal/kv"
)

// limiter wraps the KV cache's fixed-window counters with the three rate
// families spec §4.1 step 3 names: JSON-RPC per-IP, free-tier per-key per
// hour, and per-IP quote/verify limits.
type limiter struct {
	cache *kv.Cache
}

func newLimiter(cache *kv.Cache) *limiter {
	return &limiter{cache: cache}
}

// verdict reports whether a call is admitted, and — when it is not — how
// many seconds remain in the current window for a Retry-After header.
type verdict struct {
	Allowed        bool
	RetryAfterSecs int
}

// allow increments the fixed-window counter for key and reports whether
// the count is still within limit. limit <= 0 means unbounded.
func (l *limiter) allow(key string, limit int, window time.Duration) verdict {
	if limit <= 0 {
		return verdict{Allowed: true}
	}
	count, retryAfter := l.cache.IncrCounter(key, window)
	if count > limit {
		return verdict{Allowed: false, RetryAfterSecs: retryAfter}
	}
	return verdict{Allowed: true}
}

func jsonrpcIPKey(ip string) string       { return fmt.Sprintf("ratelimit:jsonrpc:%s", ip) }
func freeTierKeyKey(apiKey string) string { return fmt.Sprintf("ratelimit:freetier:%s", apiKey) }
func quoteIPKey(ip string) string         { return fmt.Sprintf("ratelimit:quote:%s", ip) }
func verifyIPKey(ip string) string        { return fmt.Sprintf("ratelimit:verify:%s", ip) }
