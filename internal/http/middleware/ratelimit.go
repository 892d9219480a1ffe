// Per-IP token-bucket rate limiting. Buckets live in process memory and idle
// ones expire; replays flagged by IdempotencyValidator pass without spending
// a token.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// keyFunc selects the bucket a request draws from.
type keyFunc func(*gin.Context) string

// KeyByIP keys buckets by client address. scope prefixes the key so limiters
// stay distinguishable in debugging output.
func KeyByIP(scope string) keyFunc {
	return func(c *gin.Context) string {
		return scope + ":ip:" + c.ClientIP()
	}
}

// bucketIdleTTL is how long an untouched bucket survives. A bucket idle this
// long has refilled completely, so dropping it loses nothing.
const bucketIdleTTL = 10 * time.Minute

// RateLimiter is a per-key token bucket. Buckets are created on first use and
// held in a go-cache whose janitor evicts idle ones; every hit slides the
// expiry forward. Safe for concurrent use.
type RateLimiter struct {
	name    string
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	buckets *cache.Cache
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (values <= 0 become 1). name labels the rate-limited counter.
func NewRateLimiter(name string, rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		name:    name,
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: cache.New(bucketIdleTTL, bucketIdleTTL/2),
	}
}

// bucket returns the limiter for key, creating it when absent. Concurrent
// first hits race on Add; the loser adopts the winner's bucket.
func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		lim := v.(*rate.Limiter)
		rl.buckets.Set(key, lim, cache.DefaultExpiration)
		return lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	if err := rl.buckets.Add(key, lim, cache.DefaultExpiration); err != nil {
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay, which Handler lets through without spending a token.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Get(ctxKeyRateBypass)
	v, _ := b.(bool)
	return v
}

// Handler enforces the per-key limit. Denied requests get 429 rate_limited
// with Retry-After set to the whole seconds until the next token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.bucket(rl.keyFn(c))

		now := time.Now()
		res := lim.ReserveN(now, 1)
		if res.OK() && res.DelayFrom(now) == 0 {
			c.Next()
			return
		}
		retry := 1
		if res.OK() {
			retry = int(math.Ceil(res.DelayFrom(now).Seconds()))
			res.CancelAt(now)
		}

		rateLimited.WithLabelValues(rl.name).Inc()
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": GetRequestID(c),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
