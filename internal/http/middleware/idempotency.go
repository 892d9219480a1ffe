package middleware

// Idempotency-Key handling for unsafe requests. The middleware validates the
// header, stashes the key for handlers, and on replayable routes asks a narrow
// lookup whether the key is already in the ledger so replays skip the rate
// limiter.

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderIdempotencyKey carries the client's deduplication key.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotencyReplayed is set to "true" on responses to a replayed key.
	HeaderIdempotencyReplayed = "Idempotency-Replayed"

	// DefaultIdempotencyKeyMaxLen caps accepted keys when no MaxLen is given.
	DefaultIdempotencyKeyMaxLen = 200
)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: key already in the ledger
	ctxKeyRateBypass = "rate.bypass" // bool: skip rate limiting
)

var defaultIdempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found the request's key in the ledger.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 use DefaultIdempotencyKeyMaxLen.
	MaxLen int
	// Pattern restricts allowed characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// ReplayRoutes lists the "METHOD /full/path" patterns whose writes are
	// deduplicated by the ledger. Only these consult the lookup; a key sent
	// anywhere else is validated and stashed but never bypasses rate limits.
	ReplayRoutes []string
}

// ReplayRoute formats a ReplayRoutes entry.
func ReplayRoute(method, fullPath string) string { return method + " " + fullPath }

// IdempotencyLookup reports whether key is recorded and unexpired. Retention
// is the ledger's business, not the middleware's.
type IdempotencyLookup func(ctx context.Context, key string) (bool, error)

// IdempotencyValidator validates Idempotency-Key when present. A malformed key
// is rejected with 400 bad_idempotency_key. On ReplayRoutes a known key marks
// the request as a replay and lets it bypass rate limiting. Lookup errors are
// logged and otherwise ignored: the store still deduplicates on write.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = DefaultIdempotencyKeyMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdempotencyKeyPattern
	}
	replayable := make(map[string]struct{}, len(opts.ReplayRoutes))
	for _, r := range opts.ReplayRoutes {
		replayable[r] = struct{}{}
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": GetRequestID(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if _, ok := replayable[ReplayRoute(c.Request.Method, c.FullPath())]; !ok || lookup == nil {
			c.Next()
			return
		}

		exists, err := lookup(c.Request.Context(), key)
		if err != nil {
			lg := LoggerFrom(c)
			lg.Warn().Err(err).Msg("idempotency lookup failed")
		}
		if exists {
			c.Set(ctxKeyIdemReplay, true)
			c.Set(ctxKeyRateBypass, true)
		}

		c.Next()
	}
}
