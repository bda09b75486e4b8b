package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-claims-backend/internal/observability"
)

// KeyFunc maps a request to the identity whose bucket it draws from.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys signed-in callers by email and everyone else by client IP.
// The prefixes keep the two namespaces disjoint.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByIP ignores the session. Signup and login use it because the email in
// those bodies is chosen by the caller.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

const (
	defaultIdleTTL    = 10 * time.Minute
	defaultSweepEvery = time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter hands out one token bucket per key. Buckets idle for longer
// than the idle TTL are dropped by a sweep that piggybacks on lookups, at
// most once per sweep interval. Safe for concurrent use.
type RateLimiter struct {
	scope string
	limit rate.Limit
	burst int
	key   KeyFunc

	idleTTL    time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to
// burst (at least 1). Scope names the limiter in the rejection metric.
func NewRateLimiter(scope string, rps float64, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		scope:      scope,
		limit:      rate.Limit(rps),
		burst:      max(burst, 1),
		key:        key,
		idleTTL:    defaultIdleTTL,
		sweepEvery: defaultSweepEvery,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

// limiterFor returns the bucket for k, sweeping idle buckets first so a
// stale entry is replaced rather than refreshed.
func (rl *RateLimiter) limiterFor(k string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.sweepEvery {
		for id, b := range rl.buckets {
			if now.Sub(b.seen) >= rl.idleTTL {
				delete(rl.buckets, id)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[k]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[k] = b
	}
	b.seen = now
	return b.lim
}

// size reports how many buckets are live.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether IdempotencyValidator found a stored response
// for this request. Replays do not spend tokens.
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler rejects over-limit requests with 429 and a Retry-After hint sized
// to the refill rate.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	retryAfter := "1"
	if rl.limit > 0 && rl.limit < 1 {
		retryAfter = strconv.Itoa(int(1/float64(rl.limit) + 0.5))
	}
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.limiterFor(rl.key(c)).Allow() {
			c.Next()
			return
		}
		observability.RateLimited.WithLabelValues(rl.scope).Inc()
		c.Header("Retry-After", retryAfter)
		abortJSON(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}
