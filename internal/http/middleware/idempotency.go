// Idempotency support for POST /approvals. The validator only checks the
// key and flags replays; the approval service stores the key next to the
// claim it created and answers the replay itself.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the canonical request header that clients use to
// convey an idempotency key for unsafe operations.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set to "true" on responses served from a
// previously completed request.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the key IdempotencyValidator accepted, if any.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	k := c.GetString(ctxKeyIdemKey)
	return k, k != ""
}

// IsReplay reports whether a completed request with the same user, scope and
// key is on record.
func IsReplay(c *gin.Context) bool { return c.GetBool(ctxKeyIdemReplay) }

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Scope names the operation a request belongs to, e.g. "approvals:create".
	// An empty result (or a nil func) skips the lookup for that request.
	Scope func(*gin.Context) string
}

// IdempotencyLookup answers whether a still-valid completed request exists
// for (userID, scope, key) at now. TTL is enforced by the implementation.
// Errors never block the request; they only disable the replay hint.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator rejects malformed Idempotency-Key headers with 400
// and, for signed-in callers on a scoped route, marks replays so the rate
// limiter lets them through. Requests without the header pass untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil && opts.Scope != nil {
			uid := UserID(c)
			scope := opts.Scope(c)
			if uid != "" && scope != "" {
				exists, err := lookup(c.Request.Context(), uid, scope, key, time.Now().UTC())
				if err != nil {
					LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
				}
				if exists {
					c.Set(ctxKeyIdemReplay, true)
					c.Set(ctxKeyRateBypass, true)
				}
			}
		}

		c.Next()
	}
}
