// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements session authentication. Authenticate runs globally
// and only annotates the request with the caller's identity when a valid
// session token is presented; RequireAuth and RequireRole guard route groups.
//
// A session token is read from the Authorization header ("Bearer <jwt>")
// first and from the HttpOnly "token" cookie second. Identity is stored in
// the Gin context under "userID" (the normalized email) and "role".
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/tokens"
)

// SessionCookie is the cookie that carries the session token for browsers.
const SessionCookie = "token"

const (
	ctxKeyUserID = "userID"
	ctxKeyRole   = "role"
)

// SessionParser verifies a raw session token. *tokens.Signer satisfies it.
type SessionParser interface {
	ParseSession(raw string) (*tokens.SessionClaims, error)
}

// Authenticate parses the session token when present and stores the caller's
// identity in the context. Missing or invalid tokens are not an error here;
// downstream RequireAuth decides whether a route needs a session.
//
// Place it before the idempotency validator and the rate limiter so both
// can key on the authenticated user.
func Authenticate(p SessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := sessionToken(c); raw != "" && p != nil {
			if claims, err := p.ParseSession(raw); err == nil && claims.Subject != "" {
				c.Set(ctxKeyUserID, claims.Subject)
				c.Set(ctxKeyRole, claims.Role)
			}
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if h := strings.TrimSpace(c.GetHeader("Authorization")); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if v, err := c.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}

// RequireAuth rejects requests without an authenticated user with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole rejects authenticated callers whose role is not listed with
// 403. Unauthenticated callers get 401.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = struct{}{}
	}
	return func(c *gin.Context) {
		if UserID(c) == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if _, ok := allowed[strings.ToLower(Role(c))]; !ok {
			abortJSON(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user's email, or "" when anonymous.
func UserID(c *gin.Context) string {
	v, _ := c.Get(ctxKeyUserID)
	return asString(v)
}

// Role returns the authenticated user's role, or "" when anonymous.
func Role(c *gin.Context) string {
	v, _ := c.Get(ctxKeyRole)
	return asString(v)
}

// abortJSON writes the error envelope shared with the handlers package.
func abortJSON(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
