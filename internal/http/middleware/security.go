package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions selects the optional response headers. The router installs
// SecurityHeaders once for the API and again, with NoStore and a CSP, on the
// HTML mail-link pages whose URLs carry credentials.
type SecurityOptions struct {
	EnableHSTS            bool          // only honored on HTTPS requests
	HSTSMaxAge            time.Duration // defaults to 180 days
	NoStore               bool          // Cache-Control: no-store and legacy equivalents
	EnablePolicy          bool          // Permissions-Policy and cross-domain policy
	ContentSecurityPolicy string        // sent verbatim when set
}

// MailPagePolicy allows the mail-link pages inline styles and a form posting
// back to this origin, and nothing else.
const MailPagePolicy = "default-src 'none'; style-src 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'; base-uri 'none'"

const defaultHSTSMaxAge = 180 * 24 * time.Hour

type header struct{ name, value string }

// staticHeaders lists the headers that do not depend on the request.
func (o SecurityOptions) staticHeaders() []header {
	hs := []header{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if o.EnablePolicy {
		hs = append(hs,
			header{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			header{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	if o.NoStore {
		hs = append(hs,
			header{"Cache-Control", "no-store"},
			header{"Pragma", "no-cache"},
			header{"Expires", "0"},
		)
	}
	if o.ContentSecurityPolicy != "" {
		hs = append(hs, header{"Content-Security-Policy", o.ContentSecurityPolicy})
	}
	return hs
}

// SecurityHeaders sets the hardening headers before the handler runs. HSTS is
// added only for HTTPS requests, and X-Request-ID is appended to
// Access-Control-Expose-Headers so browsers can read it.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	static := opt.staticHeaders()
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := fmt.Sprintf("max-age=%d; includeSubDomains; preload", int64(maxAge.Seconds()))

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range static {
			h.Set(kv.name, kv.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

// exposeHeader adds name to Access-Control-Expose-Headers unless listed.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	for _, v := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(v), name) {
			return
		}
	}
	if cur == "" {
		h.Set(key, name)
		return
	}
	h.Set(key, cur+", "+name)
}

// isHTTPS reports TLS on the connection or X-Forwarded-Proto: https from a
// terminating proxy.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
