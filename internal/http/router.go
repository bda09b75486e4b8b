// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// sessions, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/config"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/http/handlers"
	"github.com/tbourn/go-claims-backend/internal/http/middleware"
	"github.com/tbourn/go-claims-backend/internal/repo"
	"github.com/tbourn/go-claims-backend/internal/services"
)

const (
	// jsonBodyLimit caps every non-multipart request body.
	jsonBodyLimit = 1 << 20

	// Signup and login are keyed by IP with a tighter bucket than the API.
	authRPS   = 0.5
	authBurst = 10
)

// Deps are the collaborators RegisterRoutes needs. DB backs the
// idempotency lookup; Sessions verifies session tokens.
type Deps struct {
	DB       *gorm.DB
	Sessions middleware.SessionParser
	Services handlers.Services
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), sessions,
// idempotency and rate limiting, CORS and security headers, health and
// metrics endpoints, mounts the versioned public API under cfg.APIBasePath
// and the mail-link pages at the root.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter (multipart gets the upload cap)
//  6. Gzip
//  7. Metrics
//  8. Authenticate: identity for everything below
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per user/IP, bypass on replay)
//  11. CORS and Security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"Cookie", "Set-Cookie"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limit
	r.Use(limitBody(jsonBodyLimit, cfg.MaxUploadBytes))

	// 6) Response compression; attachments are mostly compressed already
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
		gzip.WithExcludedPathsRegexs([]string{`.*/attachments/.+`}),
	))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Session identity (anonymous requests pass through)
	r.Use(middleware.Authenticate(d.Sessions))

	// 9) Idempotency validation (before rate limiting)
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	createPath := strings.TrimRight(apiBase, "/") + "/approvals"
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == createPath {
					return services.IdempotencyScopeCreate
				}
				return ""
			},
		},
		idempotencyLookup(d.DB),
	))

	// 10) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter("global", cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 11) CORS posture (safe defaults: allow all if none configured)
	useCORS(r, cfg.CORS.AllowedOrigins)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(d.Services, handlers.Options{
		CookieSecure: strings.HasPrefix(cfg.BaseURL, "https://"),
	})

	// Mail-link pages: the token is the credential, never cache them.
	mail := r.Group("", middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:            cfg.Security.EnableHSTS,
		HSTSMaxAge:            cfg.Security.HSTSMaxAge,
		NoStore:               true,
		EnablePolicy:          true,
		ContentSecurityPolicy: middleware.MailPagePolicy,
	}))
	{
		mail.GET("/mail-oneclick/:token", h.MailOneClick)
		mail.GET("/mail-action/:token", h.MailActionForm)
		mail.POST("/mail-action/:token", h.MailActionSubmit)
	}

	api := groupWithPrefix(r, apiBase)

	// Auth
	authLimit := middleware.NewRateLimiter("auth", authRPS, authBurst, middleware.KeyByIP()).Handler()
	auth := api.Group("/auth")
	{
		auth.POST("/signup", authLimit, h.Signup)
		auth.POST("/signup/verify", authLimit, h.VerifySignup)
		auth.POST("/login", authLimit, h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.RequireAuth(), h.Me)
	}

	authed := api.Group("", middleware.RequireAuth())
	privileged := middleware.RequireRole(domain.RoleHR, domain.RoleMaster)

	// Directory
	authed.GET("/directory/me", h.DirectoryMe)
	authed.GET("/directory/approvers", h.DirectoryApprovers)
	authed.GET("/directory/search", h.DirectorySearch)

	// Drafts
	authed.POST("/drafts", h.SaveDraft)
	authed.PATCH("/drafts/:id/submit", h.SubmitDraft)
	authed.GET("/drafts/user/:username", h.ListDrafts)
	authed.POST("/drafts/:id/attachments", h.UploadDraftAttachments)

	// Approvals
	authed.GET("/approvals/next-id", h.NextID)
	authed.POST("/approvals", h.CreateApproval)
	authed.GET("/approvals/mine", h.ListMine)
	authed.GET("/approvals/actor", h.ListActor)
	authed.GET("/approvals/needs-my-action", h.ListNeedsMyAction)
	authed.GET("/approvals/by-me", h.ListByMe)
	authed.GET("/approvals/expert", h.ListExpert)
	authed.GET("/approvals/all", privileged, h.ListAll)
	authed.GET("/approvals/user/:username", h.ListForUser)
	authed.GET("/approvals/for-approver/:username", h.ListForApprover)
	authed.GET("/approvals/:id", h.GetApproval)
	authed.DELETE("/approvals/:id", privileged, h.AdminDelete)
	authed.PATCH("/approvals/:id/decision", h.Decide)
	authed.POST("/approvals/:id/attachments", h.UploadAttachments)
	authed.GET("/approvals/:id/attachments/:attID", h.DownloadAttachment)

	// Chat
	authed.GET("/approvals/:id/chat", h.ListChat)
	authed.POST("/approvals/:id/chat", h.PostChat)

	// Admin corrections and batch jobs
	authed.PATCH("/approvals/:id/admin/override", privileged, h.AdminOverride)
	authed.PATCH("/approvals/:id/admin/reset", privileged, h.AdminReset)
	authed.PATCH("/approvals/:id/admin/reassign", privileged, h.AdminReassign)
	authed.GET("/approvals/:id/audit", privileged, h.AuditLog)
	authed.POST("/admin/migrate-approvers", privileged, h.MigrateApprovers)
	authed.POST("/admin/backfill-chain", privileged, h.BackfillChain)
}

// idempotencyLookup reports stored create keys. A nil db disables replay
// detection; the service still dedupes inside its transaction.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	if db == nil {
		return nil
	}
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if err != nil || rec == nil {
			return false, err
		}
		return true, nil
	}
}

// useCORS installs gin-contrib/cors. Session cookies need credentials, which
// browsers refuse together with a wildcard origin, so credentials are only
// allowed with an explicit allowlist.
func useCORS(r *gin.Engine, origins []string) {
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

	if len(origins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
		return
	}

	// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     methods,
		AllowHeaders:     allowHeaders,
		ExposeHeaders:    exposeHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// limitBody returns a Gin middleware that caps the request body size using
// http.MaxBytesReader. Multipart uploads get uploadMax when it is set, all
// other bodies jsonMax. Requests exceeding the cap will cause downstream body
// reads to error.
func limitBody(jsonMax, uploadMax int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := jsonMax
		if uploadMax > 0 && c.ContentType() == "multipart/form-data" {
			limit = uploadMax
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
