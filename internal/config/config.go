// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, storage, token lifetimes, mail delivery,
// rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-claims-backend/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-claims-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and configures the persistent store.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite file path
	DSN    string // Postgres DSN
}

// TokenConfig holds signing and lifetime settings for session, one-click and
// signup verification credentials.
type TokenConfig struct {
	Secret             string        // JWT_SECRET
	SessionTTL         time.Duration // SESSION_TTL
	OneClickTTL        time.Duration // ONECLICK_TTL
	UsedTokenRetention time.Duration // USED_TOKEN_RETENTION
	OTPTTL             time.Duration // OTP_TTL
}

// ChainConfig holds the fixed approvers appended after the manager step.
type ChainConfig struct {
	HREmail       string
	AccountsEmail string
}

// MailConfig selects the outbound mail transport.
type MailConfig struct {
	Transport     string // log|smtp|nats
	From          string
	OverrideEmail string // NOTIFY_OVERRIDE_EMAIL; redirects every message when set

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	NATSURL     string
	NATSSubject string

	Workers   int // async dispatch workers
	QueueSize int // buffered notices before drops
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	BaseURL           string        // public origin used in mailed links

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DB             DBConfig
	Tokens         TokenConfig
	Chain          ChainConfig
	Mail           MailConfig
	UploadDir      string        // attachment store root
	MaxUploadBytes int64         // per-request upload cap
	SweepInterval  time.Duration // housekeeping ticker

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// Load reads the environment, fills defaults, normalizes and validates.
// Every invalid setting is reported, not only the first.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "claims.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		Tokens: TokenConfig{
			Secret:             getenv("JWT_SECRET", ""),
			SessionTTL:         getdur("SESSION_TTL", 8*time.Hour),
			OneClickTTL:        getdur("ONECLICK_TTL", 7*24*time.Hour),
			UsedTokenRetention: getdur("USED_TOKEN_RETENTION", 30*24*time.Hour),
			OTPTTL:             getdur("OTP_TTL", 5*time.Minute),
		},
		Chain: ChainConfig{
			HREmail:       normEmail(getenv("HR_EMAIL", "hr@example.com")),
			AccountsEmail: normEmail(getenv("ACCOUNTS_EMAIL", "accounts@example.com")),
		},
		Mail: MailConfig{
			Transport:     strings.ToLower(getenv("MAILER", "log")),
			From:          getenv("MAIL_FROM", "Approval Bot <no-reply@example.com>"),
			OverrideEmail: strings.TrimSpace(getenv("NOTIFY_OVERRIDE_EMAIL", "")),
			SMTPHost:      getenv("SMTP_HOST", ""),
			SMTPPort:      getint("SMTP_PORT", 587),
			SMTPUser:      getenv("SMTP_USER", ""),
			SMTPPass:      getenv("SMTP_PASS", ""),
			NATSURL:       getenv("NATS_URL", "nats://127.0.0.1:4222"),
			NATSSubject:   getenv("NATS_SUBJECT", "claims.mail"),
			Workers:       getint("NOTIFY_WORKERS", 2),
			QueueSize:     getint("NOTIFY_QUEUE", 256),
		},
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: getint64("MAX_UPLOAD_BYTES", 10<<20),
		SweepInterval:  getdur("SWEEP_INTERVAL", 10*time.Minute),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-claims-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
	cfg.BaseURL = strings.TrimRight(getenv("BASE_URL", "http://localhost:"+cfg.Port), "/")

	cfg.normalize()
	return cfg, cfg.validate()
}

// devSecret signs tokens outside release mode when JWT_SECRET is unset.
const devSecret = "dev-secret-change-me"

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	switch c.DB.Driver {
	case "postgresql", "pg":
		c.DB.Driver = "postgres"
	}
	if strings.TrimSpace(c.Tokens.Secret) == "" && c.GinMode != "release" {
		c.Tokens.Secret = devSecret
	}
}

// check pairs a failing condition with the message reported for it.
type check struct {
	bad bool
	msg string
}

func (c Config) validate() error {
	release := c.GinMode == "release"
	secret := strings.TrimSpace(c.Tokens.Secret)
	checks := []check{
		{!oneOf(c.LogLevel, "debug", "info", "warn", "error", "fatal", "panic"), "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"},
		{strings.TrimSpace(c.Port) == "", "PORT must not be empty"},
		{c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0, "timeouts must be positive durations"},
		{c.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0"},

		{!oneOf(c.DB.Driver, "sqlite", "postgres"), "DB_DRIVER must be one of: sqlite, postgres"},
		{c.DB.Driver == "sqlite" && strings.TrimSpace(c.DB.Path) == "", "DB_PATH must not be empty"},
		{c.DB.Driver == "postgres" && strings.TrimSpace(c.DB.DSN) == "", "DB_DSN is required when DB_DRIVER=postgres"},

		{secret == "", "JWT_SECRET must be set in release mode"},
		{release && secret != "" && len(secret) < 16, "JWT_SECRET must be at least 16 characters"},
		{c.Tokens.SessionTTL <= 0 || c.Tokens.OneClickTTL <= 0 || c.Tokens.OTPTTL <= 0, "SESSION_TTL, ONECLICK_TTL and OTP_TTL must be > 0"},
		{c.Tokens.UsedTokenRetention < 0, "USED_TOKEN_RETENTION must be >= 0"},
		{!strings.Contains(c.Chain.HREmail, "@") || !strings.Contains(c.Chain.AccountsEmail, "@"), "HR_EMAIL and ACCOUNTS_EMAIL must be email addresses"},

		{!oneOf(c.Mail.Transport, "log", "smtp", "nats"), "MAILER must be one of: log, smtp, nats"},
		{c.Mail.Transport == "smtp" && strings.TrimSpace(c.Mail.SMTPHost) == "", "SMTP_HOST is required when MAILER=smtp"},
		{c.Mail.Workers < 1, "NOTIFY_WORKERS must be >= 1"},
		{c.Mail.QueueSize < 1, "NOTIFY_QUEUE must be >= 1"},

		{strings.TrimSpace(c.UploadDir) == "", "UPLOAD_DIR must not be empty"},
		{c.MaxUploadBytes <= 0, "MAX_UPLOAD_BYTES must be > 0"},
		{c.SweepInterval <= 0, "SWEEP_INTERVAL must be > 0"},
		{c.RateRPS < 0, "RATE_RPS must be >= 0"},
		{c.RateBurst < 1, "RATE_BURST must be >= 1"},
		{c.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0"},
		{c.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0"},
		{c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]"},
	}

	var errs []error
	for _, ch := range checks {
		if ch.bad {
			errs = append(errs, errors.New(ch.msg))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// lookup returns the parsed value of k, or def when k is unset, empty or
// does not parse.
func lookup[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	if out, err := parse(v); err == nil {
		return out
	}
	return def
}

func getenv(k, def string) string {
	return lookup(k, def, func(s string) (string, error) { return s, nil })
}

func getint(k string, def int) int { return lookup(k, def, strconv.Atoi) }

func getint64(k string, def int64) int64 {
	return lookup(k, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func getfloat(k string, def float64) float64 {
	return lookup(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getdur(k string, def time.Duration) time.Duration { return lookup(k, def, time.ParseDuration) }

var errNotBool = errors.New("not a boolean")

func getbool(k string, def bool) bool {
	return lookup(k, def, func(s string) (bool, error) {
		if sysutil.IsTruthy(s) {
			return true, nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errNotBool
	})
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath returns p with one leading slash and no trailing slash;
// blank means root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
