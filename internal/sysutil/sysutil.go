// Package sysutil holds process-level helpers shared by the server and the
// admin CLI: logger setup and lenient parsing of flag-like strings.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel sets the global zerolog level from a case-insensitive name
// (trace, debug, info, warn/warning, error, fatal, panic) and returns it.
// Empty or unknown names mean info.
func SetLogLevel(lvl string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(lvl))
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel || level == zerolog.Disabled {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return level
}

// ConfigureLogger installs the process logger as zerolog's global log.Logger
// and returns it. Pretty selects the human-readable console writer for
// local development; otherwise lines are JSON. A nil w means stderr.
func ConfigureLogger(w io.Writer, level string, pretty bool, fields map[string]string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	ctx := zerolog.New(w).With().Timestamp()
	for k, v := range fields {
		ctx = ctx.Str(k, v)
	}
	l := ctx.Logger()
	log.Logger = l
	return l
}

// IsTruthy reports whether a query or environment string means true.
// Accepted values (case-insensitive): "1", "true", "yes", "y", "on".
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first value that is not blank, trimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
