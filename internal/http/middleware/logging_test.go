package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// captureLogger swaps the global logger for a JSON buffer for one test.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/approvals", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{"absent", "", false},
		{"propagated", "Z-REQ-123", true},
		{"too long", strings.Repeat("x", maxRequestIDLength+1), false},
		{"embedded space", "abc def", false},
		{"control char", "abc\x01", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/approvals", nil)
			if tc.header != "" {
				req.Header.Set(requestIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			if got == "" || got != w.Body.String() {
				t.Fatalf("header %q, context %q", got, w.Body.String())
			}
			if (got == tc.header) != tc.keep {
				t.Fatalf("id = %q, keep=%v", got, tc.keep)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	r.GET("/early", func(*gin.Context) { panic("kaboom") })
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/early", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("early panic status = %d", w.Code)
	}
	body := decodeEnvelope(t, w)
	if body["code"] != "internal_error" || body["request_id"] != w.Header().Get(requestIDHeader) {
		t.Fatalf("envelope = %v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))
	if strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("envelope appended after partial write: %q", w.Body.String())
	}

	if n := strings.Count(buf.String(), `"message":"panic recovered"`); n != 2 {
		t.Fatalf("panic log lines = %d\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("stack missing from panic log")
	}
}

func TestLoggerFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, scoped := range []bool{false, true} {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID())
		if scoped {
			r.Use(RedactingLogger(RedactOptions{}))
		}
		r.GET("/approvals/:id", func(c *gin.Context) {
			LoggerFrom(c).Info().Str("unique_number", c.Param("id")).Msg("loaded")
			c.Status(http.StatusNoContent)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/approvals/ZFL2025001", nil))

		line := strings.SplitN(buf.String(), "\n", 2)[0]
		if !strings.Contains(line, `"message":"loaded"`) || !strings.Contains(line, `"unique_number":"ZFL2025001"`) {
			t.Fatalf("scoped=%v: line = %s", scoped, line)
		}
		hasScope := strings.Contains(line, `"request_id"`) && strings.Contains(line, `"path":"/approvals/:id"`)
		if hasScope != scoped {
			t.Fatalf("scoped=%v: request fields present=%v in %s", scoped, hasScope, line)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"abcdefgh", 5, "abcde…"},
		{"abc", 0, "abc"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.n); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
	if asString(42) != "" || asString("x") != "x" {
		t.Fatalf("asString")
	}
}
