package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/tokens"
)

func newSessionRouter(t *testing.T, signer *tokens.Signer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Authenticate(signer))
	r.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "role": Role(c)})
	})
	r.GET("/me", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "role": Role(c)})
	})
	r.GET("/admin", RequireRole("hr", "master"), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthenticate_BearerCookieAndInvalid(t *testing.T) {
	signer := tokens.NewSigner("middleware-test-secret", time.Hour, time.Hour)
	r := newSessionRouter(t, signer)

	tok, _, err := signer.IssueSession("a@x.com", "approver")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	oneClick, err := signer.IssueOneClick("ZFL202501", "a@x.com", "Accepted")
	if err != nil {
		t.Fatalf("IssueOneClick: %v", err)
	}

	cases := []struct {
		name     string
		setup    func(*http.Request)
		wantCode int
		wantUser string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }, 200, "a@x.com"},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+tok) }, 200, "a@x.com"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok}) }, 200, "a@x.com"},
		{"none", func(*http.Request) {}, 401, ""},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, 401, ""},
		{"one-click token is not a session", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+oneClick) }, 401, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.wantCode {
				t.Fatalf("code = %d, want %d (%s)", w.Code, tc.wantCode, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("json: %v", err)
			}
			if tc.wantCode == 200 && (body["user"] != tc.wantUser || body["role"] != "approver") {
				t.Fatalf("body = %v", body)
			}
			if tc.wantCode == 401 && (body["code"] != "unauthorized" || body["request_id"] == "") {
				t.Fatalf("error body = %v", body)
			}
		})
	}

	// Anonymous requests pass through Authenticate untouched.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("open route = %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	signer := tokens.NewSigner("middleware-test-secret", time.Hour, time.Hour)
	r := newSessionRouter(t, signer)

	for role, want := range map[string]int{"user": 403, "approver": 403, "hr": 204, "master": 204} {
		tok, _, _ := signer.IssueSession("a@x.com", role)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("role %s: code = %d, want %d", role, w.Code, want)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous admin = %d", w.Code)
	}
}
