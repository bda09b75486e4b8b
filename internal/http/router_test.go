package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-claims-backend/internal/config"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/filestore"
	"github.com/tbourn/go-claims-backend/internal/http/handlers"
	"github.com/tbourn/go-claims-backend/internal/http/middleware"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/repo"
	"github.com/tbourn/go-claims-backend/internal/services"
	"github.com/tbourn/go-claims-backend/internal/tokens"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		BaseURL:        "http://claims.test",
		RateRPS:        100,
		RateBurst:      50,
		MaxUploadBytes: 1 << 20,
		CORS:           config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:       config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
		Chain:          config.ChainConfig{HREmail: "hr@x.com", AccountsEmail: "acct@x.com"},
	}
}

type stack struct {
	r      *gin.Engine
	signer *tokens.Signer
}

// newStack wires real services over an in-memory database.
func newStack(t *testing.T, cfg config.Config) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	db := newTestDB(t)

	dir := services.NewDirectoryService(db)
	if _, err := dir.Upsert(ctx, []domain.DirectoryEntry{
		{Email: "mgr@x.com", Name: "Maya Manager"},
		{Email: "hr@x.com", Name: "HR Desk"},
		{Email: "acct@x.com", Name: "Accounts Team"},
	}); err != nil {
		t.Fatalf("seed directory: %v", err)
	}
	files, err := filestore.New(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("filestore: %v", err)
	}
	signer := tokens.NewSigner("router-test-secret", time.Hour, time.Hour)
	auth := services.NewAuthService(db, signer, notify.LogMailer{}, dir, time.Minute)

	r := gin.New()
	RegisterRoutes(r, Deps{
		DB:       db,
		Sessions: signer,
		Services: handlers.Services{
			Approvals:  services.NewApprovalService(db, dir, nil, files, cfg.Chain),
			Chat:       services.NewChatService(db, dir, nil),
			Tokens:     services.NewTokenService(db, signer, nil, time.Hour),
			Auth:       auth,
			Admin:      services.NewAdminService(db, files),
			Migrations: services.NewMigrationService(db, dir, cfg.Chain, auth),
			Directory:  dir,
		},
	}, cfg)
	return &stack{r: r, signer: signer}
}

func (s *stack) do(t *testing.T, method, path, who, role string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who != "" {
		tok, _, err := s.signer.IssueSession(who, role)
		if err != nil {
			t.Fatalf("issue session: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	s := newStack(t, testConfig())

	// /health works
	w := s.do(t, http.MethodGet, "/health", "", "", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID")
	}

	// /metrics is wired
	w = s.do(t, http.MethodGet, "/metrics", "", "", nil, nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	if w = s.do(t, http.MethodGet, "/nope", "", "", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	if w = s.do(t, http.MethodPost, "/health", "", "", nil, nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Swagger is off unless enabled
	if w = s.do(t, http.MethodGet, "/swagger/index.html", "", "", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled expected 404, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	s := newStack(t, cfg)

	w := s.do(t, http.MethodGet, "/health", "", "", nil, map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials with allowlist, got %q", got)
	}
}

func TestRoutes_SessionsAndRoles(t *testing.T) {
	s := newStack(t, testConfig())

	cases := []struct {
		name     string
		path     string
		who      string
		role     string
		wantCode int
	}{
		{"anonymous", "/api/v1/approvals/mine", "", "", http.StatusUnauthorized},
		{"user mine", "/api/v1/approvals/mine", "req@x.com", domain.RoleUser, http.StatusOK},
		{"user all", "/api/v1/approvals/all", "req@x.com", domain.RoleUser, http.StatusForbidden},
		{"hr all", "/api/v1/approvals/all", "hr@x.com", domain.RoleHR, http.StatusOK},
		{"master audit", "/api/v1/approvals/ZFL202501/audit", "boss@x.com", domain.RoleMaster, http.StatusOK},
		{"approver audit", "/api/v1/approvals/ZFL202501/audit", "mgr@x.com", domain.RoleApprover, http.StatusForbidden},
		{"directory", "/api/v1/directory/approvers", "req@x.com", domain.RoleUser, http.StatusOK},
		{"me anonymous", "/api/v1/auth/me", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tc.path, tc.who, tc.role, nil, nil)
			if w.Code != tc.wantCode {
				t.Fatalf("GET %s as %q = %d, want %d (%s)", tc.path, tc.role, w.Code, tc.wantCode, w.Body.String())
			}
		})
	}

	// A forged token is treated as anonymous.
	w := s.do(t, http.MethodGet, "/api/v1/approvals/mine", "", "", nil, map[string]string{"Authorization": "Bearer not-a-jwt"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token = %d", w.Code)
	}
}

func TestRoutes_CreateIsIdempotent(t *testing.T) {
	s := newStack(t, testConfig())
	body := `{"reimbursement_type":"Travel","budget":"120.50","approvers":["mgr@x.com"]}`
	key := map[string]string{middleware.HeaderIdempotencyKey: "create-1"}

	w := s.do(t, http.MethodPost, "/api/v1/approvals", "req@x.com", domain.RoleUser, strings.NewReader(body), key)
	if w.Code != http.StatusCreated {
		t.Fatalf("first create = %d %s", w.Code, w.Body.String())
	}
	var first handlers.ApprovalView
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("json: %v", err)
	}
	if first.Status != domain.ChainPending || len(first.Approvers) != 3 || first.Approvers[0].Name != "mgr@x.com" {
		t.Fatalf("created = %+v", first)
	}

	w = s.do(t, http.MethodPost, "/api/v1/approvals", "req@x.com", domain.RoleUser, strings.NewReader(body), key)
	if w.Code != http.StatusOK || w.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay = %d replayed=%q", w.Code, w.Header().Get(middleware.HeaderIdempotencyReplayed))
	}
	var second handlers.ApprovalView
	_ = json.Unmarshal(w.Body.Bytes(), &second)
	if second.UniqueNumber != first.UniqueNumber {
		t.Fatalf("replay returned %q, want %q", second.UniqueNumber, first.UniqueNumber)
	}

	// The manager can see it and decide; the requester cannot decide.
	path := "/api/v1/approvals/" + first.UniqueNumber + "/decision"
	w = s.do(t, http.MethodPatch, path, "req@x.com", domain.RoleUser, strings.NewReader(`{"action":"Accepted"}`), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("requester decision = %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPatch, path, "mgr@x.com", domain.RoleApprover, strings.NewReader(`{"action":"Accepted"}`), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("manager decision = %d %s", w.Code, w.Body.String())
	}
}

func TestRoutes_MailPagesAreHTMLWithPolicy(t *testing.T) {
	s := newStack(t, testConfig())

	w := s.do(t, http.MethodGet, "/mail-oneclick/garbage", "", "", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid token = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if got := w.Header().Get("Content-Security-Policy"); got != middleware.MailPagePolicy {
		t.Fatalf("csp = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Fatalf("cache-control = %q", got)
	}

	// The JSON API does not carry the page policy.
	w = s.do(t, http.MethodGet, "/health", "", "", nil, nil)
	if w.Header().Get("Content-Security-Policy") != "" {
		t.Fatalf("unexpected CSP on API route")
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny caps to trigger MaxBytesReader
	r.Use(limitBody(10, 400))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}

	// Multipart bodies get the upload cap.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("files", "a.txt")
	_, _ = fw.Write([]byte("hello attachments"))
	_ = mw.Close()

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("multipart under upload cap expected 200, got %d (%d bytes)", w.Code, buf.Len())
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}
