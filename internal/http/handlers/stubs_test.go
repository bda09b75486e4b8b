package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/services"
)

// Stubs embed the interface so unconfigured methods panic loudly.

type stubApprovals struct {
	ApprovalService
	create      func(ctx context.Context, owner string, in services.ApprovalInput, key string) (*domain.Approval, bool, error)
	saveDraft   func(ctx context.Context, owner string, in services.ApprovalInput) (*domain.Approval, error)
	submitDraft func(ctx context.Context, un, actor, role string) (*domain.Approval, error)
	get         func(ctx context.Context, un, viewer, role string) (*domain.Approval, error)
	mine        func(ctx context.Context, me string, p services.Page) ([]domain.Approval, int64, error)
	mineStats   func(ctx context.Context, me string) (int64, *time.Time, error)
	byMe        func(ctx context.Context, me string, st domain.StepStatus, p services.Page) ([]domain.Approval, int64, error)
	forApprover func(ctx context.Context, username string, p services.Page) ([]domain.Approval, int64, error)
	decide      func(ctx context.Context, un, actor string, action domain.StepStatus, comment string) (*domain.Approval, error)
	addAtt      func(ctx context.Context, un, actor, role string, files []services.Upload, draftOnly bool) ([]domain.Attachment, error)
	attachment  func(ctx context.Context, un, attID, viewer, role string) (*domain.Attachment, []byte, error)
}

func (s stubApprovals) Create(ctx context.Context, owner string, in services.ApprovalInput, key string) (*domain.Approval, bool, error) {
	return s.create(ctx, owner, in, key)
}

func (s stubApprovals) SaveDraft(ctx context.Context, owner string, in services.ApprovalInput) (*domain.Approval, error) {
	return s.saveDraft(ctx, owner, in)
}

func (s stubApprovals) SubmitDraft(ctx context.Context, un, actor, role string) (*domain.Approval, error) {
	return s.submitDraft(ctx, un, actor, role)
}

func (s stubApprovals) Get(ctx context.Context, un, viewer, role string) (*domain.Approval, error) {
	return s.get(ctx, un, viewer, role)
}

func (s stubApprovals) Mine(ctx context.Context, me string, p services.Page) ([]domain.Approval, int64, error) {
	return s.mine(ctx, me, p)
}

func (s stubApprovals) MineStats(ctx context.Context, me string) (int64, *time.Time, error) {
	return s.mineStats(ctx, me)
}

func (s stubApprovals) ByMe(ctx context.Context, me string, st domain.StepStatus, p services.Page) ([]domain.Approval, int64, error) {
	return s.byMe(ctx, me, st, p)
}

func (s stubApprovals) ForApprover(ctx context.Context, username string, p services.Page) ([]domain.Approval, int64, error) {
	return s.forApprover(ctx, username, p)
}

func (s stubApprovals) Decide(ctx context.Context, un, actor string, action domain.StepStatus, comment string) (*domain.Approval, error) {
	return s.decide(ctx, un, actor, action, comment)
}

func (s stubApprovals) AddAttachments(ctx context.Context, un, actor, role string, files []services.Upload, draftOnly bool) ([]domain.Attachment, error) {
	return s.addAtt(ctx, un, actor, role, files, draftOnly)
}

func (s stubApprovals) Attachment(ctx context.Context, un, attID, viewer, role string) (*domain.Attachment, []byte, error) {
	return s.attachment(ctx, un, attID, viewer, role)
}

type stubChat struct {
	ChatService
	post  func(ctx context.Context, un, author, text string) (*domain.ChatMessage, error)
	list  func(ctx context.Context, un string) ([]domain.ChatMessage, error)
	stats func(ctx context.Context, un string) (int64, *time.Time, error)
}

func (s stubChat) Post(ctx context.Context, un, author, text string) (*domain.ChatMessage, error) {
	return s.post(ctx, un, author, text)
}

func (s stubChat) List(ctx context.Context, un string) ([]domain.ChatMessage, error) {
	return s.list(ctx, un)
}

func (s stubChat) Stats(ctx context.Context, un string) (int64, *time.Time, error) {
	return s.stats(ctx, un)
}

type stubTokens struct {
	TokenService
	redeem     func(ctx context.Context, tok, comment string) (*domain.Approval, error)
	redeemWith func(ctx context.Context, tok string, action domain.StepStatus, comment string) (*domain.Approval, error)
	preview    func(ctx context.Context, tok string) (*services.Preview, error)
}

func (s stubTokens) Redeem(ctx context.Context, tok, comment string) (*domain.Approval, error) {
	return s.redeem(ctx, tok, comment)
}

func (s stubTokens) RedeemWithComment(ctx context.Context, tok string, action domain.StepStatus, comment string) (*domain.Approval, error) {
	return s.redeemWith(ctx, tok, action, comment)
}

func (s stubTokens) Preview(ctx context.Context, tok string) (*services.Preview, error) {
	return s.preview(ctx, tok)
}

type stubAuth struct {
	AuthService
	signup func(ctx context.Context, email, pw, confirm string) error
	verify func(ctx context.Context, email, code string) (*domain.User, error)
	login  func(ctx context.Context, email, pw string) (*services.Session, error)
	me     func(ctx context.Context, email string) (*domain.User, error)
}

func (s stubAuth) Signup(ctx context.Context, email, pw, confirm string) error {
	return s.signup(ctx, email, pw, confirm)
}

func (s stubAuth) VerifySignup(ctx context.Context, email, code string) (*domain.User, error) {
	return s.verify(ctx, email, code)
}

func (s stubAuth) Login(ctx context.Context, email, pw string) (*services.Session, error) {
	return s.login(ctx, email, pw)
}

func (s stubAuth) Me(ctx context.Context, email string) (*domain.User, error) {
	return s.me(ctx, email)
}

type stubAdmin struct {
	AdminService
	override func(ctx context.Context, un, actor, approver string, st domain.StepStatus, comment string) (*domain.Approval, error)
	del      func(ctx context.Context, un, actor string) error
}

func (s stubAdmin) Override(ctx context.Context, un, actor, approver string, st domain.StepStatus, comment string) (*domain.Approval, error) {
	return s.override(ctx, un, actor, approver, st, comment)
}

func (s stubAdmin) Delete(ctx context.Context, un, actor string) error {
	return s.del(ctx, un, actor)
}

type stubMigrations struct {
	MigrationService
	migrate func(ctx context.Context, actor string, dryRun bool) (services.MigrationReport, error)
}

func (s stubMigrations) MigrateApproversToEmail(ctx context.Context, actor string, dryRun bool) (services.MigrationReport, error) {
	return s.migrate(ctx, actor, dryRun)
}

type stubDirectory struct {
	DirectoryService
	search func(ctx context.Context, q string, k int) ([]domain.DirectoryEntry, error)
}

func (s stubDirectory) Search(ctx context.Context, q string, k int) ([]domain.DirectoryEntry, error) {
	return s.search(ctx, q, k)
}

//
// Test plumbing
//

// asUser stands in for the session middleware.
func asUser(email, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-test")
		if email != "" {
			c.Set("userID", email)
			c.Set("role", role)
		}
		c.Next()
	}
}

func newEngine(email, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asUser(email, role))
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("error body: %v (%s)", err, w.Body.String())
	}
	return er
}

func pendingApproval(un string) *domain.Approval {
	return &domain.Approval{
		UniqueNumber: un,
		CreatedBy:    "req@x.com",
		Approvers: []domain.ApproverStep{
			{Name: "mgr@x.com", Status: domain.StepPending},
			{Name: "hr@x.com", Status: domain.StepPending},
		},
	}
}
