// Package handlers exposes the claims API over HTTP.
//
// Handlers are transport-thin: they bind and validate input, read the
// authenticated identity placed in the Gin context by the auth middleware,
// call application services, and translate results into responses. All
// service dependencies are consumer-side interfaces so tests can stub them.
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/http/middleware"
	"github.com/tbourn/go-claims-backend/internal/services"
	"github.com/tbourn/go-claims-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ApprovalService defines claim lifecycle operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor ctx for
// cancellation and timeouts.
type ApprovalService interface {
	NextID(ctx context.Context, now time.Time) (string, error)
	SaveDraft(ctx context.Context, owner string, in services.ApprovalInput) (*domain.Approval, error)
	SubmitDraft(ctx context.Context, uniqueNumber, actor, actorRole string) (*domain.Approval, error)
	Create(ctx context.Context, owner string, in services.ApprovalInput, idemKey string) (*domain.Approval, bool, error)
	Get(ctx context.Context, uniqueNumber, viewer, role string) (*domain.Approval, error)

	Mine(ctx context.Context, me string, p services.Page) ([]domain.Approval, int64, error)
	MineStats(ctx context.Context, me string) (int64, *time.Time, error)
	Actor(ctx context.Context, me string, p services.Page) ([]domain.Approval, int64, error)
	NeedsMyAction(ctx context.Context, me string, p services.Page) ([]domain.Approval, int64, error)
	ByMe(ctx context.Context, me string, status domain.StepStatus, p services.Page) ([]domain.Approval, int64, error)
	All(ctx context.Context, p services.Page) ([]domain.Approval, int64, error)
	ForUser(ctx context.Context, username, viewer, role string, p services.Page) ([]domain.Approval, int64, error)
	ForApprover(ctx context.Context, username string, p services.Page) ([]domain.Approval, int64, error)
	Drafts(ctx context.Context, username, viewer, role string, p services.Page) ([]domain.Approval, int64, error)
	Expert(ctx context.Context, me string, p services.Page) ([]domain.Approval, int64, error)

	Decide(ctx context.Context, uniqueNumber, actor string, action domain.StepStatus, comment string) (*domain.Approval, error)
	AddAttachments(ctx context.Context, uniqueNumber, actor, role string, files []services.Upload, draftOnly bool) ([]domain.Attachment, error)
	Attachment(ctx context.Context, uniqueNumber, attachmentID, viewer, role string) (*domain.Attachment, []byte, error)
}

// ChatService posts and lists discussion messages of an approval.
type ChatService interface {
	Post(ctx context.Context, uniqueNumber, author, text string) (*domain.ChatMessage, error)
	List(ctx context.Context, uniqueNumber string) ([]domain.ChatMessage, error)
	Stats(ctx context.Context, uniqueNumber string) (int64, *time.Time, error)
}

// TokenService redeems one-click links from notification mails.
type TokenService interface {
	Redeem(ctx context.Context, token, comment string) (*domain.Approval, error)
	RedeemWithComment(ctx context.Context, token string, action domain.StepStatus, comment string) (*domain.Approval, error)
	Preview(ctx context.Context, token string) (*services.Preview, error)
}

// AuthService registers and authenticates users.
type AuthService interface {
	Signup(ctx context.Context, email, password, confirm string) error
	VerifySignup(ctx context.Context, email, code string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*services.Session, error)
	Me(ctx context.Context, email string) (*domain.User, error)
}

// AdminService holds hr/master corrections. Every call is audited.
type AdminService interface {
	Override(ctx context.Context, uniqueNumber, actor, approverName string, status domain.StepStatus, comment string) (*domain.Approval, error)
	Reset(ctx context.Context, uniqueNumber, actor string) (*domain.Approval, error)
	Reassign(ctx context.Context, uniqueNumber, actor string, names []string) (*domain.Approval, error)
	Delete(ctx context.Context, uniqueNumber, actor string) error
	AuditLog(ctx context.Context, uniqueNumber string) ([]domain.AuditEntry, error)
}

// MigrationService runs batch maintenance over every approval.
type MigrationService interface {
	MigrateApproversToEmail(ctx context.Context, actor string, dryRun bool) (services.MigrationReport, error)
	BackfillFixedChain(ctx context.Context, actor string, dryRun bool) (services.MigrationReport, error)
}

// DirectoryService answers people directory queries.
type DirectoryService interface {
	Profile(ctx context.Context, email string) (services.Profile, error)
	Approvers(ctx context.Context) ([]services.PickerOption, error)
	Search(ctx context.Context, q string, k int) ([]domain.DirectoryEntry, error)
}

//
// Handler wiring
//

// Services bundles the collaborators of Handlers.
type Services struct {
	Approvals  ApprovalService
	Chat       ChatService
	Tokens     TokenService
	Auth       AuthService
	Admin      AdminService
	Migrations MigrationService
	Directory  DirectoryService
}

// Options tunes transport behavior.
type Options struct {
	// CookieSecure marks the session cookie Secure. Enable behind HTTPS.
	CookieSecure bool
	// MaxUploadFiles caps files per attachment request; zero means 10.
	MaxUploadFiles int
	// SearchLimit caps directory search results; zero means 10.
	SearchLimit int
}

// Handlers groups the HTTP endpoints of the claims API.
type Handlers struct {
	approvals  ApprovalService
	chat       ChatService
	tokens     TokenService
	auth       AuthService
	admin      AdminService
	migrations MigrationService
	directory  DirectoryService

	opts Options
	now  func() time.Time
}

// New constructs Handlers bound to the given services.
func New(s Services, o Options) *Handlers {
	if o.MaxUploadFiles <= 0 {
		o.MaxUploadFiles = 10
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = 10
	}
	return &Handlers{
		approvals:  s.Approvals,
		chat:       s.Chat,
		tokens:     s.Tokens,
		auth:       s.Auth,
		admin:      s.Admin,
		migrations: s.Migrations,
		directory:  s.Directory,
		opts:       o,
		now:        time.Now,
	}
}

//
// DTOs
//

// ApprovalView is an approval plus its derived chain status.
type ApprovalView struct {
	domain.Approval
	// Status is derived from the chain and never stored.
	Status domain.ChainStatus `json:"status" example:"Pending"`
}

func view(a *domain.Approval) ApprovalView {
	return ApprovalView{Approval: *a, Status: chain.Derive(a)}
}

func views(items []domain.Approval) []ApprovalView {
	out := make([]ApprovalView, 0, len(items))
	for i := range items {
		out = append(out, view(&items[i]))
	}
	return out
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListApprovalsResponse wraps a page of approvals and pagination information.
type ListApprovalsResponse struct {
	Approvals  []ApprovalView `json:"approvals"`
	Pagination Pagination     `json:"pagination"`
}

//
// Helpers
//

// pageOf reads page and page_size (default 20, max 100).
func pageOf(c *gin.Context) services.Page {
	p, ps := utils.ParsePage(c.Query("page"), c.Query("page_size"), 20, 100)
	return services.Page{Page: p, PageSize: ps}
}

func listResponse(items []domain.Approval, total int64, p services.Page) ListApprovalsResponse {
	totalPages := utils.TotalPages(total, p.PageSize)
	return ListApprovalsResponse{
		Approvals: views(items),
		Pagination: Pagination{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    p.Page < totalPages,
		},
	}
}

// actor is the authenticated email; routes that call it sit behind
// RequireAuth.
func actor(c *gin.Context) string { return middleware.UserID(c) }

func role(c *gin.Context) string { return middleware.Role(c) }

// loggerFor returns the request-scoped logger tagged with the approval.
func loggerFor(c *gin.Context, uniqueNumber string) *zerolog.Logger {
	l := middleware.LoggerFrom(c).With().Str("unique_number", uniqueNumber).Logger()
	return &l
}
