// Approval HTTP handlers.
//
// This file exposes REST endpoints for claims:
//   - GET    /approvals/next-id                 (suggest a unique number)
//   - POST   /approvals                         (submit; Idempotency-Key aware)
//   - GET    /approvals/{id}                    (detail, visibility checked)
//   - GET    /approvals/mine|actor|...          (list views, paginated)
//   - PATCH  /approvals/{id}/decision           (in-app decision)
//   - POST   /approvals/{id}/attachments        (multipart upload)
//   - GET    /approvals/{id}/attachments/{att}  (download)
//   - POST   /drafts, PATCH /drafts/{id}/submit, GET /drafts/user/{username}
package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/http/middleware"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/services"
)

// ApprovalRequest is the JSON payload for drafts and direct submissions.
type ApprovalRequest struct {
	// UniqueNumber is optional; the next free number is assigned when empty.
	UniqueNumber      string          `json:"unique_number"      example:"ZFL202503"`
	Budget            decimal.Decimal `json:"budget"             swaggertype:"string" example:"1250.50"`
	ReimbursementType string          `json:"reimbursement_type" example:"Travel"`
	Purpose           string          `json:"purpose"            example:"Client workshop in Berlin"`
	Details           string          `json:"details"            example:"Flights and two hotel nights"`
	Department        string          `json:"department"         example:"Consulting"`
	// Approvers as typed by the requester; only the manager entry is kept.
	Approvers []string `json:"approvers" example:"maria@example.com"`
}

func (r ApprovalRequest) input() services.ApprovalInput {
	return services.ApprovalInput{
		UniqueNumber:      r.UniqueNumber,
		Budget:            r.Budget,
		ReimbursementType: r.ReimbursementType,
		Purpose:           r.Purpose,
		Details:           r.Details,
		Department:        r.Department,
		Approvers:         r.Approvers,
	}
}

// DecisionRequest is the JSON payload of an in-app decision.
type DecisionRequest struct {
	Action  string `json:"action"  binding:"required" enums:"Accepted,Rejected" example:"Accepted"`
	Comment string `json:"comment" example:"Within budget"`
}

// NextIDResponse carries a suggested unique number.
type NextIDResponse struct {
	UniqueNumber string `json:"unique_number" example:"ZFL202503"`
}

// AttachmentsResponse lists the stored attachment metadata.
type AttachmentsResponse struct {
	Attachments []domain.Attachment `json:"attachments"`
}

// NextID godoc
// @ID          nextApprovalID
// @Summary     Suggest the next unique number
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.NextIDResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /approvals/next-id [get]
func (h *Handlers) NextID(c *gin.Context) {
	id, err := h.approvals.NextID(c.Request.Context(), h.now())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, NextIDResponse{UniqueNumber: id})
}

// CreateApproval godoc
// @ID          createApproval
// @Summary     Submit a claim
// @Description Creates a non-draft approval with the fixed chain manager → HR → Accounts.
// @Description Supports idempotency via the Idempotency-Key header (same key → same approval).
// @Tags        Approvals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.ApprovalRequest  true  "Claim"
//
// @Success     201  {object}  handlers.ApprovalView
// @Success     200  {object}  handlers.ApprovalView  "Replayed"
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     409  {object}  handlers.ErrorResponse  "Duplicate unique number"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /approvals [post]
func (h *Handlers) CreateApproval(c *gin.Context) {
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	a, replayed, err := h.approvals.Create(c.Request.Context(), actor(c), req.input(), key)
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
		ok(c, http.StatusOK, view(a))
		return
	}
	ok(c, http.StatusCreated, view(a))
}

// GetApproval godoc
// @ID          getApproval
// @Summary     Get a claim
// @Description Visible to the requester, any named approver and mentioned experts; other users get 403.
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Unique number"  example(ZFL202501)
// @Success     200  {object}  handlers.ApprovalView
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /approvals/{id} [get]
func (h *Handlers) GetApproval(c *gin.Context) {
	a, err := h.approvals.Get(c.Request.Context(), c.Param("id"), actor(c), role(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view(a))
}

// ListMine godoc
// @ID          listMyApprovals
// @Summary     List my claims (paginated)
// @Description Claims created by the caller. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /approvals/mine [get]
func (h *Handlers) ListMine(c *gin.Context) {
	ctx := c.Request.Context()
	me := actor(c)
	p := pageOf(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.approvals.MineStats(ctx, me); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"approvals:%s:%d:%d:%d:%d"`, me, count, ts, p.Page, p.PageSize)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.approvals.Mine(ctx, me, p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}

// ListActor godoc
// @ID          listActorApprovals
// @Summary     List claims where I am on the chain
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Router      /approvals/actor [get]
func (h *Handlers) ListActor(c *gin.Context) {
	p := pageOf(c)
	items, total, err := h.approvals.Actor(c.Request.Context(), actor(c), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}

// ListNeedsMyAction godoc
// @ID          listNeedsMyAction
// @Summary     List submitted claims whose current turn is mine
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Router      /approvals/needs-my-action [get]
func (h *Handlers) ListNeedsMyAction(c *gin.Context) {
	p := pageOf(c)
	items, total, err := h.approvals.NeedsMyAction(c.Request.Context(), actor(c), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}

// ListByMe godoc
// @ID          listDecidedByMe
// @Summary     List claims I accepted or rejected
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Param       status     query  string  true   "Decision"  Enums(Accepted, Rejected)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad status"
// @Router      /approvals/by-me [get]
func (h *Handlers) ListByMe(c *gin.Context) {
	p := pageOf(c)
	status := domain.StepStatus(strings.TrimSpace(c.Query("status")))
	items, total, err := h.approvals.ByMe(c.Request.Context(), actor(c), status, p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}

// ListAll godoc
// @ID          listAllApprovals
// @Summary     List every claim (hr/master)
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /approvals/all [get]
func (h *Handlers) ListAll(c *gin.Context) {
	p := pageOf(c)
	items, total, err := h.approvals.All(c.Request.Context(), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}

// ListExpert godoc
// @ID          listExpertApprovals
// @Summary     List claims where I was mentioned as an expert
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Param       page       query  int  false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int  false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Router      /approvals/expert [get]
func (h *Handlers) ListExpert(c *gin.Context) {
	p := pageOf(c)
	items, total, err := h.approvals.Expert(c.Request.Context(), actor(c), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}

// ListForUser godoc
// @ID          listApprovalsForUser
// @Summary     List claims created by a user
// @Description Users may list their own claims; approver, hr and master roles may list anyone's.
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Param       username   path   string  true   "Requester email"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /approvals/user/{username} [get]
func (h *Handlers) ListForUser(c *gin.Context) {
	p := pageOf(c)
	items, total, err := h.approvals.ForUser(c.Request.Context(), c.Param("username"), actor(c), role(c), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}

// ListForApprover godoc
// @ID          listApprovalsForApprover
// @Summary     List claims on which a person is an approver
// @Description Users may only query themselves.
// @Tags        Approvals
// @Produce     json
// @Security    BearerAuth
// @Param       username   path   string  true   "Approver email"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /approvals/for-approver/{username} [get]
func (h *Handlers) ListForApprover(c *gin.Context) {
	username := c.Param("username")
	if role(c) == domain.RoleUser && identity.Normalize(username) != actor(c) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "forbidden")
		return
	}
	p := pageOf(c)
	items, total, err := h.approvals.ForApprover(c.Request.Context(), username, p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}

// Decide godoc
// @ID          decideApproval
// @Summary     Accept or reject the step whose turn is mine
// @Description Only the holder of the first Pending step may decide. A rejection halts the chain.
// @Tags        Approvals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                    true  "Unique number"
// @Param       body  body  handlers.DecisionRequest  true  "Decision"
// @Success     200  {object}  handlers.ApprovalView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid action or draft"
// @Failure     403  {object}  handlers.ErrorResponse  "Not an approver"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not your turn"
// @Router      /approvals/{id}/decision [patch]
func (h *Handlers) Decide(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "action required")
		return
	}
	a, err := h.approvals.Decide(c.Request.Context(), c.Param("id"), actor(c), domain.StepStatus(strings.TrimSpace(req.Action)), req.Comment)
	if err != nil {
		failErr(c, err)
		return
	}
	loggerFor(c, a.UniqueNumber).Info().Str("action", req.Action).Msg("decision recorded")
	ok(c, http.StatusOK, view(a))
}

// UploadAttachments godoc
// @ID          uploadAttachments
// @Summary     Attach files to a claim
// @Description Multipart upload (field "files"). Allowed for the requester and non-user roles.
// @Tags        Approvals
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id     path      string  true  "Unique number"
// @Param       files  formData  file    true  "One or more files"
// @Success     201  {object}  handlers.AttachmentsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "No files"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     413  {object}  handlers.ErrorResponse  "Too large"
// @Router      /approvals/{id}/attachments [post]
func (h *Handlers) UploadAttachments(c *gin.Context) { h.upload(c, false) }

// UploadDraftAttachments godoc
// @ID          uploadDraftAttachments
// @Summary     Attach files to a draft
// @Tags        Drafts
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id     path      string  true  "Unique number"
// @Param       files  formData  file    true  "One or more files"
// @Success     201  {object}  handlers.AttachmentsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "No files"
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Router      /drafts/{id}/attachments [post]
func (h *Handlers) UploadDraftAttachments(c *gin.Context) { h.upload(c, true) }

func (h *Handlers) upload(c *gin.Context, draftOnly bool) {
	form, err := c.MultipartForm()
	if err != nil {
		if status, code := errorStatus(err); status == http.StatusRequestEntityTooLarge {
			fail(c, status, code, "upload too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form required")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `no files in field "files"`)
		return
	}
	if len(headers) > h.opts.MaxUploadFiles {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("at most %d files per request", h.opts.MaxUploadFiles))
		return
	}

	uploads := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			failErr(c, err)
			return
		}
		defer f.Close()
		uploads = append(uploads, services.Upload{Name: fh.Filename, Reader: f})
	}

	atts, err := h.approvals.AddAttachments(c.Request.Context(), c.Param("id"), actor(c), role(c), uploads, draftOnly)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, AttachmentsResponse{Attachments: atts})
}

// DownloadAttachment godoc
// @ID          downloadAttachment
// @Summary     Download an attachment
// @Tags        Approvals
// @Produce     octet-stream
// @Security    BearerAuth
// @Param       id     path  string  true  "Unique number"
// @Param       attID  path  string  true  "Attachment ID"  format(uuid)
// @Success     200  {file}    file
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /approvals/{id}/attachments/{attID} [get]
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	att, data, err := h.approvals.Attachment(c.Request.Context(), c.Param("id"), c.Param("attID"), actor(c), role(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ct := att.MimeType
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.OriginalName}))
	c.Data(http.StatusOK, ct, data)
}

//
// Drafts
//

// SaveDraft godoc
// @ID          saveDraft
// @Summary     Create or update a draft
// @Description Upserts by unique number. Only the owner may edit; submitted claims cannot be overwritten.
// @Tags        Drafts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.ApprovalRequest  true  "Draft"
// @Success     200  {object}  handlers.ApprovalView
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     409  {object}  handlers.ErrorResponse  "Already submitted"
// @Router      /drafts [post]
func (h *Handlers) SaveDraft(c *gin.Context) {
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.approvals.SaveDraft(c.Request.Context(), actor(c), req.input())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view(a))
}

// SubmitDraft godoc
// @ID          submitDraft
// @Summary     Submit a draft
// @Description Builds the fixed chain from the draft's manager entry and notifies the first approver.
// @Tags        Drafts
// @Produce     json
// @Security    BearerAuth
// @Param       id  path  string  true  "Unique number"
// @Success     200  {object}  handlers.ApprovalView
// @Failure     400  {object}  handlers.ErrorResponse  "Manager unresolved"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Draft not found"
// @Router      /drafts/{id}/submit [patch]
func (h *Handlers) SubmitDraft(c *gin.Context) {
	a, err := h.approvals.SubmitDraft(c.Request.Context(), c.Param("id"), actor(c), role(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view(a))
}

// ListDrafts godoc
// @ID          listDrafts
// @Summary     List a user's drafts
// @Tags        Drafts
// @Produce     json
// @Security    BearerAuth
// @Param       username   path   string  true   "Owner email"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListApprovalsResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /drafts/user/{username} [get]
func (h *Handlers) ListDrafts(c *gin.Context) {
	p := pageOf(c)
	items, total, err := h.approvals.Drafts(c.Request.Context(), c.Param("username"), actor(c), role(c), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, listResponse(items, total, p))
}
