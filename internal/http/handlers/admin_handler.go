// Admin HTTP handlers (hr and master roles only; enforced by the router).
//
// Corrections bypass the turn rules and are written to the audit log:
//   - PATCH  /approvals/{id}/admin/override
//   - PATCH  /approvals/{id}/admin/reset
//   - PATCH  /approvals/{id}/admin/reassign
//   - DELETE /approvals/{id}
//   - GET    /approvals/{id}/audit
//
// Batch jobs accept ?dry_run=true to report without writing:
//   - POST /admin/migrate-approvers
//   - POST /admin/backfill-chain
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/sysutil"
)

// OverrideRequest sets one step to any status, Pending included.
type OverrideRequest struct {
	Approver string `json:"approver" binding:"required" example:"maria@example.com"`
	Status   string `json:"status"   binding:"required" enums:"Pending,Accepted,Rejected" example:"Pending"`
	Comment  string `json:"comment"  example:"Reopened after phone call"`
}

// ReassignRequest replaces the chain; every step restarts as Pending.
type ReassignRequest struct {
	Approvers []string `json:"approvers" binding:"required,min=1" example:"maria@example.com"`
}

// AuditLogResponse lists audit entries, oldest first.
type AuditLogResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}

// AdminOverride godoc
// @ID          adminOverride
// @Summary     Override a step status
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                    true  "Unique number"
// @Param       body  body  handlers.OverrideRequest  true  "Override"
// @Success     200  {object}  handlers.ApprovalView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad status"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Approval or step not found"
// @Router      /approvals/{id}/admin/override [patch]
func (h *Handlers) AdminOverride(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "approver and status required")
		return
	}
	status := domain.StepStatus(strings.TrimSpace(req.Status))
	if !status.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeInvalidAction, "status must be Pending, Accepted or Rejected")
		return
	}
	a, err := h.admin.Override(c.Request.Context(), c.Param("id"), actor(c), req.Approver, status, req.Comment)
	if err != nil {
		failErr(c, err)
		return
	}
	loggerFor(c, a.UniqueNumber).Info().Str("approver", req.Approver).Str("status", req.Status).Msg("step overridden")
	ok(c, http.StatusOK, view(a))
}

// AdminReset godoc
// @ID          adminReset
// @Summary     Reset every step to Pending
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       id  path  string  true  "Unique number"
// @Success     200  {object}  handlers.ApprovalView
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /approvals/{id}/admin/reset [patch]
func (h *Handlers) AdminReset(c *gin.Context) {
	a, err := h.admin.Reset(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view(a))
}

// AdminReassign godoc
// @ID          adminReassign
// @Summary     Replace the approver chain
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                    true  "Unique number"
// @Param       body  body  handlers.ReassignRequest  true  "New chain"
// @Success     200  {object}  handlers.ApprovalView
// @Failure     400  {object}  handlers.ErrorResponse  "Empty chain"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /approvals/{id}/admin/reassign [patch]
func (h *Handlers) AdminReassign(c *gin.Context) {
	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "approvers required")
		return
	}
	a, err := h.admin.Reassign(c.Request.Context(), c.Param("id"), actor(c), req.Approvers)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, view(a))
}

// AdminDelete godoc
// @ID          deleteApproval
// @Summary     Delete a claim
// @Tags        Admin
// @Security    BearerAuth
// @Param       id  path  string  true  "Unique number"
// @Success     204  {string}  string "No Content"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /approvals/{id} [delete]
func (h *Handlers) AdminDelete(c *gin.Context) {
	if err := h.admin.Delete(c.Request.Context(), c.Param("id"), actor(c)); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// AuditLog godoc
// @ID          auditLog
// @Summary     Audit trail of a claim
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       id  path  string  true  "Unique number"
// @Success     200  {object}  handlers.AuditLogResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /approvals/{id}/audit [get]
func (h *Handlers) AuditLog(c *gin.Context) {
	entries, err := h.admin.AuditLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, AuditLogResponse{Entries: entries})
}

// MigrateApprovers godoc
// @ID          migrateApprovers
// @Summary     Rewrite approver display names to directory emails
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       dry_run  query  bool  false  "Report without writing"
// @Success     200  {object}  services.MigrationReport
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /admin/migrate-approvers [post]
func (h *Handlers) MigrateApprovers(c *gin.Context) {
	rep, err := h.migrations.MigrateApproversToEmail(c.Request.Context(), actor(c), sysutil.IsTruthy(c.Query("dry_run")))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, rep)
}

// BackfillChain godoc
// @ID          backfillChain
// @Summary     Append missing HR and Accounts steps
// @Description Applies to submitted claims whose manager step is Accepted.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       dry_run  query  bool  false  "Report without writing"
// @Success     200  {object}  services.MigrationReport
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /admin/backfill-chain [post]
func (h *Handlers) BackfillChain(c *gin.Context) {
	rep, err := h.migrations.BackfillFixedChain(c.Request.Context(), actor(c), sysutil.IsTruthy(c.Query("dry_run")))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, rep)
}
