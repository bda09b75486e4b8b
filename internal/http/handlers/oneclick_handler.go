// One-click HTML handlers for links embedded in notification mails.
//
// These routes live at the root (no API prefix, no session) because the
// signed token is the credential:
//   - GET  /mail-oneclick/{token}  applies the token's own action
//   - GET  /mail-action/{token}    shows a confirmation form with a comment box
//   - POST /mail-action/{token}    applies the chosen action with the comment
//
// Every outcome is an HTML page; token failures map to their own status
// codes (400 invalid, 403 not an approver, 404 gone, 409 used or out of turn).
package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/services"
)

type pageView struct {
	Title    string
	Message  string
	Ok       bool
	Approval *domain.Approval
	Status   domain.ChainStatus
	// Form fields.
	Form     bool
	Approver string
	Action   domain.StepStatus
}

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title></head>
<body style="background:#f8fafc;padding:24px;font-family:Segoe UI,Roboto,Arial,sans-serif;">
<div style="max-width:640px;margin:0 auto;background:#fff;border:1px solid #e5e7eb;border-radius:16px;padding:18px;">
<h2 style="margin:0 0 8px;color:{{if .Ok}}#166534{{else}}#991b1b{{end}};">{{.Title}}</h2>
{{- if .Message}}<p>{{.Message}}</p>{{end}}
{{- with .Approval}}
<table style="border-collapse:collapse;margin:12px 0;">
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Claim</td><td>{{.UniqueNumber}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Requester</td><td>{{.CreatedBy}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Type</td><td>{{or .ReimbursementType "-"}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Budget</td><td>{{.Budget.StringFixed 2}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Purpose</td><td>{{or .Purpose "-"}}</td></tr>
</table>
<ol>
{{- range .Approvers}}
<li>{{.Name}}: {{.Status}}{{if .Comment}} ({{.Comment}}){{end}}</li>
{{- end}}
</ol>
{{- end}}
{{- if .Status}}<p>Current status: <strong>{{.Status}}</strong></p>{{end}}
{{- if .Form}}
<form method="post">
<p>Deciding as {{.Approver}}</p>
<label><input type="radio" name="action" value="Accepted"{{if eq .Action "Accepted"}} checked{{end}}> Approve</label>
<label style="margin-left:12px;"><input type="radio" name="action" value="Rejected"{{if eq .Action "Rejected"}} checked{{end}}> Reject</label>
<p><textarea name="comment" rows="4" maxlength="2000" style="width:100%;" placeholder="Comment (optional)"></textarea></p>
<button type="submit" style="background:#1d4ed8;color:#fff;border:0;padding:10px 14px;border-radius:8px;">Submit decision</button>
</form>
{{- end}}
</div></body></html>`))

// tokenErrorStatus maps a redemption error onto its page status and title.
func tokenErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid or expired link"
	case errors.Is(err, chain.ErrInvalidAction):
		return http.StatusBadRequest, "Unknown action"
	case errors.Is(err, services.ErrNotAnApprover), errors.Is(err, chain.ErrNotApprover):
		return http.StatusForbidden, "Not an approver"
	case errors.Is(err, services.ErrTokenApprovalNotFound):
		return http.StatusNotFound, "Request not found"
	case errors.Is(err, services.ErrAlreadyUsed):
		return http.StatusConflict, "Link already used"
	case errors.Is(err, chain.ErrNotYourTurn), errors.Is(err, chain.ErrDraft):
		return http.StatusConflict, "Not your turn"
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

func renderPage(c *gin.Context, status int, v pageView) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, v); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func renderTokenError(c *gin.Context, err error) {
	status, title := tokenErrorStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "Please try again later or use the claims portal."
	}
	renderPage(c, status, pageView{Title: title, Message: msg})
}

// renderDecided confirms a redemption. A rejection halts the chain, so a
// Rejected chain means the caller just rejected.
func renderDecided(c *gin.Context, a *domain.Approval) {
	status := chain.Derive(a)
	v := pageView{
		Title:    "Approved",
		Message:  "Your decision was recorded.",
		Ok:       true,
		Approval: a,
		Status:   status,
	}
	switch status {
	case domain.ChainRejected:
		v.Title = "Rejected"
		v.Message = "Your decision was recorded and the requester has been notified."
	case domain.ChainPending:
		v.Message = "Your decision was recorded. The next approver has been notified."
	}
	renderPage(c, http.StatusOK, v)
}

// MailOneClick godoc
// @ID          mailOneClick
// @Summary     Apply a one-click decision from a mail link
// @Tags        Mail
// @Produce     html
// @Param       token  path  string  true  "Signed one-click token"
// @Success     200  {string}  string  "Confirmation page"
// @Failure     400  {string}  string  "Invalid or expired link"
// @Failure     403  {string}  string  "Not an approver"
// @Failure     404  {string}  string  "Request not found"
// @Failure     409  {string}  string  "Link already used or not your turn"
// @Router      /mail-oneclick/{token} [get]
func (h *Handlers) MailOneClick(c *gin.Context) {
	a, err := h.tokens.Redeem(c.Request.Context(), c.Param("token"), "")
	if err != nil {
		renderTokenError(c, err)
		return
	}
	renderDecided(c, a)
}

// MailActionForm godoc
// @ID          mailActionForm
// @Summary     Show the comment form for a mail link
// @Description Validates the token without consuming it.
// @Tags        Mail
// @Produce     html
// @Param       token  path  string  true  "Signed one-click token"
// @Success     200  {string}  string  "Form page"
// @Failure     400  {string}  string  "Invalid or expired link"
// @Failure     409  {string}  string  "Link already used or not your turn"
// @Router      /mail-action/{token} [get]
func (h *Handlers) MailActionForm(c *gin.Context) {
	p, err := h.tokens.Preview(c.Request.Context(), c.Param("token"))
	if err != nil {
		renderTokenError(c, err)
		return
	}
	renderPage(c, http.StatusOK, pageView{
		Title:    "Decide on " + p.Approval.UniqueNumber,
		Ok:       true,
		Approval: p.Approval,
		Form:     true,
		Approver: p.Approver,
		Action:   p.Action,
	})
}

// MailActionSubmit godoc
// @ID          mailActionSubmit
// @Summary     Submit a decision with a comment from a mail link
// @Tags        Mail
// @Accept      x-www-form-urlencoded
// @Produce     html
// @Param       token    path      string  true   "Signed one-click token"
// @Param       action   formData  string  false  "Accepted or Rejected (defaults to the link's action)"
// @Param       comment  formData  string  false  "Comment"
// @Success     200  {string}  string  "Confirmation page"
// @Failure     400  {string}  string  "Invalid link or action"
// @Failure     409  {string}  string  "Link already used or not your turn"
// @Router      /mail-action/{token} [post]
func (h *Handlers) MailActionSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	tok := c.Param("token")
	comment := c.PostForm("comment")
	action := domain.StepStatus(strings.TrimSpace(c.PostForm("action")))

	var (
		a   *domain.Approval
		err error
	)
	if action == "" {
		a, err = h.tokens.Redeem(ctx, tok, comment)
	} else {
		a, err = h.tokens.RedeemWithComment(ctx, tok, action, comment)
	}
	if err != nil {
		renderTokenError(c, err)
		return
	}
	renderDecided(c, a)
}
