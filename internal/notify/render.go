package notify

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/tokens"
)

// ActionLinks are the one-click URLs embedded for the turn holder.
type ActionLinks struct {
	Accept  string
	Reject  string
	Comment string
}

// Renderer turns a Notice into a Message.
type Renderer struct {
	BaseURL string
	Signer  *tokens.Signer
}

type mailView struct {
	Title    string
	Intro    template.HTML
	Approval *domain.Approval
	Status   domain.ChainStatus
	Quote    string
	Links    *ActionLinks
	AppURL   string
}

var mailTmpl = template.Must(template.New("mail").Parse(`<!doctype html>
<html><body style="background:#f8fafc;padding:24px;font-family:Segoe UI,Roboto,Arial,sans-serif;">
<div style="max-width:720px;margin:0 auto;background:#fff;border:1px solid #e5e7eb;border-radius:16px;padding:18px;">
<h2 style="margin:0 0 8px;">{{.Title}}</h2>
<p>{{.Intro}}</p>
{{- if .Quote}}
<blockquote style="border-left:3px solid #e5e7eb;margin:8px 0;padding:6px 10px;">{{.Quote}}</blockquote>
{{- end}}
{{- with .Approval}}
<table style="border-collapse:collapse;margin:12px 0;">
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Claim</td><td>{{.UniqueNumber}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Requester</td><td>{{.CreatedBy}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Type</td><td>{{or .ReimbursementType "-"}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Budget</td><td>{{.Budget.StringFixed 2}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Department</td><td>{{or .Department "-"}}</td></tr>
<tr><td style="padding:2px 12px 2px 0;color:#6b7280;">Purpose</td><td>{{or .Purpose "-"}}</td></tr>
</table>
<ol>
{{- range .Approvers}}
<li>{{.Name}}: {{.Status}}{{if .Comment}} ({{.Comment}}){{end}}</li>
{{- end}}
</ol>
{{- end}}
{{- with .Links}}
<p>
<a href="{{.Accept}}" style="background:#16a34a;color:#fff;padding:10px 14px;border-radius:8px;text-decoration:none;">Approve</a>
<a href="{{.Reject}}" style="background:#dc2626;color:#fff;padding:10px 14px;border-radius:8px;text-decoration:none;margin-left:8px;">Reject</a>
</p>
<p><a href="{{.Comment}}">Approve or reject with a comment</a></p>
{{- end}}
<p><a href="{{.AppURL}}">Open the claims portal</a></p>
</div></body></html>`))

// Render builds the message for n. current is the chain as it stands now;
// action links are only embedded when its recipient holds the turn on it.
func (r *Renderer) Render(n Notice, current *domain.Approval) (Message, error) {
	view := mailView{Approval: current, AppURL: r.BaseURL + "/"}
	if current != nil {
		view.Status = chain.Derive(current)
	}

	switch n.Kind {
	case KindAwaiting:
		if n.First {
			view.Title = fmt.Sprintf("Claim %s needs your approval", n.UniqueNumber)
			requester := ""
			if current != nil {
				requester = current.CreatedBy
			}
			view.Intro = template.HTML("A claim was submitted by <strong>" + template.HTMLEscapeString(requester) + "</strong> and is awaiting your action.")
		} else {
			view.Title = fmt.Sprintf("Claim %s is awaiting your approval", n.UniqueNumber)
			view.Intro = template.HTML("The previous step was approved by <strong>" + template.HTMLEscapeString(n.Actor) + "</strong>. The request is now awaiting your action.")
		}
	case KindApproved:
		view.Title = fmt.Sprintf("Claim %s approved", n.UniqueNumber)
		view.Intro = "All approvers have accepted your claim."
	case KindRejected:
		view.Title = fmt.Sprintf("Claim %s was rejected by %s", n.UniqueNumber, n.Actor)
		intro := "Your claim was <strong>rejected</strong> by <strong>" + template.HTMLEscapeString(n.Actor) + "</strong>"
		if n.Comment != "" {
			intro += " with comment: <em>" + template.HTMLEscapeString(n.Comment) + "</em>"
		}
		view.Intro = template.HTML(intro + ".")
	case KindMention:
		view.Title = fmt.Sprintf("You were mentioned on Claim %s", n.UniqueNumber)
		view.Intro = template.HTML("<strong>" + template.HTMLEscapeString(n.Actor) + "</strong> mentioned you in the request chat:")
		view.Quote = n.Text
	default:
		return Message{}, fmt.Errorf("unknown notice kind %q", n.Kind)
	}

	if n.Links && current != nil && !current.IsDraft && chain.IsMyTurn(current.Approvers, n.To) {
		links, err := r.links(n.UniqueNumber, n.To)
		if err != nil {
			return Message{}, err
		}
		view.Links = links
	}

	var buf bytes.Buffer
	if err := mailTmpl.Execute(&buf, view); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", n.Kind, err)
	}
	return Message{
		To:      identity.Normalize(n.To),
		Subject: view.Title,
		HTML:    buf.String(),
		Text:    plainText(view),
	}, nil
}

func (r *Renderer) links(uniqueNumber, approver string) (*ActionLinks, error) {
	who := identity.Normalize(approver)
	accept, err := r.Signer.IssueOneClick(uniqueNumber, who, domain.StepAccepted)
	if err != nil {
		return nil, err
	}
	reject, err := r.Signer.IssueOneClick(uniqueNumber, who, domain.StepRejected)
	if err != nil {
		return nil, err
	}
	return &ActionLinks{
		Accept:  r.BaseURL + "/mail-oneclick/" + accept,
		Reject:  r.BaseURL + "/mail-oneclick/" + reject,
		Comment: r.BaseURL + "/mail-action/" + accept,
	}, nil
}

func plainText(v mailView) string {
	var b strings.Builder
	b.WriteString(v.Title)
	b.WriteString("\n\n")
	b.WriteString(html.UnescapeString(stripTags(string(v.Intro))))
	b.WriteString("\n")
	if v.Quote != "" {
		b.WriteString("> " + v.Quote + "\n")
	}
	if a := v.Approval; a != nil {
		fmt.Fprintf(&b, "\nClaim: %s\nRequester: %s\nBudget: %s\nStatus: %s\n",
			a.UniqueNumber, a.CreatedBy, a.Budget.StringFixed(2), v.Status)
	}
	if l := v.Links; l != nil {
		fmt.Fprintf(&b, "\nApprove: %s\nReject: %s\nComment: %s\n", l.Accept, l.Reject, l.Comment)
	}
	b.WriteString("\n" + v.AppURL + "\n")
	return b.String()
}

func stripTags(s string) string {
	var b strings.Builder
	in := false
	for _, r := range s {
		switch {
		case r == '<':
			in = true
		case r == '>':
			in = false
		case !in:
			b.WriteRune(r)
		}
	}
	return b.String()
}
