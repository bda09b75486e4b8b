// Package notify decides who hears about an approval transition and delivers
// the resulting mail asynchronously.
//
// Planning is a pure function of the event (Plan). Delivery goes through a
// Dispatcher that renders each Notice against the current state of the chain
// and hands it to a Mailer. Delivery failures are logged and counted, never
// returned to the request that caused them.
package notify

import (
	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
)

// Trigger is the state change that produced an Event.
type Trigger string

const (
	// TriggerSubmitted fires when a draft is submitted or an approval is created.
	TriggerSubmitted Trigger = "submitted"
	// TriggerDecided fires after an approver accepted or rejected a step.
	TriggerDecided Trigger = "decided"
	// TriggerMention fires when a chat message mentions people.
	TriggerMention Trigger = "mention"
)

// Kind selects the template a Notice is rendered with.
type Kind string

const (
	KindAwaiting Kind = "awaiting"
	KindApproved Kind = "approved"
	KindRejected Kind = "rejected"
	KindMention  Kind = "mention"
)

// Event describes one transition. Approval is the state after the
// transition was persisted.
type Event struct {
	Trigger  Trigger
	Approval domain.Approval
	Actor    string
	Action   domain.StepStatus
	Comment  string

	// Mention events only.
	Text     string
	Mentions []string
}

// Notice is one planned outbound message.
type Notice struct {
	Kind         Kind
	To           string
	UniqueNumber string
	Actor        string
	Comment      string
	Text         string
	// Links asks the renderer to embed one-click action links. They are still
	// only embedded when the recipient holds the turn at render time.
	Links bool
	// First marks the opening notice of a freshly submitted approval.
	First bool
}

// Plan maps an event to the notices it requires. It never returns two
// notices for the same recipient.
func Plan(ev Event) []Notice {
	a := ev.Approval
	base := Notice{UniqueNumber: a.UniqueNumber, Actor: ev.Actor, Comment: ev.Comment}

	var out []Notice
	switch ev.Trigger {
	case TriggerSubmitted:
		if a.IsDraft || len(a.Approvers) == 0 {
			return nil
		}
		n := base
		n.Kind, n.To, n.Links, n.First = KindAwaiting, a.Approvers[0].Name, true, true
		out = append(out, n)

	case TriggerDecided:
		switch ev.Action {
		case domain.StepRejected:
			n := base
			n.Kind, n.To = KindRejected, a.CreatedBy
			out = append(out, n)
		case domain.StepAccepted:
			n := base
			if next, ok := chain.NextPending(a.Approvers); ok {
				n.Kind, n.To, n.Links = KindAwaiting, a.Approvers[next].Name, true
			} else if chain.Derive(&a) == domain.ChainApproved {
				n.Kind, n.To = KindApproved, a.CreatedBy
			} else {
				return nil
			}
			out = append(out, n)
		}

	case TriggerMention:
		for _, m := range ev.Mentions {
			if m == "" || identity.Matches(m, ev.Actor) {
				continue
			}
			n := base
			n.Kind, n.To, n.Text = KindMention, m, ev.Text
			out = append(out, n)
		}
	}
	return dedupe(out)
}

func dedupe(in []Notice) []Notice {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, n := range in {
		k := identity.Normalize(n.To)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}
