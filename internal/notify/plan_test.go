package notify

import (
	"testing"

	"github.com/tbourn/go-claims-backend/internal/domain"
)

func steps(statuses ...domain.StepStatus) []domain.ApproverStep {
	names := []string{"mgr@x.com", "hr@x.com", "acc@x.com"}
	out := make([]domain.ApproverStep, len(statuses))
	for i, s := range statuses {
		out[i] = domain.ApproverStep{Position: i, Name: names[i], Status: s}
	}
	return out
}

func approval(st ...domain.StepStatus) domain.Approval {
	return domain.Approval{UniqueNumber: "ZFL202501", CreatedBy: "req@x.com", Approvers: steps(st...)}
}

func TestPlan(t *testing.T) {
	P, A, R := domain.StepPending, domain.StepAccepted, domain.StepRejected

	tests := []struct {
		name      string
		ev        Event
		wantTo    []string
		wantKind  Kind
		wantLinks bool
	}{
		{
			name:      "submitted notifies first step with links",
			ev:        Event{Trigger: TriggerSubmitted, Approval: approval(P, P, P)},
			wantTo:    []string{"mgr@x.com"},
			wantKind:  KindAwaiting,
			wantLinks: true,
		},
		{
			name:      "accepted notifies next pending",
			ev:        Event{Trigger: TriggerDecided, Action: A, Actor: "mgr@x.com", Approval: approval(A, P, P)},
			wantTo:    []string{"hr@x.com"},
			wantKind:  KindAwaiting,
			wantLinks: true,
		},
		{
			name:     "final accept notifies requester",
			ev:       Event{Trigger: TriggerDecided, Action: A, Actor: "acc@x.com", Approval: approval(A, A, A)},
			wantTo:   []string{"req@x.com"},
			wantKind: KindApproved,
		},
		{
			name:     "reject notifies requester only",
			ev:       Event{Trigger: TriggerDecided, Action: R, Actor: "hr@x.com", Comment: "no", Approval: approval(A, R, P)},
			wantTo:   []string{"req@x.com"},
			wantKind: KindRejected,
		},
		{
			name:     "mention skips author",
			ev:       Event{Trigger: TriggerMention, Actor: "bob@x.com", Mentions: []string{"alice@x.com", "bob", "carol@x.com"}, Approval: approval(P, P, P)},
			wantTo:   []string{"alice@x.com", "carol@x.com"},
			wantKind: KindMention,
		},
		{
			name:     "mention deduplicates",
			ev:       Event{Trigger: TriggerMention, Actor: "bob@x.com", Mentions: []string{"alice@x.com", "ALICE@x.com"}, Approval: approval(P)},
			wantTo:   []string{"alice@x.com"},
			wantKind: KindMention,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Plan(tc.ev)
			if len(got) != len(tc.wantTo) {
				t.Fatalf("got %d notices %+v, want %d", len(got), got, len(tc.wantTo))
			}
			for i, n := range got {
				if n.To != tc.wantTo[i] {
					t.Fatalf("notice %d to %q, want %q", i, n.To, tc.wantTo[i])
				}
				if n.Kind != tc.wantKind {
					t.Fatalf("notice %d kind %q, want %q", i, n.Kind, tc.wantKind)
				}
				if n.Links != tc.wantLinks {
					t.Fatalf("notice %d links %v, want %v", i, n.Links, tc.wantLinks)
				}
				if n.UniqueNumber != "ZFL202501" {
					t.Fatalf("unique number %q", n.UniqueNumber)
				}
			}
		})
	}
}

func TestPlan_NothingToSend(t *testing.T) {
	draft := approval(domain.StepPending)
	draft.IsDraft = true
	cases := map[string]Event{
		"draft submit":       {Trigger: TriggerSubmitted, Approval: draft},
		"empty chain submit": {Trigger: TriggerSubmitted, Approval: domain.Approval{UniqueNumber: "Z"}},
		"pending action":     {Trigger: TriggerDecided, Action: domain.StepPending, Approval: approval(domain.StepPending)},
		"mention of self":    {Trigger: TriggerMention, Actor: "a@x.com", Mentions: []string{"a"}, Approval: approval()},
		"unknown trigger":    {Trigger: "other", Approval: approval(domain.StepPending)},
	}
	for name, ev := range cases {
		if got := Plan(ev); len(got) != 0 {
			t.Fatalf("%s: expected no notices, got %+v", name, got)
		}
	}
}
