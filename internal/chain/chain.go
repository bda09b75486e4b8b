// Package chain implements the sequential approval-chain state machine: turn
// computation over an ordered list of approver steps, decision validation,
// the single permitted mutation, and derived chain status.
//
// Functions here are pure. Persistence applies the same rules again through a
// conditional update so that concurrent callers cannot both win a turn.
package chain

import (
	"errors"
	"time"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
)

var (
	// ErrDraft is returned when a decision targets a draft.
	ErrDraft = errors.New("approval is still a draft")
	// ErrInvalidAction is returned for any action other than Accepted or Rejected.
	ErrInvalidAction = errors.New("action must be Accepted or Rejected")
	// ErrManagerUnresolved is returned when no manager email can be resolved
	// while building a chain.
	ErrManagerUnresolved = errors.New("manager email could not be resolved")
	// ErrNotApprover is returned when the actor is not named on any step.
	ErrNotApprover = errors.New("not an approver on this request")
	// ErrNotYourTurn is returned when the actor does not hold the turn.
	ErrNotYourTurn = errors.New("not your turn")
)

// IsValidation reports whether err is a malformed-input failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrDraft) || errors.Is(err, ErrInvalidAction) || errors.Is(err, ErrManagerUnresolved)
}

// IsTurnViolation reports whether err means the actor may not act now.
func IsTurnViolation(err error) bool {
	return errors.Is(err, ErrNotApprover) || errors.Is(err, ErrNotYourTurn)
}

// FirstPending returns the index of the step that holds the turn: the first
// step that is not Accepted, provided it is still Pending. It returns -1 when
// every step is Accepted or when a rejection has halted the chain.
func FirstPending(steps []domain.ApproverStep) int {
	for i := range steps {
		switch steps[i].Status {
		case domain.StepAccepted:
			continue
		case domain.StepPending:
			return i
		default:
			return -1
		}
	}
	return -1
}

// IndexOf returns the index of the first step whose name matches who under
// identity.Matches, or -1.
func IndexOf(steps []domain.ApproverStep, who string) int {
	for i := range steps {
		if identity.Matches(steps[i].Name, who) {
			return i
		}
	}
	return -1
}

// IsMyTurn reports whether who is the current actor of the chain. At most one
// step position holds the turn at any time.
func IsMyTurn(steps []domain.ApproverStep, who string) bool {
	first := FirstPending(steps)
	return first != -1 && IndexOf(steps, who) == first
}

// NextPending returns the step that now holds the turn, if any.
func NextPending(steps []domain.ApproverStep) (int, bool) {
	i := FirstPending(steps)
	return i, i != -1
}

// ValidateDecision checks every precondition of a decision without mutating
// anything and returns the index of the step that would change.
//
// Checks run in order: draft, action, exact membership of the actor (lowercase
// equality with some step name), then the turn. A person named on several
// steps acts on whichever of them is currently pending.
func ValidateDecision(a *domain.Approval, actor string, action domain.StepStatus) (int, error) {
	if a.IsDraft {
		return -1, ErrDraft
	}
	if !action.IsDecision() {
		return -1, ErrInvalidAction
	}
	who := identity.Normalize(actor)
	member := false
	for i := range a.Approvers {
		if who != "" && identity.Normalize(a.Approvers[i].Name) == who {
			member = true
			break
		}
	}
	if !member {
		return -1, ErrNotApprover
	}
	first := FirstPending(a.Approvers)
	if first == -1 || identity.Normalize(a.Approvers[first].Name) != who {
		return -1, ErrNotYourTurn
	}
	return first, nil
}

// Apply records a decision on step. It is the only state change the chain
// performs during normal flow.
func Apply(step *domain.ApproverStep, action domain.StepStatus, comment string, now time.Time) {
	t := now.UTC()
	step.Status = action
	step.Comment = comment
	step.UpdatedAt = &t
}

// Derive computes the dashboard status of an approval. It is never stored.
func Derive(a *domain.Approval) domain.ChainStatus {
	if a.IsDraft {
		return domain.ChainDraft
	}
	allAccepted := true
	for _, s := range a.Approvers {
		switch s.Status {
		case domain.StepRejected:
			return domain.ChainRejected
		case domain.StepAccepted:
		default:
			allAccepted = false
		}
	}
	if allAccepted {
		return domain.ChainApproved
	}
	return domain.ChainPending
}

// BuildFixed returns the production chain [manager, hr, accounts] with every
// step Pending and no decision timestamp. Names are normalized; positions are
// assigned in order.
func BuildFixed(manager, hr, accounts string) ([]domain.ApproverStep, error) {
	m := identity.Normalize(manager)
	if !identity.IsEmail(m) {
		return nil, ErrManagerUnresolved
	}
	names := []string{m, identity.Normalize(hr), identity.Normalize(accounts)}
	steps := make([]domain.ApproverStep, len(names))
	for i, n := range names {
		steps[i] = domain.ApproverStep{Position: i, Name: n, Status: domain.StepPending}
	}
	return steps, nil
}
