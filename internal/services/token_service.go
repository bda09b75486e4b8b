// Package services – TokenService
//
// This file implements TokenService, which redeems the one-click links
// embedded in approval emails. A link carries a signed token naming one
// approval, one approver and one action; redeeming it applies the same
// chain rules as an in-app decision and records the token ID in the
// used-token registry inside the same transaction, so a token can change
// state at most once even when clicked twice concurrently.
//
// Checks run in a fixed order and stop at the first failure: signature and
// expiry, prior use, approval existence, chain membership, turn.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/observability"
	"github.com/tbourn/go-claims-backend/internal/repo"
	"github.com/tbourn/go-claims-backend/internal/tokens"
)

// Preview is what the comment form shows before a decision is posted.
type Preview struct {
	Approval *domain.Approval
	Approver string
	Action   domain.StepStatus
}

// TokenService issues and redeems one-click action tokens.
type TokenService struct {
	DB       *gorm.DB
	Signer   *tokens.Signer
	Notifier Notifier

	// Retention keeps used-token rows this long past token expiry.
	Retention time.Duration

	now func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(db *gorm.DB, signer *tokens.Signer, n Notifier, retention time.Duration) *TokenService {
	return &TokenService{
		DB:        db,
		Signer:    signer,
		Notifier:  n,
		Retention: retention,
		now:       time.Now,
	}
}

func (s *TokenService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// Issue signs a token allowing approver to apply action to uniqueNumber.
func (s *TokenService) Issue(uniqueNumber, approver string, action domain.StepStatus) (string, error) {
	return s.Signer.IssueOneClick(uniqueNumber, approver, action)
}

// Redeem applies the token's own action with an optional comment.
func (s *TokenService) Redeem(ctx context.Context, token, comment string) (*domain.Approval, error) {
	return s.redeem(ctx, token, "", comment)
}

// RedeemWithComment applies action, which may differ from the token's, with
// a comment entered on the confirmation form.
func (s *TokenService) RedeemWithComment(ctx context.Context, token string, action domain.StepStatus, comment string) (*domain.Approval, error) {
	if !action.IsDecision() {
		return nil, chain.ErrInvalidAction
	}
	return s.redeem(ctx, token, action, comment)
}

// Preview validates token without consuming it and returns the approval
// the confirmation form is about.
func (s *TokenService) Preview(ctx context.Context, token string) (*Preview, error) {
	claims, a, err := s.check(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Preview{Approval: a, Approver: claims.Approver, Action: claims.Action}, nil
}

// check runs the read-only part of redemption.
func (s *TokenService) check(ctx context.Context, token string) (*tokens.OneClickClaims, *domain.Approval, error) {
	claims, err := s.Signer.ParseOneClick(token)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	used, err := repo.IsTokenUsed(ctx, s.DB, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if used {
		return nil, nil, ErrAlreadyUsed
	}
	a, err := repo.GetApproval(ctx, s.DB, claims.UniqueNumber)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, ErrTokenApprovalNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if !isNamedOnChain(a, identity.Normalize(claims.Approver)) {
		return nil, nil, ErrNotAnApprover
	}
	if a.IsDraft || !chain.IsMyTurn(a.Approvers, claims.Approver) {
		return nil, nil, chain.ErrNotYourTurn
	}
	return claims, a, nil
}

func (s *TokenService) redeem(ctx context.Context, token string, override domain.StepStatus, comment string) (out *domain.Approval, err error) {
	tr := otel.Tracer("services/TokenService")
	ctx, span := tr.Start(ctx, "Redeem")
	defer span.End()
	defer func() {
		observability.OneClickRedemptions.WithLabelValues(redemptionResult(err)).Inc()
	}()

	claims, a, err := s.check(ctx, token)
	if err != nil {
		return nil, err
	}
	action := claims.Action
	if override != "" {
		action = override
	}
	comment = strings.TrimSpace(comment)
	span.SetAttributes(
		attribute.String("approval.unique_number", a.UniqueNumber),
		attribute.String("action", string(action)),
	)

	now := s.clock()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claiming the jti is the first write, so concurrent clicks queue on
		// the write lock and every loser sees the duplicate.
		expires := now
		if claims.ExpiresAt != nil {
			expires = claims.ExpiresAt.Time
		}
		rec := &domain.UsedToken{
			JTI:          claims.ID,
			UniqueNumber: claims.UniqueNumber,
			Approver:     claims.Approver,
			Action:       string(action),
			UsedAt:       now,
			ExpiresAt:    expires.Add(s.Retention).UTC(),
		}
		if err := repo.CreateUsedToken(ctx, tx, rec); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrAlreadyUsed
			}
			return err
		}
		// Decide against the committed chain, not the snapshot check saw.
		cur, err := repo.GetApproval(ctx, tx, claims.UniqueNumber)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTokenApprovalNotFound
		}
		if err != nil {
			return err
		}
		out, err = applyDecision(ctx, tx, cur, claims.Approver, action, comment, now)
		return err
	})
	if err != nil {
		// ValidateDecision reports a removed approver as ErrNotApprover and
		// a claim turned back into a draft as ErrDraft.
		switch {
		case errors.Is(err, chain.ErrNotApprover):
			err = ErrNotAnApprover
		case errors.Is(err, chain.ErrDraft):
			err = chain.ErrNotYourTurn
		}
		span.RecordError(err)
		return nil, err
	}

	observability.Decisions.WithLabelValues(string(action), observability.SourceOneClick).Inc()
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, notify.Event{
			Trigger:  notify.TriggerDecided,
			Approval: *out,
			Actor:    claims.Approver,
			Action:   action,
			Comment:  comment,
		})
	}
	return out, nil
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	case errors.Is(err, ErrAlreadyUsed):
		return "used"
	case errors.Is(err, ErrTokenApprovalNotFound):
		return "not_found"
	case errors.Is(err, ErrNotAnApprover):
		return "not_approver"
	case errors.Is(err, chain.ErrNotYourTurn):
		return "not_your_turn"
	default:
		return "error"
	}
}
