// Package services – AdminService
//
// This file implements the privileged operations available to hr and master
// roles: overriding one step, resetting or reassigning a whole chain, and
// deleting an approval. These bypass the turn rules on purpose and are kept
// apart from the decision path. Every change writes an audit entry in the
// same transaction, so an override without its audit row cannot exist.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/filestore"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/repo"
)

// AdminService performs audited chain overrides.
type AdminService struct {
	DB    *gorm.DB
	Files filestore.Store

	now func() time.Time
}

// NewAdminService constructs an AdminService.
func NewAdminService(db *gorm.DB, files filestore.Store) *AdminService {
	return &AdminService{DB: db, Files: files, now: time.Now}
}

func (s *AdminService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

// mutate loads the approval inside a transaction, runs fn and writes the
// audit entry fn describes.
func (s *AdminService) mutate(ctx context.Context, uniqueNumber, actor, action string, fn func(tx *gorm.DB, a *domain.Approval) (any, error)) (*domain.Approval, error) {
	var out *domain.Approval
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.GetApproval(ctx, tx, uniqueNumber)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrApprovalNotFound
		}
		if err != nil {
			return err
		}
		details, err := fn(tx, a)
		if err != nil {
			return err
		}
		if err := repo.TouchApproval(ctx, tx, uniqueNumber, s.clock()); err != nil {
			return err
		}
		if _, err := repo.CreateAuditEntry(ctx, tx, uniqueNumber, identity.Normalize(actor), action, details); err != nil {
			return err
		}
		out, err = repo.GetApproval(ctx, tx, uniqueNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("unique_number", uniqueNumber).
		Str("actor", actor).
		Str("action", action).
		Msg("admin change")
	return out, nil
}

// Override sets the status of the step named approverName. Pending is
// allowed and clears the decision time.
func (s *AdminService) Override(ctx context.Context, uniqueNumber, actor, approverName string, status domain.StepStatus, comment string) (*domain.Approval, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be Pending, Accepted or Rejected", ErrValidation)
	}
	return s.mutate(ctx, uniqueNumber, actor, domain.AuditOverride, func(tx *gorm.DB, a *domain.Approval) (any, error) {
		idx := chain.IndexOf(a.Approvers, approverName)
		if idx < 0 {
			return nil, ErrStepNotFound
		}
		step := a.Approvers[idx]
		var at *time.Time
		if status != domain.StepPending {
			t := s.clock()
			at = &t
		}
		if err := repo.SetStep(ctx, tx, uniqueNumber, step.Position, status, strings.TrimSpace(comment), at); err != nil {
			return nil, err
		}
		return map[string]any{
			"approver": step.Name,
			"from":     step.Status,
			"to":       status,
		}, nil
	})
}

// Reset puts every step back to Pending.
func (s *AdminService) Reset(ctx context.Context, uniqueNumber, actor string) (*domain.Approval, error) {
	return s.mutate(ctx, uniqueNumber, actor, domain.AuditReset, func(tx *gorm.DB, a *domain.Approval) (any, error) {
		n, err := repo.ResetSteps(ctx, tx, uniqueNumber, s.clock())
		if err != nil {
			return nil, err
		}
		return map[string]any{"steps": n}, nil
	})
}

// Reassign replaces the chain with names, lowercased, every step Pending.
func (s *AdminService) Reassign(ctx context.Context, uniqueNumber, actor string, names []string) (*domain.Approval, error) {
	steps := make([]domain.ApproverStep, 0, len(names))
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = identity.Normalize(n)
		if n == "" {
			continue
		}
		clean = append(clean, n)
		steps = append(steps, domain.ApproverStep{Name: n, Status: domain.StepPending})
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: approvers list is required", ErrValidation)
	}
	return s.mutate(ctx, uniqueNumber, actor, domain.AuditReassign, func(tx *gorm.DB, a *domain.Approval) (any, error) {
		before := make([]string, 0, len(a.Approvers))
		for _, st := range a.Approvers {
			before = append(before, st.Name)
		}
		if err := repo.ReplaceSteps(ctx, tx, uniqueNumber, steps); err != nil {
			return nil, err
		}
		return map[string]any{"from": before, "to": clean}, nil
	})
}

// Delete removes the approval with its chain and attachment metadata.
// Stored files are removed after commit on a best-effort basis.
func (s *AdminService) Delete(ctx context.Context, uniqueNumber, actor string) error {
	var stored []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.GetApproval(ctx, tx, uniqueNumber)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrApprovalNotFound
		}
		if err != nil {
			return err
		}
		for _, att := range a.Attachments {
			stored = append(stored, att.StoredName)
		}
		if err := repo.DeleteApproval(ctx, tx, uniqueNumber); err != nil {
			return err
		}
		_, err = repo.CreateAuditEntry(ctx, tx, uniqueNumber, identity.Normalize(actor), domain.AuditDelete, map[string]any{
			"created_by":  a.CreatedBy,
			"attachments": len(stored),
		})
		return err
	})
	if err != nil {
		return err
	}
	if s.Files != nil {
		for _, name := range stored {
			if err := s.Files.Remove(ctx, name); err != nil && !errors.Is(err, filestore.ErrNotFound) {
				log.Warn().Err(err).Str("unique_number", uniqueNumber).Str("file", name).Msg("attachment cleanup failed")
			}
		}
	}
	log.Info().Str("unique_number", uniqueNumber).Str("actor", actor).Msg("approval deleted")
	return nil
}

// AuditLog returns the audit trail of an approval, oldest first.
func (s *AdminService) AuditLog(ctx context.Context, uniqueNumber string) ([]domain.AuditEntry, error) {
	return repo.ListAuditEntries(ctx, s.DB, uniqueNumber)
}
