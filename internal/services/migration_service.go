// Package services – MigrationService
//
// This file implements the batch maintenance jobs run from the admin API and
// claimctl: rewriting legacy display-name approvers to directory emails,
// backfilling the fixed HR and Accounts steps onto chains created before the
// fixed chain existed, and sweeping expired single-use records.
//
// Every job is idempotent and supports a dry run that reports what would
// change without writing. Each changed approval gets its own transaction and
// audit entry, so a failure part-way leaves earlier approvals migrated.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/config"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/repo"
)

// MigrationReport summarizes one batch run.
type MigrationReport struct {
	Inspected int  `json:"inspected"`
	Changed   int  `json:"changed"`
	DryRun    bool `json:"dry_run"`
}

// SweepReport counts rows and entries removed by SweepExpired.
type SweepReport struct {
	UsedTokens     int64 `json:"used_tokens"`
	Idempotency    int64 `json:"idempotency"`
	PendingSignups int   `json:"pending_signups"`
}

// PendingSweeper drops expired in-memory entries.
type PendingSweeper interface {
	SweepPending(now time.Time) int
}

// MigrationService runs maintenance jobs over all approvals.
type MigrationService struct {
	DB        *gorm.DB
	Directory Directory
	Chain     config.ChainConfig
	// Pending is swept together with the persisted registries; may be nil.
	Pending PendingSweeper
}

// NewMigrationService constructs a MigrationService.
func NewMigrationService(db *gorm.DB, dir Directory, chainCfg config.ChainConfig, pending PendingSweeper) *MigrationService {
	return &MigrationService{DB: db, Directory: dir, Chain: chainCfg, Pending: pending}
}

// MigrateApproversToEmail rewrites step names that are not emails to the
// email the directory resolves them to. Unresolvable names are left as
// they are.
func (s *MigrationService) MigrateApproversToEmail(ctx context.Context, actor string, dryRun bool) (MigrationReport, error) {
	rep := MigrationReport{DryRun: dryRun}
	all, err := repo.ListApprovals(ctx, s.DB, repo.ApprovalFilter{}, 0, 0)
	if err != nil {
		return rep, err
	}
	for _, a := range all {
		rep.Inspected++
		renames := map[string]string{}
		changes := []map[string]string{}
		for _, st := range a.Approvers {
			if identity.IsEmail(st.Name) {
				continue
			}
			email, err := s.Directory.Resolve(ctx, st.Name)
			if err != nil || email == identity.Normalize(st.Name) {
				continue
			}
			renames[st.ID] = email
			changes = append(changes, map[string]string{"from": st.Name, "to": email})
		}
		if len(renames) == 0 {
			continue
		}
		rep.Changed++
		if dryRun {
			continue
		}
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for id, email := range renames {
				if err := repo.RenameStep(ctx, tx, id, email); err != nil {
					return err
				}
			}
			_, err := repo.CreateAuditEntry(ctx, tx, a.UniqueNumber, identity.Normalize(actor), domain.AuditMigrateEmail, changes)
			return err
		})
		if err != nil {
			return rep, err
		}
	}
	log.Info().Int("inspected", rep.Inspected).Int("changed", rep.Changed).Bool("dry_run", dryRun).Msg("approver email migration")
	return rep, nil
}

// BackfillFixedChain appends the HR and Accounts steps, Pending, to
// submitted approvals whose first step is Accepted and which lack them.
func (s *MigrationService) BackfillFixedChain(ctx context.Context, actor string, dryRun bool) (MigrationReport, error) {
	rep := MigrationReport{DryRun: dryRun}
	draft := false
	all, err := repo.ListApprovals(ctx, s.DB, repo.ApprovalFilter{Draft: &draft}, 0, 0)
	if err != nil {
		return rep, err
	}
	fixed := []string{identity.Normalize(s.Chain.HREmail), identity.Normalize(s.Chain.AccountsEmail)}
	for _, a := range all {
		rep.Inspected++
		if len(a.Approvers) == 0 || a.Approvers[0].Status != domain.StepAccepted {
			continue
		}
		var missing []domain.ApproverStep
		var names []string
		for _, f := range fixed {
			if f == "" || hasStep(a.Approvers, f) {
				continue
			}
			missing = append(missing, domain.ApproverStep{Name: f, Status: domain.StepPending})
			names = append(names, f)
		}
		if len(missing) == 0 {
			continue
		}
		rep.Changed++
		if dryRun {
			continue
		}
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.AppendSteps(ctx, tx, a.UniqueNumber, missing); err != nil {
				return err
			}
			_, err := repo.CreateAuditEntry(ctx, tx, a.UniqueNumber, identity.Normalize(actor), domain.AuditBackfillChain, map[string]any{"appended": names})
			return err
		})
		if err != nil {
			return rep, err
		}
	}
	log.Info().Int("inspected", rep.Inspected).Int("changed", rep.Changed).Bool("dry_run", dryRun).Msg("fixed chain backfill")
	return rep, nil
}

func hasStep(steps []domain.ApproverStep, who string) bool {
	for _, st := range steps {
		if identity.Matches(st.Name, who) {
			return true
		}
	}
	return false
}

// SweepExpired deletes used-token and idempotency rows past their expiry
// and drops expired pending signups. It never touches approval state.
func (s *MigrationService) SweepExpired(ctx context.Context, now time.Time) (SweepReport, error) {
	var rep SweepReport
	var err error
	if rep.UsedTokens, err = repo.DeleteExpiredUsedTokens(ctx, s.DB, now); err != nil {
		return rep, err
	}
	if rep.Idempotency, err = repo.DeleteExpiredIdempotency(ctx, s.DB, now); err != nil {
		return rep, err
	}
	if s.Pending != nil {
		rep.PendingSignups = s.Pending.SweepPending(now)
	}
	return rep, nil
}
