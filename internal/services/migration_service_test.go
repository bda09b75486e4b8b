package services

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/repo"
)

type stubSweeper struct {
	fn func(now time.Time) int
}

func (s stubSweeper) SweepPending(now time.Time) int { return s.fn(now) }

func TestMigrationService_MigrateApproversToEmail(t *testing.T) {
	as, _, _, db := newApprovalSvc(t)
	ms := NewMigrationService(db, as.Directory, testChain, nil)
	ctx := context.Background()

	legacy := &domain.Approval{
		UniqueNumber: "OLD1",
		CreatedBy:    "req@x.com",
		Approvers: []domain.ApproverStep{
			{Name: "Maya Manager", Status: domain.StepAccepted},
			{Name: "hr@x.com"},
			{Name: "Ghost Person"},
		},
	}
	if err := repo.CreateApproval(ctx, db, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := as.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	rep, err := ms.MigrateApproversToEmail(ctx, "boss@x.com", true)
	if err != nil || rep.Inspected != 2 || rep.Changed != 1 || !rep.DryRun {
		t.Fatalf("dry run = %+v %v", rep, err)
	}
	got, _ := repo.GetApproval(ctx, db, "OLD1")
	if got.Approvers[0].Name != "Maya Manager" {
		t.Fatalf("dry run wrote: %s", stepNames(got))
	}

	rep, err = ms.MigrateApproversToEmail(ctx, "boss@x.com", false)
	if err != nil || rep.Changed != 1 {
		t.Fatalf("run = %+v %v", rep, err)
	}
	got, _ = repo.GetApproval(ctx, db, "OLD1")
	if stepNames(got) != "mgr@x.com,hr@x.com,Ghost Person" || got.Approvers[0].Status != domain.StepAccepted {
		t.Fatalf("migrated chain = %s %+v", stepNames(got), got.Approvers[0])
	}
	audit, _ := repo.ListAuditEntries(ctx, db, "OLD1")
	if len(audit) != 1 || audit[0].Action != domain.AuditMigrateEmail {
		t.Fatalf("audit = %+v", audit)
	}

	// Idempotent.
	rep, _ = ms.MigrateApproversToEmail(ctx, "boss@x.com", false)
	if rep.Changed != 0 {
		t.Fatalf("second run changed %d", rep.Changed)
	}
}

func TestMigrationService_BackfillFixedChain(t *testing.T) {
	as, _, _, db := newApprovalSvc(t)
	ms := NewMigrationService(db, as.Directory, testChain, nil)
	ctx := context.Background()

	seed := func(id string, draft bool, steps ...domain.ApproverStep) {
		t.Helper()
		if err := repo.CreateApproval(ctx, db, &domain.Approval{UniqueNumber: id, IsDraft: draft, CreatedBy: "req@x.com", Approvers: steps}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	seed("A", false, domain.ApproverStep{Name: "mgr@x.com", Status: domain.StepAccepted})
	seed("B", false, domain.ApproverStep{Name: "mgr@x.com", Status: domain.StepAccepted}, domain.ApproverStep{Name: "hr@x.com"})
	seed("C", false, domain.ApproverStep{Name: "mgr@x.com"})
	seed("D", true, domain.ApproverStep{Name: "mgr@x.com", Status: domain.StepAccepted})
	seed("E", false, domain.ApproverStep{Name: "mgr@x.com", Status: domain.StepAccepted}, domain.ApproverStep{Name: "hr", Status: domain.StepAccepted}, domain.ApproverStep{Name: "acct@x.com"})

	rep, err := ms.BackfillFixedChain(ctx, "boss@x.com", true)
	if err != nil || rep.Inspected != 4 || rep.Changed != 2 {
		t.Fatalf("dry run = %+v %v", rep, err)
	}
	if got, _ := repo.GetApproval(ctx, db, "A"); len(got.Approvers) != 1 {
		t.Fatalf("dry run wrote")
	}

	if _, err := ms.BackfillFixedChain(ctx, "boss@x.com", false); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := map[string]string{
		"A": "mgr@x.com,hr@x.com,acct@x.com",
		"B": "mgr@x.com,hr@x.com,acct@x.com",
		"C": "mgr@x.com",
		"D": "mgr@x.com",
		"E": "mgr@x.com,hr,acct@x.com",
	}
	for id, names := range want {
		got, _ := repo.GetApproval(ctx, db, id)
		if stepNames(got) != names {
			t.Fatalf("%s chain = %s, want %s", id, stepNames(got), names)
		}
	}
	a, _ := repo.GetApproval(ctx, db, "A")
	if a.Approvers[1].Status != domain.StepPending || a.Approvers[2].Position != 2 {
		t.Fatalf("appended steps = %+v", a.Approvers)
	}

	rep, _ = ms.BackfillFixedChain(ctx, "boss@x.com", false)
	if rep.Changed != 0 {
		t.Fatalf("second run changed %d", rep.Changed)
	}
}

func TestMigrationService_SweepExpired(t *testing.T) {
	db := newSvcDB(t)
	var swept time.Time
	ms := NewMigrationService(db, nil, testChain, stubSweeper{fn: func(now time.Time) int { swept = now; return 3 }})
	ctx := context.Background()
	now := time.Now().UTC()

	for i, exp := range []time.Time{now.Add(-time.Hour), now.Add(time.Hour)} {
		rec := &domain.UsedToken{JTI: []string{"old", "fresh"}[i], UniqueNumber: "A", Approver: "mgr@x.com", Action: "Accepted", UsedAt: now, ExpiresAt: exp}
		if err := repo.CreateUsedToken(ctx, db, rec); err != nil {
			t.Fatalf("seed token: %v", err)
		}
	}
	if _, err := repo.CreateIdempotency(ctx, db, "u", "s", "k", "A", 201, -time.Minute); err != nil {
		t.Fatalf("seed idem: %v", err)
	}

	rep, err := ms.SweepExpired(ctx, now)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if rep.UsedTokens != 1 || rep.Idempotency != 1 || rep.PendingSignups != 3 || !swept.Equal(now) {
		t.Fatalf("report = %+v swept=%v", rep, swept)
	}
	used, _ := repo.IsTokenUsed(ctx, db, "fresh")
	if !used {
		t.Fatalf("fresh token swept")
	}
}
