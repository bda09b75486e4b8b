package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/repo"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newApprovalSvc(t *testing.T) (*ApprovalService, *recordingNotifier, *memFiles, *gorm.DB) {
	t.Helper()
	db := newSvcDB(t)
	dir := seedDirectory(t, db)
	n := &recordingNotifier{}
	files := newMemFiles()
	s := NewApprovalService(db, dir, n, files, testChain)
	s.now = func() time.Time { return fixedNow }
	return s, n, files, db
}

func travelClaim(approvers ...string) ApprovalInput {
	return ApprovalInput{
		Budget:            decimal.RequireFromString("120.456"),
		ReimbursementType: " Travel ",
		Purpose:           "Client visit",
		Approvers:         approvers,
	}
}

func stepNames(a *domain.Approval) string {
	names := make([]string, 0, len(a.Approvers))
	for _, s := range a.Approvers {
		names = append(names, s.Name)
	}
	return strings.Join(names, ",")
}

// ---------- NextID ----------

func TestApprovalService_NextID(t *testing.T) {
	s, _, _, db := newApprovalSvc(t)
	ctx := context.Background()

	id, err := s.NextID(ctx, fixedNow)
	if err != nil || id != "ZFL202501" {
		t.Fatalf("empty NextID = %q, %v", id, err)
	}

	for _, un := range []string{"ZFL202501", "ZFL202509", "ZFL2025x", "ZFL202403"} {
		if err := repo.CreateApproval(ctx, db, &domain.Approval{UniqueNumber: un, CreatedBy: "req@x.com"}); err != nil {
			t.Fatalf("seed %s: %v", un, err)
		}
	}
	id, _ = s.NextID(ctx, fixedNow)
	if id != "ZFL202510" {
		t.Fatalf("NextID = %q, want ZFL202510", id)
	}
	id, _ = s.NextID(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if id != "ZFL202601" {
		t.Fatalf("new year NextID = %q", id)
	}
}

// ---------- Create ----------

func TestApprovalService_Create_BuildsFixedChainAndNotifies(t *testing.T) {
	s, n, _, _ := newApprovalSvc(t)
	ctx := context.Background()

	a, replayed, err := s.Create(ctx, "Req@X.com", travelClaim("Maya Manager", "ignored@x.com"), "")
	if err != nil || replayed {
		t.Fatalf("Create err=%v replayed=%v", err, replayed)
	}
	if a.UniqueNumber != "ZFL202501" || a.CreatedBy != "req@x.com" || a.IsDraft {
		t.Fatalf("unexpected approval: %+v", a)
	}
	if got := stepNames(a); got != "mgr@x.com,hr@x.com,acct@x.com" {
		t.Fatalf("chain = %s", got)
	}
	if a.ReimbursementType != "Travel" || !a.Budget.Equal(decimal.RequireFromString("120.46")) {
		t.Fatalf("body not normalized: %q %s", a.ReimbursementType, a.Budget)
	}
	for _, st := range a.Approvers {
		if st.Status != domain.StepPending || st.UpdatedAt != nil {
			t.Fatalf("fresh step not pending: %+v", st)
		}
	}

	evs := n.all()
	if len(evs) != 1 || evs[0].Trigger != notify.TriggerSubmitted || evs[0].Approval.UniqueNumber != a.UniqueNumber {
		t.Fatalf("events = %+v", evs)
	}
}

func TestApprovalService_Create_Validation(t *testing.T) {
	s, n, _, _ := newApprovalSvc(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ApprovalInput
		want error
	}{
		{"no type", ApprovalInput{Approvers: []string{"mgr@x.com"}}, ErrValidation},
		{"no approvers", ApprovalInput{ReimbursementType: "Travel"}, ErrValidation},
		{"negative budget", ApprovalInput{ReimbursementType: "Travel", Approvers: []string{"mgr@x.com"}, Budget: decimal.NewFromInt(-1)}, ErrValidation},
		{"unknown manager", travelClaim("Nobody Known"), chain.ErrManagerUnresolved},
		{"blank manager", travelClaim("  "), chain.ErrManagerUnresolved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := s.Create(ctx, "req@x.com", tc.in, ""); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if len(n.all()) != 0 {
		t.Fatalf("failed creates must not notify")
	}
}

func TestApprovalService_Create_DuplicateID(t *testing.T) {
	s, _, _, _ := newApprovalSvc(t)
	ctx := context.Background()
	in := travelClaim("mgr@x.com")
	in.UniqueNumber = "ZFL202577"
	if _, _, err := s.Create(ctx, "req@x.com", in, ""); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, _, err := s.Create(ctx, "req@x.com", in, ""); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("want ErrDuplicateID, got %v", err)
	}
}

func TestApprovalService_Create_IdempotentReplay(t *testing.T) {
	s, n, _, _ := newApprovalSvc(t)
	ctx := context.Background()

	first, replayed, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "key-1")
	if err != nil || replayed {
		t.Fatalf("first: %v %v", err, replayed)
	}
	second, replayed, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "key-1")
	if err != nil || !replayed {
		t.Fatalf("second: %v replayed=%v", err, replayed)
	}
	if second.UniqueNumber != first.UniqueNumber {
		t.Fatalf("replay returned %s, want %s", second.UniqueNumber, first.UniqueNumber)
	}
	// Another user with the same key gets their own approval.
	other, replayed, err := s.Create(ctx, "other@x.com", travelClaim("mgr@x.com"), "key-1")
	if err != nil || replayed || other.UniqueNumber == first.UniqueNumber {
		t.Fatalf("other user: %+v replayed=%v err=%v", other, replayed, err)
	}
	if len(n.all()) != 2 {
		t.Fatalf("replay must not notify again, got %d events", len(n.all()))
	}
}

// ---------- Drafts ----------

func TestApprovalService_DraftLifecycle(t *testing.T) {
	s, n, _, _ := newApprovalSvc(t)
	ctx := context.Background()

	d, err := s.SaveDraft(ctx, "req@x.com", travelClaim("Maya Manager", "Some One"))
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if !d.IsDraft || d.UniqueNumber != "ZFL202501" {
		t.Fatalf("draft = %+v", d)
	}
	if got := stepNames(d); got != "mgr@x.com,some one" {
		t.Fatalf("draft chain = %s", got)
	}

	// Update in place.
	in := travelClaim("mgr@x.com")
	in.UniqueNumber = d.UniqueNumber
	in.Purpose = "Updated"
	d, err = s.SaveDraft(ctx, "req@x.com", in)
	if err != nil || d.Purpose != "Updated" || stepNames(d) != "mgr@x.com" {
		t.Fatalf("update draft: %+v %v", d, err)
	}
	if _, err := s.SaveDraft(ctx, "intruder@x.com", in); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign owner: %v", err)
	}

	if _, err := s.SubmitDraft(ctx, d.UniqueNumber, "intruder@x.com", domain.RoleUser); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign submit: %v", err)
	}
	a, err := s.SubmitDraft(ctx, d.UniqueNumber, "req@x.com", domain.RoleUser)
	if err != nil {
		t.Fatalf("SubmitDraft: %v", err)
	}
	if a.IsDraft || stepNames(a) != "mgr@x.com,hr@x.com,acct@x.com" {
		t.Fatalf("submitted = %+v", a)
	}
	evs := n.all()
	if len(evs) != 1 || evs[0].Trigger != notify.TriggerSubmitted {
		t.Fatalf("events = %+v", evs)
	}

	if _, err := s.SubmitDraft(ctx, d.UniqueNumber, "req@x.com", domain.RoleUser); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("second submit: %v", err)
	}
	if _, err := s.SaveDraft(ctx, "req@x.com", in); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("draft over submitted approval: %v", err)
	}
	if _, err := s.SubmitDraft(ctx, "ZFL999", "req@x.com", domain.RoleUser); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("missing draft: %v", err)
	}
}

func TestApprovalService_SubmitDraft_UnresolvedManagerKeepsDraft(t *testing.T) {
	s, n, _, _ := newApprovalSvc(t)
	ctx := context.Background()

	d, err := s.SaveDraft(ctx, "req@x.com", travelClaim("Nobody Known"))
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if _, err := s.SubmitDraft(ctx, d.UniqueNumber, "req@x.com", domain.RoleUser); !errors.Is(err, chain.ErrManagerUnresolved) {
		t.Fatalf("want ErrManagerUnresolved, got %v", err)
	}
	got, err := s.Get(ctx, d.UniqueNumber, "req@x.com", domain.RoleUser)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsDraft || stepNames(got) != "nobody known" {
		t.Fatalf("draft changed: %+v", got)
	}
	if len(n.all()) != 0 {
		t.Fatalf("no notification expected")
	}
}

// ---------- Decide ----------

func TestApprovalService_Decide_Sequence(t *testing.T) {
	s, n, _, _ := newApprovalSvc(t)
	ctx := context.Background()
	a, _, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Decide(ctx, a.UniqueNumber, "hr@x.com", domain.StepAccepted, ""); !errors.Is(err, chain.ErrNotYourTurn) {
		t.Fatalf("hr before manager: %v", err)
	}
	if _, err := s.Decide(ctx, a.UniqueNumber, "stranger@x.com", domain.StepAccepted, ""); !errors.Is(err, chain.ErrNotApprover) {
		t.Fatalf("stranger: %v", err)
	}
	if _, err := s.Decide(ctx, a.UniqueNumber, "mgr@x.com", domain.StepPending, ""); !errors.Is(err, chain.ErrInvalidAction) {
		t.Fatalf("pending action: %v", err)
	}
	if _, err := s.Decide(ctx, "ZFL000", "mgr@x.com", domain.StepAccepted, ""); !errors.Is(err, ErrApprovalNotFound) {
		t.Fatalf("missing: %v", err)
	}

	got, err := s.Decide(ctx, a.UniqueNumber, "MGR@x.com", domain.StepAccepted, "  ok  ")
	if err != nil {
		t.Fatalf("manager accept: %v", err)
	}
	if got.Approvers[0].Status != domain.StepAccepted || got.Approvers[0].Comment != "ok" || got.Approvers[0].UpdatedAt == nil {
		t.Fatalf("step 0 = %+v", got.Approvers[0])
	}
	if !chain.IsMyTurn(got.Approvers, "hr@x.com") {
		t.Fatalf("turn should move to hr")
	}

	got, err = s.Decide(ctx, a.UniqueNumber, "hr@x.com", domain.StepRejected, "missing receipt")
	if err != nil {
		t.Fatalf("hr reject: %v", err)
	}
	if chain.Derive(got) != domain.ChainRejected {
		t.Fatalf("derived = %s", chain.Derive(got))
	}
	if _, err := s.Decide(ctx, a.UniqueNumber, "acct@x.com", domain.StepAccepted, ""); !errors.Is(err, chain.ErrNotYourTurn) {
		t.Fatalf("rejection must halt chain: %v", err)
	}

	evs := n.all()
	if len(evs) != 3 {
		t.Fatalf("events = %d", len(evs))
	}
	if evs[2].Trigger != notify.TriggerDecided || evs[2].Action != domain.StepRejected || evs[2].Comment != "missing receipt" {
		t.Fatalf("last event = %+v", evs[2])
	}
}

func TestApprovalService_Decide_DraftRejected(t *testing.T) {
	s, _, _, _ := newApprovalSvc(t)
	ctx := context.Background()
	d, err := s.SaveDraft(ctx, "req@x.com", travelClaim("mgr@x.com"))
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if _, err := s.Decide(ctx, d.UniqueNumber, "mgr@x.com", domain.StepAccepted, ""); !errors.Is(err, chain.ErrDraft) {
		t.Fatalf("want ErrDraft, got %v", err)
	}
}

func TestApplyDecision_StaleSnapshotLosesRace(t *testing.T) {
	s, _, _, db := newApprovalSvc(t)
	ctx := context.Background()
	a, _, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stale, err := repo.GetApproval(ctx, db, a.UniqueNumber)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := s.Decide(ctx, a.UniqueNumber, "mgr@x.com", domain.StepRejected, ""); err != nil {
		t.Fatalf("Decide: %v", err)
	}
	// The stale copy still shows the manager's turn; the guarded update must refuse.
	_, err = applyDecision(ctx, db, stale, "mgr@x.com", domain.StepAccepted, "", fixedNow)
	if !errors.Is(err, chain.ErrNotYourTurn) {
		t.Fatalf("want ErrNotYourTurn, got %v", err)
	}
	got, _ := repo.GetApproval(ctx, db, a.UniqueNumber)
	if got.Approvers[0].Status != domain.StepRejected {
		t.Fatalf("first decision overwritten: %+v", got.Approvers[0])
	}
}

func TestApplyDecision_ReassignedStepRefusesStaleApprover(t *testing.T) {
	s, _, files, db := newApprovalSvc(t)
	ctx := context.Background()
	a, _, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stale, err := repo.GetApproval(ctx, db, a.UniqueNumber)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	adm := NewAdminService(db, files)
	if _, err := adm.Reassign(ctx, a.UniqueNumber, "boss@x.com", []string{"other@x.com", "hr@x.com"}); err != nil {
		t.Fatalf("Reassign: %v", err)
	}

	// The stale copy still names mgr on step 0; the write must not land on
	// the step other@x.com now holds.
	_, err = applyDecision(ctx, db, stale, "mgr@x.com", domain.StepRejected, "", fixedNow)
	if !errors.Is(err, chain.ErrNotYourTurn) {
		t.Fatalf("want ErrNotYourTurn, got %v", err)
	}
	got, _ := repo.GetApproval(ctx, db, a.UniqueNumber)
	if got.Approvers[0].Name != "other@x.com" || got.Approvers[0].Status != domain.StepPending || got.Approvers[0].UpdatedAt != nil {
		t.Fatalf("step 0 = %+v", got.Approvers[0])
	}
}

func TestApprovalService_Create_RetriesTakenGeneratedID(t *testing.T) {
	s, _, _, _ := newApprovalSvc(t)
	ctx := context.Background()
	first, _, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The first generated number was computed before another create committed.
	calls := 0
	s.idGen = func(ctx context.Context, now time.Time) (string, error) {
		calls++
		if calls == 1 {
			return first.UniqueNumber, nil
		}
		return s.NextID(ctx, now)
	}
	got, _, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	if err != nil {
		t.Fatalf("Create after collision: %v", err)
	}
	if got.UniqueNumber == first.UniqueNumber || calls != 2 {
		t.Fatalf("unique number = %s after %d generations", got.UniqueNumber, calls)
	}

	// A number the client chose is never replaced.
	in := travelClaim("mgr@x.com")
	in.UniqueNumber = first.UniqueNumber
	if _, _, err := s.Create(ctx, "req@x.com", in, ""); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("client-chosen duplicate: %v", err)
	}

	// Generation gives up after a bounded number of collisions.
	calls = 0
	s.idGen = func(context.Context, time.Time) (string, error) {
		calls++
		return first.UniqueNumber, nil
	}
	if _, _, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), ""); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("persistent collision: %v", err)
	}
	if calls != maxIDAttempts {
		t.Fatalf("generations = %d, want %d", calls, maxIDAttempts)
	}
}

func TestApprovalService_Decide_ConcurrentSingleWinner(t *testing.T) {
	s, _, _, db := newApprovalSvc(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	ctx := context.Background()
	a, _, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, action := range []domain.StepStatus{domain.StepAccepted, domain.StepRejected} {
		wg.Add(1)
		go func(i int, action domain.StepStatus) {
			defer wg.Done()
			_, errs[i] = s.Decide(ctx, a.UniqueNumber, "mgr@x.com", action, "")
		}(i, action)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, chain.ErrNotYourTurn):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
}

// ---------- Visibility & lists ----------

func TestApprovalService_Get_Visibility(t *testing.T) {
	s, _, _, db := newApprovalSvc(t)
	ctx := context.Background()
	a, _, err := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.CreateChatMessage(ctx, db, a.UniqueNumber, "req@x.com", "@expert@x.com thoughts?", []string{"expert@x.com"}); err != nil {
		t.Fatalf("chat: %v", err)
	}

	cases := []struct {
		viewer, role string
		want         error
	}{
		{"req@x.com", domain.RoleUser, nil},
		{"mgr@x.com", domain.RoleUser, nil},
		{"expert@x.com", domain.RoleUser, nil},
		{"stranger@x.com", domain.RoleUser, ErrForbidden},
		{"stranger@x.com", domain.RoleApprover, nil},
		{"", domain.RoleUser, ErrForbidden},
	}
	for _, tc := range cases {
		_, err := s.Get(ctx, a.UniqueNumber, tc.viewer, tc.role)
		if !errors.Is(err, tc.want) {
			t.Fatalf("Get(%q,%q) = %v, want %v", tc.viewer, tc.role, err, tc.want)
		}
	}
	if _, err := s.Get(ctx, "nope", "req@x.com", domain.RoleUser); !errors.Is(err, ErrApprovalNotFound) {
		t.Fatalf("missing: %v", err)
	}
}

func TestApprovalService_Lists(t *testing.T) {
	s, _, _, db := newApprovalSvc(t)
	ctx := context.Background()

	a1, _, _ := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	a2, _, _ := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	if _, err := s.SaveDraft(ctx, "req@x.com", travelClaim("mgr@x.com")); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, err := s.Decide(ctx, a1.UniqueNumber, "mgr@x.com", domain.StepAccepted, ""); err != nil {
		t.Fatalf("decide: %v", err)
	}

	// Legacy chain stored under a display name.
	legacy := &domain.Approval{
		UniqueNumber: "LEGACY1",
		CreatedBy:    "someone@x.com",
		Approvers:    []domain.ApproverStep{{Name: "maya manager"}, {Name: "hr@x.com"}},
	}
	if err := repo.CreateApproval(ctx, db, legacy); err != nil {
		t.Fatalf("legacy: %v", err)
	}

	items, total, err := s.Mine(ctx, "REQ@x.com", Page{})
	if err != nil || total != 3 || len(items) != 3 {
		t.Fatalf("Mine total=%d len=%d err=%v", total, len(items), err)
	}
	items, total, _ = s.Mine(ctx, "req@x.com", Page{Page: 2, PageSize: 2})
	if total != 3 || len(items) != 1 {
		t.Fatalf("Mine page 2 total=%d len=%d", total, len(items))
	}

	items, total, err = s.NeedsMyAction(ctx, "mgr@x.com", Page{})
	if err != nil {
		t.Fatalf("NeedsMyAction: %v", err)
	}
	got := map[string]bool{}
	for _, a := range items {
		got[a.UniqueNumber] = true
	}
	if total != 2 || !got[a2.UniqueNumber] || !got["LEGACY1"] {
		t.Fatalf("manager queue = %v (total %d)", got, total)
	}
	items, _, _ = s.NeedsMyAction(ctx, "hr@x.com", Page{})
	if len(items) != 1 || items[0].UniqueNumber != a1.UniqueNumber {
		t.Fatalf("hr queue = %+v", items)
	}

	items, total, _ = s.ByMe(ctx, "mgr@x.com", domain.StepAccepted, Page{})
	if total != 1 || items[0].UniqueNumber != a1.UniqueNumber {
		t.Fatalf("ByMe = %+v", items)
	}
	if _, _, err := s.ByMe(ctx, "mgr@x.com", domain.StepPending, Page{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("ByMe pending: %v", err)
	}

	if _, total, _ := s.Actor(ctx, "hr@x.com", Page{}); total != 3 {
		t.Fatalf("Actor total = %d", total)
	}
	if _, total, _ := s.All(ctx, Page{}); total != 4 {
		t.Fatalf("All total = %d", total)
	}
	if _, total, _ := s.ForApprover(ctx, "acct@x.com", Page{}); total != 2 {
		t.Fatalf("ForApprover total = %d", total)
	}
	if _, _, err := s.ForUser(ctx, "req@x.com", "other@x.com", domain.RoleUser, Page{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("ForUser foreign: %v", err)
	}
	if _, total, _ := s.ForUser(ctx, "req@x.com", "boss@x.com", domain.RoleHR, Page{}); total != 3 {
		t.Fatalf("ForUser hr total = %d", total)
	}
	if _, _, err := s.Drafts(ctx, "req@x.com", "other@x.com", domain.RoleUser, Page{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Drafts foreign: %v", err)
	}
	if _, total, _ := s.Drafts(ctx, "req@x.com", "req@x.com", domain.RoleUser, Page{}); total != 1 {
		t.Fatalf("Drafts total = %d", total)
	}

	count, newest, err := s.MineStats(ctx, "req@x.com")
	if err != nil || count != 3 || newest == nil {
		t.Fatalf("MineStats = %d %v %v", count, newest, err)
	}
}

func TestApprovalService_Expert(t *testing.T) {
	s, _, _, db := newApprovalSvc(t)
	ctx := context.Background()
	a, _, _ := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")
	b, _, _ := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")

	_, _ = repo.CreateChatMessage(ctx, db, a.UniqueNumber, "req@x.com", "@expert", []string{"expert"})
	// Mentioning an approver does not make the approval an expert item for them.
	_, _ = repo.CreateChatMessage(ctx, db, b.UniqueNumber, "req@x.com", "@mgr@x.com", []string{"mgr@x.com"})

	items, total, err := s.Expert(ctx, "expert@x.com", Page{})
	if err != nil || total != 1 || items[0].UniqueNumber != a.UniqueNumber {
		t.Fatalf("Expert = %+v total=%d err=%v", items, total, err)
	}
	if _, total, _ := s.Expert(ctx, "mgr@x.com", Page{}); total != 0 {
		t.Fatalf("approver must not see expert items, total=%d", total)
	}
}

// ---------- Attachments ----------

func TestApprovalService_Attachments(t *testing.T) {
	s, _, files, _ := newApprovalSvc(t)
	ctx := context.Background()
	d, _ := s.SaveDraft(ctx, "req@x.com", travelClaim("mgr@x.com"))
	a, _, _ := s.Create(ctx, "req@x.com", travelClaim("mgr@x.com"), "")

	up := func() []Upload { return []Upload{{Name: "receipt.txt", Reader: strings.NewReader("taxi 12.00")}} }

	if _, err := s.AddAttachments(ctx, d.UniqueNumber, "other@x.com", domain.RoleHR, up(), true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("draft upload by non-owner: %v", err)
	}
	if _, err := s.AddAttachments(ctx, a.UniqueNumber, "req@x.com", domain.RoleUser, up(), true); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("draft route on submitted approval: %v", err)
	}
	if _, err := s.AddAttachments(ctx, a.UniqueNumber, "other@x.com", domain.RoleUser, up(), false); !errors.Is(err, ErrForbidden) {
		t.Fatalf("approval upload by stranger: %v", err)
	}
	if _, err := s.AddAttachments(ctx, a.UniqueNumber, "req@x.com", domain.RoleUser, nil, false); !errors.Is(err, ErrValidation) {
		t.Fatalf("no files: %v", err)
	}

	atts, err := s.AddAttachments(ctx, a.UniqueNumber, "hr@x.com", domain.RoleHR, up(), false)
	if err != nil || len(atts) != 1 {
		t.Fatalf("hr upload: %v %+v", err, atts)
	}
	if atts[0].OriginalName != "receipt.txt" || atts[0].Size != 10 || files.count() != 1 {
		t.Fatalf("attachment = %+v (stored %d)", atts[0], files.count())
	}

	meta, data, err := s.Attachment(ctx, a.UniqueNumber, atts[0].ID, "req@x.com", domain.RoleUser)
	if err != nil || string(data) != "taxi 12.00" || meta.StoredName != atts[0].StoredName {
		t.Fatalf("download: %v %q %+v", err, data, meta)
	}
	if _, _, err := s.Attachment(ctx, a.UniqueNumber, "nope", "req@x.com", domain.RoleUser); err == nil {
		t.Fatalf("unknown attachment should fail")
	}

	files.saveErr = errors.New("disk full")
	if _, err := s.AddAttachments(ctx, d.UniqueNumber, "req@x.com", domain.RoleUser, up(), true); err == nil {
		t.Fatalf("save error should surface")
	}
	got, _ := s.Get(ctx, d.UniqueNumber, "req@x.com", domain.RoleUser)
	if len(got.Attachments) != 0 {
		t.Fatalf("failed upload left metadata: %+v", got.Attachments)
	}
}

func TestPage_Bounds(t *testing.T) {
	cases := []struct {
		p             Page
		offset, limit int
	}{
		{Page{}, 0, defaultPageSize},
		{Page{Page: 3, PageSize: 10}, 20, 10},
		{Page{Page: -1, PageSize: 5000}, 0, maxPageSize},
	}
	for _, tc := range cases {
		o, l := tc.p.bounds()
		if o != tc.offset || l != tc.limit {
			t.Fatalf("%+v.bounds() = %d,%d want %d,%d", tc.p, o, l, tc.offset, tc.limit)
		}
	}
}
