// Package services – ApprovalService
//
// This file implements ApprovalService, which owns the lifecycle of a claim:
// drafts, submission onto the fixed approver chain, direct creation with
// Idempotency-Key support, visibility rules, the list views used by the
// dashboard, in-app decisions and attachments.
//
// Decisions validate against the chain package and then persist through a
// conditional update (repo.DecideStep) so that two concurrent deciders can
// never both win a turn. Notifications are emitted after commit and never
// affect the outcome of a call.
//
// Observability: public methods that touch the chain are OpenTelemetry
// instrumented; spans carry the unique number and actor.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/chain"
	"github.com/tbourn/go-claims-backend/internal/config"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/filestore"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/observability"
	"github.com/tbourn/go-claims-backend/internal/repo"
)

// Notifier receives transitions after they are committed.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// Directory is the identity lookup used by approval flows.
type Directory interface {
	Resolve(ctx context.Context, idOrEmail string) (string, error)
	ResolveOrKeep(ctx context.Context, idOrEmail string) (string, error)
	DisplayName(ctx context.Context, email string) string
}

// ApprovalInput is the client-editable part of a claim.
type ApprovalInput struct {
	UniqueNumber      string
	Budget            decimal.Decimal
	ReimbursementType string
	Purpose           string
	Details           string
	Department        string
	// Approvers as entered by the requester. Only the first entry (the
	// manager) survives submission; the rest of the chain is fixed.
	Approvers []string
}

// Upload is one file received for an approval.
type Upload struct {
	Name   string
	Reader io.Reader
}

// Page selects a window of a list. Zero values mean the first page with the
// default size.
type Page struct {
	Page     int
	PageSize int
}

const (
	defaultPageSize = 50
	maxPageSize     = 200

	// IdempotencyScopeCreate namespaces Idempotency-Key values of POST /approvals.
	IdempotencyScopeCreate = "approvals:create"

	// maxIDAttempts bounds how often Create regenerates a unique number
	// that a concurrent create took first.
	maxIDAttempts = 3
)

func (p Page) bounds() (offset, limit int) {
	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return (page - 1) * size, size
}

// ApprovalService coordinates claims and their approver chains.
type ApprovalService struct {
	DB        *gorm.DB
	Directory Directory
	Notifier  Notifier
	Files     filestore.Store

	// Chain holds the fixed HR and Accounts steps.
	Chain config.ChainConfig
	// IDPrefix precedes the year in generated unique numbers.
	IDPrefix string
	// IdempotencyTTL is how long a create Idempotency-Key is remembered.
	IdempotencyTTL time.Duration

	now   func() time.Time
	idGen func(ctx context.Context, now time.Time) (string, error)
}

// NewApprovalService constructs an ApprovalService with defaults.
func NewApprovalService(db *gorm.DB, dir Directory, n Notifier, files filestore.Store, chainCfg config.ChainConfig) *ApprovalService {
	return &ApprovalService{
		DB:             db,
		Directory:      dir,
		Notifier:       n,
		Files:          files,
		Chain:          chainCfg,
		IDPrefix:       "ZFL",
		IdempotencyTTL: 24 * time.Hour,
		now:            time.Now,
	}
}

func (s *ApprovalService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *ApprovalService) notify(ctx context.Context, ev notify.Event) {
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, ev)
	}
}

// NextID proposes the next unique number for the year of now:
// <prefix><year><NN>, at least two digits, one past the highest taken.
func (s *ApprovalService) NextID(ctx context.Context, now time.Time) (string, error) {
	prefix := s.IDPrefix + strconv.Itoa(now.Year())
	taken, err := repo.UniqueNumbersWithPrefix(ctx, s.DB, prefix)
	if err != nil {
		return "", err
	}
	next := 1
	for _, id := range taken {
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil || n < 0 {
			continue
		}
		if n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%02d", prefix, next), nil
}

// buildChain resolves the manager from the first entry and returns the
// fixed three-step chain.
func (s *ApprovalService) buildChain(ctx context.Context, entries []string) ([]domain.ApproverStep, error) {
	manager := ""
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			manager = e
			break
		}
	}
	if manager == "" {
		return nil, chain.ErrManagerUnresolved
	}
	email, err := s.Directory.Resolve(ctx, manager)
	if err != nil {
		if errors.Is(err, ErrUnresolved) {
			return nil, chain.ErrManagerUnresolved
		}
		return nil, err
	}
	return chain.BuildFixed(email, s.Chain.HREmail, s.Chain.AccountsEmail)
}

func normalizeBody(in *ApprovalInput) {
	in.UniqueNumber = strings.TrimSpace(in.UniqueNumber)
	in.ReimbursementType = strings.TrimSpace(in.ReimbursementType)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.Details = strings.TrimSpace(in.Details)
	in.Department = strings.TrimSpace(in.Department)
	in.Budget = in.Budget.Round(2)
}

// SaveDraft creates or updates a draft owned by owner. Approver entries are
// resolved through the directory where possible and kept lowercase
// otherwise. An empty unique number is assigned with NextID.
func (s *ApprovalService) SaveDraft(ctx context.Context, owner string, in ApprovalInput) (*domain.Approval, error) {
	owner = identity.Normalize(owner)
	normalizeBody(&in)
	if in.Budget.IsNegative() {
		return nil, fmt.Errorf("%w: budget must not be negative", ErrValidation)
	}
	if in.UniqueNumber == "" {
		id, err := s.NextID(ctx, s.clock())
		if err != nil {
			return nil, err
		}
		in.UniqueNumber = id
	}

	steps := make([]domain.ApproverStep, 0, len(in.Approvers))
	for _, raw := range in.Approvers {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		name, err := s.Directory.ResolveOrKeep(ctx, raw)
		if err != nil {
			return nil, err
		}
		steps = append(steps, domain.ApproverStep{Name: name, Status: domain.StepPending})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := repo.GetApproval(ctx, tx, in.UniqueNumber)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			a := &domain.Approval{
				UniqueNumber:      in.UniqueNumber,
				IsDraft:           true,
				Budget:            in.Budget,
				ReimbursementType: in.ReimbursementType,
				Purpose:           in.Purpose,
				Details:           in.Details,
				Department:        in.Department,
				CreatedBy:         owner,
				Approvers:         steps,
			}
			return repo.CreateApproval(ctx, tx, a)
		case err != nil:
			return err
		}
		if !existing.IsDraft {
			return ErrDuplicateID
		}
		if existing.CreatedBy != owner {
			return ErrForbidden
		}
		body := &domain.Approval{
			UniqueNumber:      in.UniqueNumber,
			Budget:            in.Budget,
			ReimbursementType: in.ReimbursementType,
			Purpose:           in.Purpose,
			Details:           in.Details,
			Department:        in.Department,
		}
		if err := repo.UpdateApprovalBody(ctx, tx, body); err != nil {
			return err
		}
		return repo.ReplaceSteps(ctx, tx, in.UniqueNumber, steps)
	})
	if err != nil {
		return nil, err
	}
	return repo.GetApproval(ctx, s.DB, in.UniqueNumber)
}

// SubmitDraft turns a draft into a live approval on the fixed chain and
// notifies the manager. Only the owner may submit, unless actorRole is a
// non-user role. Nothing is persisted when the manager cannot be resolved.
func (s *ApprovalService) SubmitDraft(ctx context.Context, uniqueNumber, actor, actorRole string) (*domain.Approval, error) {
	tr := otel.Tracer("services/ApprovalService")
	ctx, span := tr.Start(ctx, "SubmitDraft",
		trace.WithAttributes(
			attribute.String("approval.unique_number", uniqueNumber),
			attribute.String("actor", actor),
		),
	)
	defer span.End()

	actor = identity.Normalize(actor)
	var out *domain.Approval
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.GetApproval(ctx, tx, uniqueNumber)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrDraftNotFound
		}
		if err != nil {
			return err
		}
		if !a.IsDraft {
			return ErrDraftNotFound
		}
		if actorRole == domain.RoleUser && a.CreatedBy != actor {
			return ErrForbidden
		}
		names := make([]string, 0, len(a.Approvers))
		for _, st := range a.Approvers {
			names = append(names, st.Name)
		}
		steps, err := s.buildChain(ctx, names)
		if err != nil {
			return err
		}
		if err := repo.ReplaceSteps(ctx, tx, uniqueNumber, steps); err != nil {
			return err
		}
		if err := repo.MarkSubmitted(ctx, tx, uniqueNumber, s.clock()); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return ErrDraftNotFound
			}
			return err
		}
		out, err = repo.GetApproval(ctx, tx, uniqueNumber)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.notify(ctx, notify.Event{Trigger: notify.TriggerSubmitted, Approval: *out, Actor: actor})
	return out, nil
}

// Create submits a new approval directly. reimbursement type and at least
// one approver entry are required. When idemKey is set, a repeated call
// with the same key returns the approval created first and replayed=true.
func (s *ApprovalService) Create(ctx context.Context, owner string, in ApprovalInput, idemKey string) (a *domain.Approval, replayed bool, err error) {
	tr := otel.Tracer("services/ApprovalService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("owner", owner)),
	)
	defer span.End()

	owner = identity.Normalize(owner)
	idemKey = strings.TrimSpace(idemKey)
	normalizeBody(&in)

	if idemKey != "" {
		if a, err := s.replay(ctx, owner, idemKey); a != nil || err != nil {
			return a, a != nil, err
		}
	}

	if in.ReimbursementType == "" {
		return nil, false, fmt.Errorf("%w: reimbursement_type is required", ErrValidation)
	}
	if len(in.Approvers) == 0 {
		return nil, false, fmt.Errorf("%w: approvers list is required", ErrValidation)
	}
	if in.Budget.IsNegative() {
		return nil, false, fmt.Errorf("%w: budget must not be negative", ErrValidation)
	}
	steps, err := s.buildChain(ctx, in.Approvers)
	if err != nil {
		return nil, false, err
	}
	generated := in.UniqueNumber == ""
	for attempt := 1; ; attempt++ {
		if generated {
			if in.UniqueNumber, err = s.generateID(ctx, s.clock()); err != nil {
				return nil, false, err
			}
		}
		a, err = s.insertApproval(ctx, owner, in, steps, idemKey)
		// A concurrent create took the generated number; pick the next one.
		if generated && errors.Is(err, ErrDuplicateID) && attempt < maxIDAttempts {
			continue
		}
		break
	}
	if errors.Is(err, repo.ErrDuplicate) && idemKey != "" {
		// A concurrent request with the same key won; hand back its result.
		if a, rerr := s.replay(ctx, owner, idemKey); a != nil || rerr != nil {
			return a, a != nil, rerr
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	out, err := repo.GetApproval(ctx, s.DB, a.UniqueNumber)
	if err != nil {
		return nil, false, err
	}
	s.notify(ctx, notify.Event{Trigger: notify.TriggerSubmitted, Approval: *out, Actor: owner})
	return out, false, nil
}

// insertApproval writes a submitted approval and, with idemKey, its
// idempotency record in one transaction.
func (s *ApprovalService) insertApproval(ctx context.Context, owner string, in ApprovalInput, steps []domain.ApproverStep, idemKey string) (*domain.Approval, error) {
	var a *domain.Approval
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := repo.ApprovalExists(ctx, tx, in.UniqueNumber)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateID
		}
		a = &domain.Approval{
			UniqueNumber:      in.UniqueNumber,
			Budget:            in.Budget,
			ReimbursementType: in.ReimbursementType,
			Purpose:           in.Purpose,
			Details:           in.Details,
			Department:        in.Department,
			CreatedBy:         owner,
			Approvers:         steps,
		}
		if err := repo.CreateApproval(ctx, tx, a); err != nil {
			if repo.IsDuplicate(err) {
				return ErrDuplicateID
			}
			return err
		}
		if idemKey != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, owner, IdempotencyScopeCreate, idemKey, a.UniqueNumber, http.StatusCreated, s.IdempotencyTTL); err != nil {
				return err
			}
		}
		return nil
	})
	return a, err
}

// generateID returns the next unique number, through the idGen seam when set.
func (s *ApprovalService) generateID(ctx context.Context, now time.Time) (string, error) {
	if s.idGen != nil {
		return s.idGen(ctx, now)
	}
	return s.NextID(ctx, now)
}

func (s *ApprovalService) replay(ctx context.Context, owner, key string) (*domain.Approval, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, owner, IdempotencyScopeCreate, key, s.clock())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a, err := repo.GetApproval(ctx, s.DB, rec.ResourceID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// Get returns an approval if viewer may see it: the requester, anyone named
// on the chain, anyone mentioned in its chat, or any non-user role.
func (s *ApprovalService) Get(ctx context.Context, uniqueNumber, viewer, role string) (*domain.Approval, error) {
	a, err := repo.GetApproval(ctx, s.DB, uniqueNumber)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrApprovalNotFound
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.canView(ctx, a, viewer, role)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return a, nil
}

func (s *ApprovalService) canView(ctx context.Context, a *domain.Approval, viewer, role string) (bool, error) {
	me := identity.Normalize(viewer)
	if me == "" {
		return false, nil
	}
	if a.CreatedBy == me || isNamedOnChain(a, me) {
		return true, nil
	}
	mentioned, err := repo.IsMentioned(ctx, s.DB, a.UniqueNumber, s.candidates(ctx, me))
	if err != nil {
		return false, err
	}
	if mentioned {
		return true, nil
	}
	return role != "" && role != domain.RoleUser, nil
}

func isNamedOnChain(a *domain.Approval, me string) bool {
	for _, st := range a.Approvers {
		if identity.Normalize(st.Name) == me {
			return true
		}
	}
	return false
}

// candidates lists the identifiers under which me may appear in stored
// chains and mentions.
func (s *ApprovalService) candidates(ctx context.Context, me string) []string {
	display := ""
	if s.Directory != nil {
		display = s.Directory.DisplayName(ctx, me)
	}
	return identity.Candidates(me, display)
}

func (s *ApprovalService) list(ctx context.Context, f repo.ApprovalFilter, p Page) ([]domain.Approval, int64, error) {
	total, err := repo.CountApprovals(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Approval{}, 0, nil
	}
	offset, limit := p.bounds()
	items, err := repo.ListApprovals(ctx, s.DB, f, offset, limit)
	return items, total, err
}

func paginate(items []domain.Approval, p Page) ([]domain.Approval, int64) {
	total := int64(len(items))
	offset, limit := p.bounds()
	if offset >= len(items) {
		return []domain.Approval{}, total
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], total
}

// Mine lists approvals and drafts created by me, newest first.
func (s *ApprovalService) Mine(ctx context.Context, me string, p Page) ([]domain.Approval, int64, error) {
	return s.list(ctx, repo.ApprovalFilter{CreatedBy: identity.Normalize(me)}, p)
}

// MineStats returns the count and newest update of me's approvals for ETags.
func (s *ApprovalService) MineStats(ctx context.Context, me string) (int64, *time.Time, error) {
	return repo.ApprovalsStats(ctx, s.DB, identity.Normalize(me))
}

// Actor lists approvals on which me is named, in any status.
func (s *ApprovalService) Actor(ctx context.Context, me string, p Page) ([]domain.Approval, int64, error) {
	return s.list(ctx, repo.ApprovalFilter{StepNames: []string{identity.Normalize(me)}}, p)
}

// NeedsMyAction lists submitted approvals whose turn holder is me under any
// of my candidate identifiers.
func (s *ApprovalService) NeedsMyAction(ctx context.Context, me string, p Page) ([]domain.Approval, int64, error) {
	tr := otel.Tracer("services/ApprovalService")
	ctx, span := tr.Start(ctx, "NeedsMyAction")
	defer span.End()

	cands := s.candidates(ctx, identity.Normalize(me))
	names := append([]string{}, cands...)
	for _, c := range cands {
		if simple := identity.Canonicalize(c).Simple; simple != "" {
			names = append(names, simple)
		}
	}
	draft := false
	all, err := repo.ListApprovals(ctx, s.DB, repo.ApprovalFilter{Draft: &draft, StepNames: names}, 0, 0)
	if err != nil {
		return nil, 0, err
	}
	mine := make([]domain.Approval, 0, len(all))
	for _, a := range all {
		for _, c := range cands {
			if chain.IsMyTurn(a.Approvers, c) {
				mine = append(mine, a)
				break
			}
		}
	}
	items, total := paginate(mine, p)
	return items, total, nil
}

// ByMe lists approvals on which me recorded status (Accepted or Rejected).
func (s *ApprovalService) ByMe(ctx context.Context, me string, status domain.StepStatus, p Page) ([]domain.Approval, int64, error) {
	if !status.IsDecision() {
		return nil, 0, fmt.Errorf("%w: status must be Accepted or Rejected", ErrValidation)
	}
	return s.list(ctx, repo.ApprovalFilter{StepNames: []string{identity.Normalize(me)}, StepStatus: status}, p)
}

// All lists every approval. Callers restrict it to privileged roles.
func (s *ApprovalService) All(ctx context.Context, p Page) ([]domain.Approval, int64, error) {
	return s.list(ctx, repo.ApprovalFilter{}, p)
}

// ForUser lists approvals created by username. A caller with role user may
// only list their own.
func (s *ApprovalService) ForUser(ctx context.Context, username, viewer, role string, p Page) ([]domain.Approval, int64, error) {
	u := identity.Normalize(username)
	if role == domain.RoleUser && identity.Normalize(viewer) != u {
		return nil, 0, ErrForbidden
	}
	return s.list(ctx, repo.ApprovalFilter{CreatedBy: u}, p)
}

// ForApprover lists approvals on which username is named.
func (s *ApprovalService) ForApprover(ctx context.Context, username string, p Page) ([]domain.Approval, int64, error) {
	return s.list(ctx, repo.ApprovalFilter{StepNames: []string{identity.Normalize(username)}}, p)
}

// Drafts lists username's drafts under the same rule as ForUser.
func (s *ApprovalService) Drafts(ctx context.Context, username, viewer, role string, p Page) ([]domain.Approval, int64, error) {
	u := identity.Normalize(username)
	if role == domain.RoleUser && identity.Normalize(viewer) != u {
		return nil, 0, ErrForbidden
	}
	draft := true
	return s.list(ctx, repo.ApprovalFilter{CreatedBy: u, Draft: &draft}, p)
}

// Expert lists approvals whose chat mentions me while me is neither the
// requester nor on the chain.
func (s *ApprovalService) Expert(ctx context.Context, me string, p Page) ([]domain.Approval, int64, error) {
	me = identity.Normalize(me)
	ids, err := repo.MentionedApprovalIDs(ctx, s.DB, s.candidates(ctx, me))
	if err != nil {
		return nil, 0, err
	}
	all, err := repo.ListApprovals(ctx, s.DB, repo.ApprovalFilter{IDs: ids}, 0, 0)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Approval, 0, len(all))
	for _, a := range all {
		if a.CreatedBy == me || isNamedOnChain(&a, me) {
			continue
		}
		out = append(out, a)
	}
	items, total := paginate(out, p)
	return items, total, nil
}

// applyDecision validates and persists one decision inside tx. It returns
// the reloaded approval. A lost race surfaces as chain.ErrNotYourTurn.
func applyDecision(ctx context.Context, tx *gorm.DB, a *domain.Approval, actor string, action domain.StepStatus, comment string, now time.Time) (*domain.Approval, error) {
	idx, err := chain.ValidateDecision(a, actor, action)
	if err != nil {
		return nil, err
	}
	step := a.Approvers[idx]
	chain.Apply(&step, action, comment, now)
	if err := repo.DecideStep(ctx, tx, a.UniqueNumber, step.Position, step.Name, step.Status, step.Comment, *step.UpdatedAt); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, chain.ErrNotYourTurn
		}
		return nil, err
	}
	return repo.GetApproval(ctx, tx, a.UniqueNumber)
}

// Decide records actor's in-app decision on the approval.
func (s *ApprovalService) Decide(ctx context.Context, uniqueNumber, actor string, action domain.StepStatus, comment string) (*domain.Approval, error) {
	tr := otel.Tracer("services/ApprovalService")
	ctx, span := tr.Start(ctx, "Decide",
		trace.WithAttributes(
			attribute.String("approval.unique_number", uniqueNumber),
			attribute.String("actor", actor),
			attribute.String("action", string(action)),
		),
	)
	defer span.End()

	actor = identity.Normalize(actor)
	comment = strings.TrimSpace(comment)
	var out *domain.Approval
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := repo.GetApproval(ctx, tx, uniqueNumber)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrApprovalNotFound
		}
		if err != nil {
			return err
		}
		out, err = applyDecision(ctx, tx, a, actor, action, comment, s.clock())
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	observability.Decisions.WithLabelValues(string(action), observability.SourceApp).Inc()
	s.notify(ctx, notify.Event{
		Trigger:  notify.TriggerDecided,
		Approval: *out,
		Actor:    actor,
		Action:   action,
		Comment:  comment,
	})
	return out, nil
}

// AddAttachments stores files for an approval. With draftOnly the target
// must be a draft owned by actor; otherwise the owner or any non-user role
// may upload.
func (s *ApprovalService) AddAttachments(ctx context.Context, uniqueNumber, actor, role string, files []Upload, draftOnly bool) ([]domain.Attachment, error) {
	if s.Files == nil {
		return nil, errors.New("attachment store not configured")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files", ErrValidation)
	}
	actor = identity.Normalize(actor)
	notFound := ErrApprovalNotFound
	if draftOnly {
		notFound = ErrDraftNotFound
	}
	a, err := repo.GetApproval(ctx, s.DB, uniqueNumber)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	if draftOnly {
		if !a.IsDraft {
			return nil, ErrDraftNotFound
		}
		if a.CreatedBy != actor {
			return nil, ErrForbidden
		}
	} else if role == domain.RoleUser && a.CreatedBy != actor {
		return nil, ErrForbidden
	}

	stored := make([]domain.Attachment, 0, len(files))
	cleanup := func() {
		for _, att := range stored {
			_ = s.Files.Remove(context.WithoutCancel(ctx), att.StoredName)
		}
	}
	for _, f := range files {
		obj, err := s.Files.Save(ctx, f.Name, f.Reader)
		if err != nil {
			cleanup()
			return nil, err
		}
		stored = append(stored, domain.Attachment{
			ApprovalID:   a.UniqueNumber,
			OriginalName: strings.TrimSpace(f.Name),
			StoredName:   obj.StoredName,
			MimeType:     obj.MimeType,
			Size:         obj.Size,
		})
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range stored {
			if err := repo.AddAttachment(ctx, tx, &stored[i]); err != nil {
				return err
			}
		}
		return repo.TouchApproval(ctx, tx, a.UniqueNumber, s.clock())
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	return stored, nil
}

// Attachment returns the metadata and content of one attachment, subject to
// the same visibility rules as Get.
func (s *ApprovalService) Attachment(ctx context.Context, uniqueNumber, attachmentID, viewer, role string) (*domain.Attachment, []byte, error) {
	a, err := s.Get(ctx, uniqueNumber, viewer, role)
	if err != nil {
		return nil, nil, err
	}
	if s.Files == nil {
		return nil, nil, filestore.ErrNotFound
	}
	for i := range a.Attachments {
		if a.Attachments[i].ID != attachmentID {
			continue
		}
		data, err := s.Files.Load(ctx, a.Attachments[i].StoredName)
		if err != nil {
			return nil, nil, err
		}
		return &a.Attachments[i], data, nil
	}
	return nil, nil, filestore.ErrNotFound
}
