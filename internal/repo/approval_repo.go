// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for approvals and
// their approver chains.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: persistence and query composition only. Turn rules live in the
// chain package; the one exception is DecideStep, whose WHERE clause repeats
// those rules so that the check and the write happen as one statement.
//
// Error semantics:
//   - Missing approvals return ErrNotFound (gorm.ErrRecordNotFound).
//   - A conditional update that matches nothing returns ErrConflict.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/domain"
)

// ApprovalFilter narrows ListApprovals and CountApprovals. Zero values do not
// restrict the query.
type ApprovalFilter struct {
	// CreatedBy restricts to one requester.
	CreatedBy string
	// Draft restricts to drafts (true) or submitted approvals (false).
	Draft *bool
	// IDs restricts to the given unique numbers; a non-nil empty slice
	// matches nothing.
	IDs []string
	// StepNames restricts to approvals with at least one step named in the
	// list, optionally in StepStatus.
	StepNames  []string
	StepStatus domain.StepStatus
}

func (f ApprovalFilter) apply(db *gorm.DB) *gorm.DB {
	q := db
	if f.CreatedBy != "" {
		q = q.Where("created_by = ?", f.CreatedBy)
	}
	if f.Draft != nil {
		q = q.Where("is_draft = ?", *f.Draft)
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return q.Where("1 = 0")
		}
		q = q.Where("unique_number IN ?", f.IDs)
	}
	if len(f.StepNames) > 0 {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Model(&domain.ApproverStep{}).
			Select("approval_id").
			Where("name IN ?", f.StepNames)
		if f.StepStatus != "" {
			sub = sub.Where("status = ?", f.StepStatus)
		}
		q = q.Where("unique_number IN (?)", sub)
	}
	return q
}

func withChain(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Approvers", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Attachments", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") })
}

// prepareSteps assigns row IDs, owner and positions in slice order.
func prepareSteps(uniqueNumber string, steps []domain.ApproverStep) {
	for i := range steps {
		if steps[i].ID == "" {
			steps[i].ID = uuid.NewString()
		}
		steps[i].ApprovalID = uniqueNumber
		steps[i].Position = i
		if steps[i].Status == "" {
			steps[i].Status = domain.StepPending
		}
	}
}

// CreateApproval inserts an approval together with its chain and attachment
// metadata. Step positions follow slice order.
func CreateApproval(ctx context.Context, db *gorm.DB, a *domain.Approval) error {
	prepareSteps(a.UniqueNumber, a.Approvers)
	for i := range a.Attachments {
		if a.Attachments[i].ID == "" {
			a.Attachments[i].ID = uuid.NewString()
		}
		a.Attachments[i].ApprovalID = a.UniqueNumber
	}
	return db.WithContext(ctx).Create(a).Error
}

// GetApproval fetches an approval with its ordered chain and attachments.
func GetApproval(ctx context.Context, db *gorm.DB, uniqueNumber string) (*domain.Approval, error) {
	var a domain.Approval
	err := withChain(db.WithContext(ctx)).
		Where("unique_number = ?", uniqueNumber).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ApprovalExists reports whether uniqueNumber is taken.
func ApprovalExists(ctx context.Context, db *gorm.DB, uniqueNumber string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Approval{}).
		Where("unique_number = ?", uniqueNumber).
		Count(&n).Error
	return n > 0, err
}

// UpdateApprovalBody overwrites the editable claim fields of an approval.
// Identity, owner and timestamps other than UpdatedAt are left untouched.
func UpdateApprovalBody(ctx context.Context, db *gorm.DB, a *domain.Approval) error {
	res := db.WithContext(ctx).
		Model(&domain.Approval{}).
		Where("unique_number = ?", a.UniqueNumber).
		Updates(map[string]any{
			"budget":             a.Budget,
			"reimbursement_type": a.ReimbursementType,
			"purpose":            a.Purpose,
			"details":            a.Details,
			"department":         a.Department,
			"updated_at":         time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSubmitted flips a draft into a submitted approval. It returns
// ErrConflict when the approval is missing or already submitted.
func MarkSubmitted(ctx context.Context, db *gorm.DB, uniqueNumber string, now time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Approval{}).
		Where("unique_number = ? AND is_draft = ?", uniqueNumber, true).
		Updates(map[string]any{"is_draft": false, "updated_at": now.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// ReplaceSteps discards the current chain of an approval and stores steps in
// its place. Callers run it inside a transaction.
func ReplaceSteps(ctx context.Context, db *gorm.DB, uniqueNumber string, steps []domain.ApproverStep) error {
	tx := db.WithContext(ctx)
	if err := tx.Where("approval_id = ?", uniqueNumber).Delete(&domain.ApproverStep{}).Error; err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}
	for i := range steps {
		steps[i].ID = ""
	}
	prepareSteps(uniqueNumber, steps)
	return tx.Create(&steps).Error
}

// AppendSteps adds steps after the current last position.
func AppendSteps(ctx context.Context, db *gorm.DB, uniqueNumber string, steps []domain.ApproverStep) error {
	if len(steps) == 0 {
		return nil
	}
	tx := db.WithContext(ctx)
	var maxPos int
	err := tx.Model(&domain.ApproverStep{}).
		Where("approval_id = ?", uniqueNumber).
		Select("COALESCE(MAX(position), -1)").
		Row().Scan(&maxPos)
	if err != nil {
		return err
	}
	next := maxPos + 1
	for i := range steps {
		steps[i].ID = uuid.NewString()
		steps[i].ApprovalID = uniqueNumber
		steps[i].Position = next + i
		if steps[i].Status == "" {
			steps[i].Status = domain.StepPending
		}
	}
	return tx.Create(&steps).Error
}

// decideStepSQL is the storage-level turn check. The step must still be
// Pending and still name the deciding approver, every earlier step must be
// Accepted, and the approval must not be a draft. One statement evaluates
// all of it and writes the decision.
const decideStepSQL = `UPDATE approver_steps SET status = ?, comment = ?, updated_at = ?
 WHERE approval_id = ? AND position = ? AND name = ? AND status = ?
   AND NOT EXISTS (SELECT 1 FROM approver_steps p
                    WHERE p.approval_id = ? AND p.position < ? AND p.status <> ?)
   AND EXISTS (SELECT 1 FROM approvals a WHERE a.unique_number = ? AND a.is_draft = ?)`

// DecideStep records name's decision on the step at position, guarded by the
// turn rules. It returns ErrConflict when the guard no longer holds, which is
// how a lost race with another decider or a reassignment surfaces.
func DecideStep(ctx context.Context, db *gorm.DB, uniqueNumber string, position int, name string, status domain.StepStatus, comment string, now time.Time) error {
	res := db.WithContext(ctx).Exec(decideStepSQL,
		status, comment, now.UTC(),
		uniqueNumber, position, name, domain.StepPending,
		uniqueNumber, position, domain.StepAccepted,
		uniqueNumber, false,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return touchApproval(ctx, db, uniqueNumber, now)
}

// SetStep overwrites one step unconditionally. It backs privileged override
// operations only.
func SetStep(ctx context.Context, db *gorm.DB, uniqueNumber string, position int, status domain.StepStatus, comment string, at *time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ApproverStep{}).
		Where("approval_id = ? AND position = ?", uniqueNumber, position).
		Updates(map[string]any{"status": status, "comment": comment, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetSteps sets every step of an approval back to Pending with an empty
// comment and stamps updated_at with now.
func ResetSteps(ctx context.Context, db *gorm.DB, uniqueNumber string, now time.Time) (int64, error) {
	t := now.UTC()
	res := db.WithContext(ctx).
		Model(&domain.ApproverStep{}).
		Where("approval_id = ?", uniqueNumber).
		Updates(map[string]any{"status": domain.StepPending, "comment": "", "updated_at": &t})
	return res.RowsAffected, res.Error
}

// RenameStep changes the identity on one step without touching its status.
func RenameStep(ctx context.Context, db *gorm.DB, stepID, name string) error {
	return db.WithContext(ctx).
		Model(&domain.ApproverStep{}).
		Where("id = ?", stepID).
		Update("name", name).Error
}

// TouchApproval bumps updated_at so list ETags change.
func TouchApproval(ctx context.Context, db *gorm.DB, uniqueNumber string, now time.Time) error {
	return touchApproval(ctx, db, uniqueNumber, now)
}

func touchApproval(ctx context.Context, db *gorm.DB, uniqueNumber string, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Approval{}).
		Where("unique_number = ?", uniqueNumber).
		Update("updated_at", now.UTC()).Error
}

// DeleteApproval removes an approval; steps and attachments cascade.
func DeleteApproval(ctx context.Context, db *gorm.DB, uniqueNumber string) error {
	tx := db.WithContext(ctx)
	// Explicit child deletes keep SQLite connections without foreign_keys=ON
	// consistent.
	if err := tx.Where("approval_id = ?", uniqueNumber).Delete(&domain.ApproverStep{}).Error; err != nil {
		return err
	}
	if err := tx.Where("approval_id = ?", uniqueNumber).Delete(&domain.Attachment{}).Error; err != nil {
		return err
	}
	res := tx.Where("unique_number = ?", uniqueNumber).Delete(&domain.Approval{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListApprovals returns approvals matching f with their chains, newest
// first. A non-positive limit returns every match.
func ListApprovals(ctx context.Context, db *gorm.DB, f ApprovalFilter, offset, limit int) ([]domain.Approval, error) {
	var out []domain.Approval
	q := f.apply(withChain(db.WithContext(ctx)).Model(&domain.Approval{})).
		Order("created_at DESC, unique_number DESC")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountApprovals returns the number of approvals matching f.
func CountApprovals(ctx context.Context, db *gorm.DB, f ApprovalFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Approval{})).Count(&total).Error
	return total, err
}

// UniqueNumbersWithPrefix returns every unique number starting with prefix.
func UniqueNumbersWithPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Approval{}).
		Where("unique_number LIKE ?", prefix+"%").
		Pluck("unique_number", &out).Error
	return out, err
}

// AddAttachment stores attachment metadata for an approval.
func AddAttachment(ctx context.Context, db *gorm.DB, att *domain.Attachment) error {
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(att).Error
}
