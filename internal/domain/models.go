// Package domain defines the persistence models for claims, their approver
// chains, attachments and discussion threads. These types are mapped with
// GORM and form the core data layer of the claims service.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StepStatus is the tri-state outcome of one approver step.
type StepStatus string

const (
	StepPending  StepStatus = "Pending"
	StepAccepted StepStatus = "Accepted"
	StepRejected StepStatus = "Rejected"
)

// IsDecision reports whether s is a terminal decision an approver may take.
func (s StepStatus) IsDecision() bool {
	return s == StepAccepted || s == StepRejected
}

// Valid reports whether s is one of the three known statuses.
func (s StepStatus) Valid() bool {
	return s == StepPending || s.IsDecision()
}

// ChainStatus is the derived, never stored, status of a whole approval.
type ChainStatus string

const (
	ChainDraft    ChainStatus = "Draft"
	ChainPending  ChainStatus = "Pending"
	ChainApproved ChainStatus = "Approved"
	ChainRejected ChainStatus = "Rejected"
)

// Approval represents one reimbursement claim owned by a requester. The
// ordered Approvers slice is the approval chain.
//
// Fields:
//   - UniqueNumber: immutable primary key (e.g. ZFL202501).
//   - IsDraft: drafts have a mutable chain and never take part in turn checks.
//   - Budget / ReimbursementType / Purpose / Details / Department: claim body.
//   - CreatedBy: lowercase email of the requester; immutable.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - Approvers: chain steps ordered by Position.
//   - Attachments: uploaded file metadata.
type Approval struct {
	UniqueNumber      string          `json:"unique_number"      gorm:"type:varchar(64);primaryKey"`
	IsDraft           bool            `json:"is_draft"           gorm:"not null;default:false;index"`
	Budget            decimal.Decimal `json:"budget"             gorm:"type:numeric(14,2);not null;default:0"`
	ReimbursementType string          `json:"reimbursement_type" gorm:"type:varchar(128);not null;default:''"`
	Purpose           string          `json:"purpose"            gorm:"type:text;not null;default:''"`
	Details           string          `json:"details"            gorm:"type:text;not null;default:''"`
	Department        string          `json:"department"         gorm:"type:varchar(128);not null;default:''"`
	CreatedBy         string          `json:"created_by"         gorm:"type:varchar(320);not null;index:idx_approvals_owner"`
	CreatedAt         time.Time       `json:"created_at"         gorm:"index"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Approvers   []ApproverStep `json:"approvers"   gorm:"foreignKey:ApprovalID;references:UniqueNumber;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Attachments []Attachment   `json:"attachments" gorm:"foreignKey:ApprovalID;references:UniqueNumber;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Approval.
func (Approval) TableName() string { return "approvals" }

// ApproverStep is one position in an approval chain. Status only moves from
// Pending to Accepted or Rejected during normal flow; UpdatedAt is set at the
// moment of that move and is nil while the step is untouched.
type ApproverStep struct {
	ID         string     `json:"-"          gorm:"type:char(36);primaryKey"`
	ApprovalID string     `json:"-"          gorm:"type:varchar(64);not null;uniqueIndex:ux_step_position,priority:1;index:idx_step_name,priority:2"`
	Position   int        `json:"-"          gorm:"not null;uniqueIndex:ux_step_position,priority:2"`
	Name       string     `json:"name"       gorm:"type:varchar(320);not null;index:idx_step_name,priority:1"`
	Status     StepStatus `json:"status"     gorm:"type:varchar(16);not null;default:'Pending';check:status IN ('Pending','Accepted','Rejected')"`
	Comment    string     `json:"comment"    gorm:"type:text;not null;default:''"`
	UpdatedAt  *time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for ApproverStep.
func (ApproverStep) TableName() string { return "approver_steps" }

// Attachment is metadata for a file stored by the attachment store.
type Attachment struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	ApprovalID   string    `json:"-"             gorm:"type:varchar(64);not null;index"`
	OriginalName string    `json:"original_name" gorm:"type:varchar(255);not null"`
	StoredName   string    `json:"stored_name"   gorm:"type:varchar(255);not null"`
	MimeType     string    `json:"mime_type"     gorm:"type:varchar(128);not null;default:''"`
	Size         int64     `json:"size"          gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for Attachment.
func (Attachment) TableName() string { return "attachments" }

// ChatMessage is a comment posted on an approval's discussion thread.
// Mentions stores the parsed @identities as a comma separated list wrapped in
// commas (",a@x.com,b@y.com,") so membership can be tested with LIKE.
type ChatMessage struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ApprovalID string    `json:"approval_id" gorm:"type:varchar(64);not null;index:idx_chat_approval,priority:1"`
	Author     string    `json:"author"      gorm:"type:varchar(320);not null"`
	Text       string    `json:"text"        gorm:"type:text;not null"`
	Mentions   string    `json:"-"           gorm:"type:text;not null;default:''"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_chat_approval,priority:2"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// MentionList decodes the stored mention set.
func (m ChatMessage) MentionList() []string {
	trimmed := strings.Trim(m.Mentions, ",")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, ",")
}

// EncodeMentions encodes a mention set for storage.
func EncodeMentions(mentions []string) string {
	if len(mentions) == 0 {
		return ""
	}
	return "," + strings.Join(mentions, ",") + ","
}

// MentionPattern returns the LIKE pattern matching a stored mention.
func MentionPattern(identity string) string {
	return "%," + identity + ",%"
}
