package domain

import (
	"time"

	"gorm.io/datatypes"
)

// UsedToken records a redeemed one-click token. The unique JTI index is what
// makes redemption single-use under concurrency.
type UsedToken struct {
	ID           string    `gorm:"type:char(36);primaryKey"`
	JTI          string    `gorm:"column:jti;type:varchar(64);not null;uniqueIndex"`
	UniqueNumber string    `gorm:"type:varchar(64);not null;index"`
	Approver     string    `gorm:"type:varchar(320);not null"`
	Action       string    `gorm:"type:varchar(16);not null"`
	UsedAt       time.Time `gorm:"not null"`
	ExpiresAt    time.Time `gorm:"not null;index"`
}

// TableName returns the database table name for UsedToken.
func (UsedToken) TableName() string { return "used_tokens" }

// Audit actions written by privileged and maintenance operations.
const (
	AuditOverride      = "override"
	AuditReset         = "reset"
	AuditReassign      = "reassign"
	AuditDelete        = "delete"
	AuditMigrateEmail  = "migrate-approvers"
	AuditBackfillChain = "backfill-chain"
)

// AuditEntry is an append-only record of an operation that bypasses the
// normal decision flow.
type AuditEntry struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UniqueNumber string         `json:"unique_number" gorm:"type:varchar(64);not null;index"`
	Actor        string         `json:"actor"         gorm:"type:varchar(320);not null"`
	Action       string         `json:"action"        gorm:"type:varchar(32);not null"`
	Details      datatypes.JSON `json:"details"       gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"    gorm:"index"`
}

// TableName returns the database table name for AuditEntry.
func (AuditEntry) TableName() string { return "audit_entries" }
