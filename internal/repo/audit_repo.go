package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/domain"
)

// CreateAuditEntry appends an audit record. details is marshalled to JSON.
func CreateAuditEntry(ctx context.Context, db *gorm.DB, uniqueNumber, actor, action string, details any) (*domain.AuditEntry, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	e := &domain.AuditEntry{
		ID:           uuid.NewString(),
		UniqueNumber: uniqueNumber,
		Actor:        actor,
		Action:       action,
		Details:      datatypes.JSON(raw),
		CreatedAt:    time.Now().UTC(),
	}
	return e, db.WithContext(ctx).Create(e).Error
}

// ListAuditEntries returns the audit trail of an approval, oldest first.
func ListAuditEntries(ctx context.Context, db *gorm.DB, uniqueNumber string) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := db.WithContext(ctx).
		Where("unique_number = ?", uniqueNumber).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
