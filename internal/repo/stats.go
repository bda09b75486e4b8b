// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/domain"
)

// ApprovalsStats returns aggregate metadata for the approvals a requester
// owns: the number of rows and the greatest UpdatedAt among them.
//
// Return values:
//   - count:        total approvals for createdBy
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func ApprovalsStats(ctx context.Context, db *gorm.DB, createdBy string) (count int64, maxUpdatedAt *time.Time, err error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Approval{}).Where("created_by = ?", createdBy)
	}
	if err = base().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = base().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ChatStats returns the number of messages in an approval's thread and the
// newest CreatedAt among them.
func ChatStats(ctx context.Context, db *gorm.DB, uniqueNumber string) (count int64, newest *time.Time, err error) {
	base := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.ChatMessage{}).Where("approval_id = ?", uniqueNumber)
	}
	if err = base().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var row struct {
		CreatedAt time.Time
	}
	if err = base().Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
