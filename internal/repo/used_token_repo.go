// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the used-token registry that makes
// one-click tokens single-use.
//
// Error semantics:
//   - A second insert for the same jti returns ErrDuplicate; callers running
//     inside a transaction rely on that error to roll the decision back.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/domain"
)

// IsTokenUsed reports whether jti has been redeemed.
func IsTokenUsed(ctx context.Context, db *gorm.DB, jti string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.UsedToken{}).Where("jti = ?", jti).Count(&n).Error
	return n > 0, err
}

// CreateUsedToken records a redemption. It returns ErrDuplicate when the jti
// is already registered.
func CreateUsedToken(ctx context.Context, db *gorm.DB, rec *domain.UsedToken) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteExpiredUsedTokens removes registry rows whose retention has passed.
func DeleteExpiredUsedTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.UsedToken{})
	return res.RowsAffected, res.Error
}
