package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-claims-backend/internal/domain"
)

// UpsertDirectoryEntries inserts entries or refreshes existing ones keyed by
// email.
func UpsertDirectoryEntries(ctx context.Context, db *gorm.DB, entries []domain.DirectoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range entries {
		entries[i].UpdatedAt = now
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "department", "title", "updated_at"}),
		}).
		Create(&entries).Error
}

// GetDirectoryEntry fetches the entry for email.
func GetDirectoryEntry(ctx context.Context, db *gorm.DB, email string) (*domain.DirectoryEntry, error) {
	var e domain.DirectoryEntry
	if err := db.WithContext(ctx).Where("email = ?", email).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// FindDirectoryByName returns the entries whose name equals name, ignoring
// case and surrounding whitespace.
func FindDirectoryByName(ctx context.Context, db *gorm.DB, name string) ([]domain.DirectoryEntry, error) {
	var out []domain.DirectoryEntry
	err := db.WithContext(ctx).
		Where("LOWER(TRIM(name)) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("email ASC").
		Find(&out).Error
	return out, err
}

// ListDirectory returns every entry ordered by name.
func ListDirectory(ctx context.Context, db *gorm.DB) ([]domain.DirectoryEntry, error) {
	var out []domain.DirectoryEntry
	err := db.WithContext(ctx).Order("name ASC, email ASC").Find(&out).Error
	return out, err
}
