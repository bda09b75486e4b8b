// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the discussion
// thread attached to each approval.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/domain"
)

// CreateChatMessage inserts a new message with its encoded mention set.
func CreateChatMessage(ctx context.Context, db *gorm.DB, uniqueNumber, author, text string, mentions []string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		ID:         uuid.NewString(),
		ApprovalID: uniqueNumber,
		Author:     author,
		Text:       text,
		Mentions:   domain.EncodeMentions(mentions),
		CreatedAt:  time.Now().UTC(),
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// ListChatMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
func ListChatMessages(ctx context.Context, db *gorm.DB, uniqueNumber string, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	q := db.WithContext(ctx).Where("approval_id = ?", uniqueNumber).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountChatMessages uses a raw COUNT so a missing table surfaces as an error.
func CountChatMessages(ctx context.Context, db *gorm.DB, uniqueNumber string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM chat_messages WHERE approval_id = ?", uniqueNumber).Scan(&total).Error
	return total, err
}

// mentionedScope matches messages mentioning any of the identities.
func mentionedScope(identities []string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if len(identities) == 0 {
			return q.Where("1 = 0")
		}
		cond := q.Session(&gorm.Session{NewDB: true})
		for i, id := range identities {
			if i == 0 {
				cond = cond.Where("mentions LIKE ?", domain.MentionPattern(id))
			} else {
				cond = cond.Or("mentions LIKE ?", domain.MentionPattern(id))
			}
		}
		return q.Where(cond)
	}
}

// MentionedApprovalIDs returns the distinct approvals whose thread mentions
// any of the identities.
func MentionedApprovalIDs(ctx context.Context, db *gorm.DB, identities []string) ([]string, error) {
	out := []string{}
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Scopes(mentionedScope(identities)).
		Distinct().
		Pluck("approval_id", &out).Error
	return out, err
}

// IsMentioned reports whether the thread of uniqueNumber mentions any of the
// identities.
func IsMentioned(ctx context.Context, db *gorm.DB, uniqueNumber string, identities []string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("approval_id = ?", uniqueNumber).
		Scopes(mentionedScope(identities)).
		Count(&n).Error
	return n > 0, err
}
