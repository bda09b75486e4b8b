// Package services – ChatService
//
// This file implements the ChatService, which manages the discussion thread
// attached to every approval. Posting a message validates and normalizes the
// text, extracts @mentions, resolves them to emails through the directory
// where possible, persists the message and asks the notifier to mail each
// mentioned person. Mentions also grant read access to the approval (see
// ApprovalService.Get).
//
// Service-level errors (e.g., ErrEmptyMessage) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/repo"
)

// ChatService posts and lists approval chat messages.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB        *gorm.DB
	Directory Directory
	Notifier  Notifier

	// MaxRunes caps message length after trimming.
	MaxRunes int
	// ListLimit caps how many messages List returns.
	ListLimit int
}

// NewChatService constructs a ChatService with defaults.
func NewChatService(db *gorm.DB, dir Directory, n Notifier) *ChatService {
	return &ChatService{
		DB:        db,
		Directory: dir,
		Notifier:  n,
		MaxRunes:  4000,
		ListLimit: 500,
	}
}

// Post appends a message by author to the approval's thread.
func (s *ChatService) Post(ctx context.Context, uniqueNumber, author, text string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Post",
		trace.WithAttributes(
			attribute.String("approval.unique_number", uniqueNumber),
			attribute.Int("text.len", len(text)),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxRunes > 0 && utf8.RuneCountInString(text) > s.MaxRunes {
		return nil, ErrMessageTooLong
	}
	author = identity.Normalize(author)

	a, err := repo.GetApproval(ctx, s.DB, uniqueNumber)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrApprovalNotFound
	}
	if err != nil {
		return nil, err
	}

	mentions := s.resolveMentions(ctx, identity.ParseMentions(text))
	msg, err := repo.CreateChatMessage(ctx, s.DB, a.UniqueNumber, author, text, mentions)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := repo.TouchApproval(ctx, s.DB, a.UniqueNumber, time.Now().UTC()); err != nil {
		return nil, err
	}

	if len(mentions) > 0 && s.Notifier != nil {
		s.Notifier.Notify(ctx, notify.Event{
			Trigger:  notify.TriggerMention,
			Approval: *a,
			Actor:    author,
			Text:     text,
			Mentions: mentions,
		})
	}
	return msg, nil
}

// resolveMentions maps each mention to an email when the directory knows
// it. Unknown names are kept as typed so that local-part matching still
// grants access.
func (s *ChatService) resolveMentions(ctx context.Context, raw []string) []string {
	if len(raw) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, m := range raw {
		v := m
		if s.Directory != nil && !identity.IsEmail(m) {
			// Display names arrive with separators instead of spaces.
			name := whitespaceRE.ReplaceAllString(nameSepReplacer.Replace(m), " ")
			if email, err := s.Directory.Resolve(ctx, name); err == nil {
				v = email
			}
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// List returns the approval's messages oldest first, capped at ListLimit.
func (s *ChatService) List(ctx context.Context, uniqueNumber string) ([]domain.ChatMessage, error) {
	ok, err := repo.ApprovalExists(ctx, s.DB, uniqueNumber)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrApprovalNotFound
	}
	return repo.ListChatMessages(ctx, s.DB, uniqueNumber, s.ListLimit)
}

// Stats returns the message count and newest timestamp of a thread for ETags.
func (s *ChatService) Stats(ctx context.Context, uniqueNumber string) (int64, *time.Time, error) {
	return repo.ChatStats(ctx, s.DB, uniqueNumber)
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
