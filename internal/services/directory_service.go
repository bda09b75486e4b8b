// Package services – DirectoryService
//
// This file implements DirectoryService, the lookup from person identifiers
// (display names or emails) to canonical emails. It also serves the approver
// picker, the signed-in user's profile and a ranked people search backed by
// an in-memory search.Index that is rebuilt lazily after changes.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/repo"
	"github.com/tbourn/go-claims-backend/internal/search"
)

// Profile is the directory view of one person.
type Profile struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
	InDir      bool   `json:"in_directory"`
}

// PickerOption is one entry of the approver picker.
type PickerOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// DirectoryService resolves identities against the people directory.
type DirectoryService struct {
	DB *gorm.DB

	// NameLocale drives title-casing of fallback display names.
	NameLocale language.Tag
	// IndexTTL bounds how long a built search index is reused.
	IndexTTL time.Duration

	mu      sync.Mutex
	idx     search.Index
	builtAt time.Time
	now     func() time.Time
}

// NewDirectoryService constructs a DirectoryService with defaults.
func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{
		DB:         db,
		NameLocale: language.English,
		IndexTTL:   5 * time.Minute,
		now:        time.Now,
	}
}

// Resolve maps idOrEmail to a lowercase email. Emails pass through
// unchanged; display names are looked up case-insensitively. ErrUnresolved
// is returned when no entry matches.
func (s *DirectoryService) Resolve(ctx context.Context, idOrEmail string) (string, error) {
	v := identity.Normalize(idOrEmail)
	if v == "" {
		return "", ErrUnresolved
	}
	if identity.IsEmail(v) {
		return v, nil
	}
	hits, err := repo.FindDirectoryByName(ctx, s.DB, v)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", ErrUnresolved
	}
	return identity.Normalize(hits[0].Email), nil
}

// ResolveOrKeep is Resolve with the lenient fallback used for drafts and
// reassignments: an unresolvable name is kept, lowercased.
func (s *DirectoryService) ResolveOrKeep(ctx context.Context, idOrEmail string) (string, error) {
	v, err := s.Resolve(ctx, idOrEmail)
	if errors.Is(err, ErrUnresolved) {
		return identity.Normalize(idOrEmail), nil
	}
	return v, err
}

// Profile returns the directory entry for email, or a profile with a
// display name derived from the local part when the person is not listed.
func (s *DirectoryService) Profile(ctx context.Context, email string) (Profile, error) {
	email = identity.Normalize(email)
	e, err := repo.GetDirectoryEntry(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Profile{Email: email, Name: s.fallbackName(email)}, nil
		}
		return Profile{}, err
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = s.fallbackName(email)
	}
	return Profile{Email: email, Name: name, Department: e.Department, Title: e.Title, InDir: true}, nil
}

// DisplayName returns the directory name for email, or "" when unknown.
func (s *DirectoryService) DisplayName(ctx context.Context, email string) string {
	e, err := repo.GetDirectoryEntry(ctx, s.DB, identity.Normalize(email))
	if err != nil {
		return ""
	}
	return e.Name
}

// InDirectory reports whether email has a directory entry.
func (s *DirectoryService) InDirectory(ctx context.Context, email string) (bool, error) {
	_, err := repo.GetDirectoryEntry(ctx, s.DB, identity.Normalize(email))
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

var nameSepReplacer = strings.NewReplacer(".", " ", "_", " ", "-", " ")

func (s *DirectoryService) fallbackName(email string) string {
	local := identity.Canonicalize(email).Local
	words := strings.Fields(nameSepReplacer.Replace(local))
	return cases.Title(s.NameLocale).String(strings.Join(words, " "))
}

// Approvers lists everyone in the directory as picker options sorted by
// label.
func (s *DirectoryService) Approvers(ctx context.Context) ([]PickerOption, error) {
	entries, err := repo.ListDirectory(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := make([]PickerOption, 0, len(entries))
	for _, e := range entries {
		label := strings.TrimSpace(e.Name)
		if label == "" {
			label = e.Email
		}
		out = append(out, PickerOption{Label: label, Value: e.Email})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Label) < strings.ToLower(out[j].Label)
	})
	return out, nil
}

// Search ranks directory entries against q by token overlap over name,
// email, department and title. k <= 0 means 10.
func (s *DirectoryService) Search(ctx context.Context, q string, k int) ([]domain.DirectoryEntry, error) {
	tr := otel.Tracer("services/DirectoryService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.Int("k", k)),
	)
	defer span.End()

	idx, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	hits := idx.TopK(q, k)
	if len(hits) == 0 {
		return []domain.DirectoryEntry{}, nil
	}
	out := make([]domain.DirectoryEntry, 0, len(hits))
	for _, h := range hits {
		e, err := repo.GetDirectoryEntry(ctx, s.DB, h.ID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// addressNoise are address fragments shared by most entries. Matching on
// them would rank the whole directory for a query like "example.com".
var addressNoise = []string{"com", "org", "net", "www", "mail"}

func (s *DirectoryService) index(ctx context.Context) (search.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	if s.idx != nil && (s.IndexTTL <= 0 || now.Sub(s.builtAt) < s.IndexTTL) {
		return s.idx, nil
	}
	entries, err := repo.ListDirectory(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	docs := make([]search.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, search.Document{
			ID:     e.Email,
			Fields: []string{e.Name, e.Email, e.Department, e.Title},
		})
	}
	s.idx = search.NewIndex(docs, search.WithStopwords(addressNoise))
	s.builtAt = now
	return s.idx, nil
}

func (s *DirectoryService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Upsert normalizes and stores entries keyed by email. Entries without a
// valid email are skipped; the count of stored entries is returned.
func (s *DirectoryService) Upsert(ctx context.Context, entries []domain.DirectoryEntry) (int, error) {
	clean := make([]domain.DirectoryEntry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		e.Email = identity.Normalize(e.Email)
		if !identity.IsEmail(e.Email) {
			continue
		}
		if _, dup := seen[e.Email]; dup {
			continue
		}
		seen[e.Email] = struct{}{}
		e.Name = whitespaceRE.ReplaceAllString(strings.TrimSpace(e.Name), " ")
		e.Department = strings.TrimSpace(e.Department)
		e.Title = strings.TrimSpace(e.Title)
		clean = append(clean, e)
	}
	if len(clean) == 0 {
		return 0, nil
	}
	if err := repo.UpsertDirectoryEntries(ctx, s.DB, clean); err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.idx = nil
	s.mu.Unlock()
	return len(clean), nil
}
