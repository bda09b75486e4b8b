package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-claims-backend/internal/config"
	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/filestore"
	"github.com/tbourn/go-claims-backend/internal/notify"
	"github.com/tbourn/go-claims-backend/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

var testChain = config.ChainConfig{HREmail: "hr@x.com", AccountsEmail: "acct@x.com"}

func seedDirectory(t *testing.T, db *gorm.DB) *DirectoryService {
	t.Helper()
	dir := NewDirectoryService(db)
	_, err := dir.Upsert(context.Background(), []domain.DirectoryEntry{
		{Email: "mgr@x.com", Name: "Maya Manager", Department: "Sales"},
		{Email: "hr@x.com", Name: "HR Desk", Department: "Human Resources"},
		{Email: "acct@x.com", Name: "Accounts Team", Department: "Finance"},
		{Email: "expert@x.com", Name: "Eli Expert", Department: "Legal"},
	})
	if err != nil {
		t.Fatalf("seed directory: %v", err)
	}
	return dir
}

// recordingNotifier captures events instead of mailing.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) all() []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Event(nil), r.events...)
}

// memFiles is an in-memory filestore.Store.
type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	n       int
}

func newMemFiles() *memFiles { return &memFiles{objects: map[string][]byte{}} }

func (m *memFiles) Save(_ context.Context, name string, r io.Reader) (filestore.Object, error) {
	if m.saveErr != nil {
		return filestore.Object{}, m.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return filestore.Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	stored := fmt.Sprintf("obj-%d-%s", m.n, name)
	m.objects[stored] = data
	return filestore.Object{StoredName: stored, MimeType: "text/plain; charset=utf-8", Size: int64(len(data))}, nil
}

func (m *memFiles) Load(_ context.Context, stored string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[stored]
	if !ok {
		return nil, filestore.ErrNotFound
	}
	return bytes.Clone(b), nil
}

func (m *memFiles) Remove(_ context.Context, stored string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[stored]; !ok {
		return filestore.ErrNotFound
	}
	delete(m.objects, stored)
	return nil
}

func (m *memFiles) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
