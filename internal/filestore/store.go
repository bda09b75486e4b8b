// Package filestore persists approval attachments. Files are addressed by a
// generated stored name; the original file name only lives in the database.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// ErrNotFound is returned when a stored object does not exist.
var ErrNotFound = errors.New("attachment not found")

// Object describes a saved file.
type Object struct {
	StoredName string
	MimeType   string
	Size       int64
}

// Store is the attachment storage collaborator used by the approval service.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader) (Object, error)
	Load(ctx context.Context, storedName string) ([]byte, error)
	Remove(ctx context.Context, storedName string) error
}

// AFSStore keeps attachments under a base URL of any scheme supported by
// viant/afs (plain paths, file://, mem://).
type AFSStore struct {
	baseURL string
	fs      afs.Service
}

var _ Store = (*AFSStore)(nil)

// New returns a store rooted at base, creating the location if needed.
func New(ctx context.Context, base string) (*AFSStore, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("filestore: base path cannot be empty")
	}
	fs := afs.New()
	if !strings.Contains(base, "://") {
		abs, err := filepath.Abs(base)
		if err != nil {
			return nil, err
		}
		base = url.Normalize(abs, file.Scheme)
	}
	exists, _ := fs.Exists(ctx, base)
	if !exists {
		if err := fs.Create(ctx, base, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("filestore: create %s: %w", base, err)
		}
	}
	return &AFSStore{baseURL: base, fs: fs}, nil
}

// Save writes the content of r under a fresh stored name that keeps the
// original extension. The MIME type is sniffed from the content.
func (s *AFSStore) Save(ctx context.Context, originalName string, r io.Reader) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, fmt.Errorf("filestore: read upload: %w", err)
	}
	stored := uuid.NewString() + safeExt(originalName)
	if err := s.fs.Upload(ctx, url.Join(s.baseURL, stored), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return Object{}, fmt.Errorf("filestore: upload %s: %w", stored, err)
	}
	return Object{
		StoredName: stored,
		MimeType:   mimetype.Detect(data).String(),
		Size:       int64(len(data)),
	}, nil
}

// Load returns the content of a stored object.
func (s *AFSStore) Load(ctx context.Context, storedName string) ([]byte, error) {
	u, err := s.objectURL(storedName)
	if err != nil {
		return nil, err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.fs.DownloadWithURL(ctx, u)
}

// Remove deletes a stored object. Missing objects are not an error.
func (s *AFSStore) Remove(ctx context.Context, storedName string) error {
	u, err := s.objectURL(storedName)
	if err != nil {
		return err
	}
	ok, err := s.fs.Exists(ctx, u)
	if err != nil || !ok {
		return err
	}
	return s.fs.Delete(ctx, u)
}

func (s *AFSStore) objectURL(storedName string) (string, error) {
	if storedName == "" || strings.ContainsAny(storedName, `/\`) || strings.Contains(storedName, "..") {
		return "", ErrNotFound
	}
	return url.Join(s.baseURL, storedName), nil
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext[min(1, len(ext)):] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
