// Package media moves uploaded files from a request-scoped local staging
// area to a durable remote object store, and releases remote objects
// once nothing references them.
//
// A media asset is referenced by its public URL. The object's deletable
// identifier is derived from that URL (final path segment, extension
// stripped), so nothing besides the URL is ever persisted.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/apperr"
)

// DefaultMaxBytes is the per-file upload limit (5MB).
const DefaultMaxBytes = 5 * 1000000

// MetaContentID is the object metadata key holding the content identifier.
const MetaContentID = "cid"

// ErrObjectNotFound is returned by an ObjectStore when no object has the
// requested identifier.
var ErrObjectNotFound = errors.New("media: object not found")

// ObjectStore is the remote store holding promoted assets. Objects are
// written under key "<id><ext>" and addressed afterwards by id alone.
type ObjectStore interface {
	// Put stores body under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64, meta map[string]string) (string, error)
	// Delete removes every object stored under id.
	Delete(ctx context.Context, id string) error
	// Meta returns the metadata stored with id.
	Meta(ctx context.Context, id string) (map[string]string, error)
}

// Manager runs the media lifecycle: stage, validate, upload, replace,
// release.
type Manager struct {
	store    ObjectStore
	dir      string
	maxBytes int64
}

// NewManager creates a Manager staging files under dir. The directory is
// created if missing.
func NewManager(store ObjectStore, dir string, maxBytes int64) (*Manager, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create staging dir: %w", err)
	}
	return &Manager{store: store, dir: dir, maxBytes: maxBytes}, nil
}

// Staged is a file copied into the staging area for the duration of one
// request. Release must run on every exit path.
type Staged struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64

	id       string
	cid      string
	released bool
}

// Ext returns the lower-cased extension of the original file name.
func (s *Staged) Ext() string {
	return strings.ToLower(filepath.Ext(s.Filename))
}

// Release removes the staged file. Removal failures are logged, never
// returned, so they cannot mask the request's primary result. Safe to
// call more than once and on a nil receiver.
func (s *Staged) Release() {
	if s == nil || s.released {
		return
	}
	s.released = true
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to remove staged file %s: %v", s.Path, err)
	}
}

// Stage copies an uploaded multipart file into the staging area under a
// unique name. Files over the size limit are rejected without leaving
// anything behind.
func (m *Manager) Stage(fh *multipart.FileHeader) (*Staged, error) {
	if fh.Size > m.maxBytes {
		return nil, tooLarge(m.maxBytes)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("media: open upload: %w", err)
	}
	defer src.Close()

	id := uuid.NewString()
	base := strings.ReplaceAll(strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename)), ".", "_")
	s := &Staged{
		Path:        filepath.Join(m.dir, id+"-"+base+strings.ToLower(filepath.Ext(fh.Filename))),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		id:          id,
	}

	dst, err := os.OpenFile(s.Path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("media: create staged file: %w", err)
	}
	n, err := io.Copy(dst, io.LimitReader(src, m.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("media: write staged file: %w", err)
	}
	if n > m.maxBytes {
		s.Release()
		return nil, tooLarge(m.maxBytes)
	}
	s.Size = n
	return s, nil
}

func tooLarge(limit int64) error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: fmt.Sprintf("File must be at most %d bytes.", limit),
		Field:   "file",
	}
}

// Validate rejects anything whose declared content type is not an image.
// It never touches the remote store.
func (m *Manager) Validate(s *Staged) error {
	if !strings.HasPrefix(s.ContentType, "image/") {
		return &apperr.Error{
			Kind:    apperr.KindInvalidMediaType,
			Message: "Please upload an image file.",
			Field:   "file",
		}
	}
	return nil
}

// Upload validates s and promotes it to the remote store, returning the
// public URL. The staged file is left in place; the caller's deferred
// Release removes it.
func (m *Manager) Upload(ctx context.Context, s *Staged) (string, error) {
	if err := m.Validate(s); err != nil {
		return "", err
	}

	cid, err := s.contentID()
	if err != nil {
		return "", fmt.Errorf("media: content id: %w", err)
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return "", fmt.Errorf("media: open staged file: %w", err)
	}
	defer f.Close()

	u, err := m.store.Put(ctx, s.id+s.Ext(), s.ContentType, f, s.Size, map[string]string{MetaContentID: cid})
	if err != nil {
		log.Printf("Error uploading %s: %v", s.Filename, err)
		return "", apperr.External("file", "Failed to upload file.", err)
	}
	return u, nil
}

// Replace swaps the asset at oldURL for the staged file s.
//
// With no staged file, or when s has the same content as the old asset,
// nothing happens and oldURL is returned. Otherwise s is uploaded, commit
// is called with the new URL so the caller can persist the reference,
// and only then is the old asset released. If commit fails the new asset
// is released and the old reference stays intact. commit may be nil.
func (m *Manager) Replace(ctx context.Context, oldURL string, s *Staged, commit func(newURL string) error) (string, error) {
	if s == nil {
		return oldURL, nil
	}
	if err := m.Validate(s); err != nil {
		return "", err
	}

	if oldURL != "" && m.sameContent(ctx, oldURL, s) {
		return oldURL, nil
	}

	newURL, err := m.Upload(ctx, s)
	if err != nil {
		return "", err
	}

	if commit != nil {
		if err := commit(newURL); err != nil {
			if relErr := m.Release(ctx, newURL); relErr != nil {
				log.Printf("Warning: failed to release orphaned upload %s: %v", newURL, relErr)
			}
			return "", err
		}
	}

	if oldURL != "" {
		if err := m.Release(ctx, oldURL); err != nil {
			log.Printf("Warning: replaced asset %s could not be released: %v", oldURL, err)
		}
	}
	return newURL, nil
}

// Release deletes the remote asset behind u. Empty URLs are ignored.
func (m *Manager) Release(ctx context.Context, u string) error {
	if u == "" {
		return nil
	}
	id := IDFromURL(u)
	if id == "" {
		return fmt.Errorf("media: cannot derive id from %q", u)
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrObjectNotFound) {
		log.Printf("Error releasing %s: %v", u, err)
		return apperr.External("file", "Failed to delete file.", err)
	}
	return nil
}

func (m *Manager) sameContent(ctx context.Context, oldURL string, s *Staged) bool {
	cid, err := s.contentID()
	if err != nil {
		return false
	}
	meta, err := m.store.Meta(ctx, IDFromURL(oldURL))
	if err != nil {
		return false
	}
	return meta[MetaContentID] == cid
}

// IDFromURL derives an asset's deletable identifier from its URL: the
// final path segment with everything from the first dot removed.
func IDFromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	id, _, _ := strings.Cut(base, ".")
	return id
}
