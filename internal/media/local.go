package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore is an ObjectStore writing objects to a directory on disk.
// It is meant for development; the server exposes the directory under
// /media.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates dir if needed. baseURL is the public prefix the
// directory is served at (e.g. "http://localhost:3000/media").
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local store: create dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory objects are written to.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64, meta map[string]string) (string, error) {
	if strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("local store: invalid key %q", key)
	}
	f, err := os.Create(filepath.Join(s.dir, key))
	if err != nil {
		return "", fmt.Errorf("local store: create %q: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("local store: write %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("local store: close %q: %w", key, err)
	}

	id, _, _ := strings.Cut(key, ".")
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("local store: encode meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath(id), data, 0o644); err != nil {
		return "", fmt.Errorf("local store: write meta: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStore) Delete(_ context.Context, id string) error {
	matches, err := s.objects(id)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("local store: remove %s: %w", m, err)
		}
	}
	if err := os.Remove(s.metaPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("local store: remove meta: %w", err)
	}
	return nil
}

func (s *LocalStore) Meta(_ context.Context, id string) (map[string]string, error) {
	data, err := os.ReadFile(s.metaPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("local store: read meta: %w", err)
	}
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("local store: decode meta: %w", err)
	}
	return meta, nil
}

func (s *LocalStore) objects(id string) ([]string, error) {
	if id == "" || strings.ContainsAny(id, `/\*?[`) {
		return nil, fmt.Errorf("local store: invalid id %q", id)
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, id+".*"))
	if err != nil {
		return nil, fmt.Errorf("local store: glob: %w", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, id)); err == nil {
		matches = append(matches, filepath.Join(s.dir, id))
	}
	out := matches[:0]
	for _, m := range matches {
		if !strings.HasSuffix(m, ".meta.json") {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *LocalStore) metaPath(id string) string {
	return filepath.Join(s.dir, id+".meta.json")
}
