package memstore

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strings"
	"sync"

	"github.com/shravzzv/ODIN-Blog-api-project-Api/internal/media"
)

// Objects is an in-memory media.ObjectStore.
type Objects struct {
	Faults

	baseURL string

	mu   sync.Mutex
	byID map[string]object
}

type object struct {
	key         string
	contentType string
	data        []byte
	meta        map[string]string
}

// NewObjects creates an empty object store whose URLs start with baseURL.
func NewObjects(baseURL string) *Objects {
	return &Objects{
		baseURL: strings.TrimRight(baseURL, "/"),
		byID:    make(map[string]object),
	}
}

var _ media.ObjectStore = (*Objects)(nil)

func (s *Objects) Put(_ context.Context, key, contentType string, body io.Reader, _ int64, meta map[string]string) (string, error) {
	if err := s.check("Put"); err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("memstore: read object: %w", err)
	}
	id, _, _ := strings.Cut(key, ".")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = object{key: key, contentType: contentType, data: data, meta: maps.Clone(meta)}
	return s.baseURL + "/" + key, nil
}

func (s *Objects) Delete(_ context.Context, id string) error {
	if err := s.check("Delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", media.ErrObjectNotFound, id)
	}
	delete(s.byID, id)
	return nil
}

func (s *Objects) Meta(_ context.Context, id string) (map[string]string, error) {
	if err := s.check("Meta"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", media.ErrObjectNotFound, id)
	}
	return maps.Clone(obj.meta), nil
}

// Has reports whether the object behind url is stored.
func (s *Objects) Has(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[media.IDFromURL(url)]
	return ok
}

// Len returns the number of stored objects.
func (s *Objects) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
