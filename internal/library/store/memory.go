package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"libregistry/internal/library/models"
	"libregistry/pkg/platform/sentinel"
)

// InMemory is a map-backed store for tests and local development. The single
// mutex gives every OPDS URL the same exclusivity the Postgres store provides
// with row locks.
type InMemory struct {
	mu        sync.Mutex
	libraries map[string]*models.Library
}

func NewInMemory() *InMemory {
	return &InMemory{libraries: make(map[string]*models.Library)}
}

func (s *InMemory) FindByOPDSURL(_ context.Context, opdsURL string) (*models.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib, ok := s.libraries[opdsURL]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyLibrary(lib), nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Library, 0, len(s.libraries))
	for _, lib := range s.libraries {
		out = append(out, copyLibrary(lib))
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *InMemory) Reconcile(_ context.Context, opdsURL string, fn ReconcileFunc) (*models.Library, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.libraries[opdsURL]

	var input *models.Library
	if found {
		input = copyLibrary(existing)
	}

	result, err := fn(input)
	if err != nil {
		return nil, false, err
	}

	// The callback may move the library to a new OPDS URL.
	if result.OPDSURL != opdsURL {
		delete(s.libraries, opdsURL)
	}
	s.libraries[result.OPDSURL] = copyLibrary(result)
	return copyLibrary(result), !found, nil
}

// copyLibrary guards against callers aliasing stored state.
func copyLibrary(lib *models.Library) *models.Library {
	if lib == nil {
		return nil
	}
	dup := *lib
	if lib.Location != nil {
		loc := *lib.Location
		dup.Location = &loc
	}
	if lib.Aliases != nil {
		dup.Aliases = append([]string(nil), lib.Aliases...)
	}
	return &dup
}
