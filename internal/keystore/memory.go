package keystore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/keyscan/internal/keytemplate"
)

// MemoryStore keeps templates in a map. Stored templates are deep-copied
// on the way in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]keytemplate.KeyTemplate
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[uuid.UUID]keytemplate.KeyTemplate)}
}

func (s *MemoryStore) Save(ctx context.Context, t keytemplate.KeyTemplate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("save template %s: %w", t.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t.Clone()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, id uuid.UUID) (keytemplate.KeyTemplate, error) {
	if err := ctx.Err(); err != nil {
		return keytemplate.KeyTemplate{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return keytemplate.KeyTemplate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.Clone(), nil
}

// LoadAll returns every template ordered by enrollment time.
func (s *MemoryStore) LoadAll(ctx context.Context) ([]keytemplate.KeyTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]keytemplate.KeyTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EnrolledAt.Equal(out[j].EnrolledAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].EnrolledAt.Before(out[j].EnrolledAt)
	})
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.templates, id)
	return nil
}
