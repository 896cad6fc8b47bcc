package catalog

import (
	"context"
	"sync"

	"github.com/Lllllllleong/bookletflow/internal/models"
)

// MemoryStore is an in-process catalog for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	booklets map[string]*models.Booklet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{booklets: make(map[string]*models.Booklet)}
}

func clone(b *models.Booklet) *models.Booklet {
	c := *b
	c.Pages = append([]models.Page(nil), b.Pages...)
	return &c
}

func (s *MemoryStore) Get(ctx context.Context, docID string) (*models.Booklet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.booklets[docID]
	if !ok {
		return nil, nil
	}
	return clone(b), nil
}

func (s *MemoryStore) Put(ctx context.Context, b *models.Booklet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.booklets[b.DocID] = clone(b)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, docID string, mutate Mutator) (*models.Booklet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.booklets[docID]
	if !ok {
		return nil, models.NotFoundError(docID)
	}
	b := clone(current)
	if _, err := mutate(b); err != nil {
		return nil, err
	}
	s.booklets[docID] = b
	return clone(b), nil
}

func (s *MemoryStore) Delete(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.booklets, docID)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.Booklet, error) {
	s.mu.RLock()
	out := make([]models.Booklet, 0, len(s.booklets))
	for _, b := range s.booklets {
		summary := *b
		summary.Pages = nil
		out = append(out, summary)
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}
