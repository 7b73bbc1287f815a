package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory storage backend (default, and for tests)
type MemoryStore struct {
	calculations map[string]*StoredCalculation
	mu           sync.RWMutex
	now          func() time.Time
}

// NewMemoryStore creates a memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calculations: make(map[string]*StoredCalculation),
		now:          time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, calc *StoredCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if calc.ID == "" {
		calc.ID = uuid.New().String()
	}
	if calc.CreatedAt.IsZero() {
		calc.CreatedAt = s.now().UTC()
	}
	if calc.UpdatedAt.IsZero() {
		calc.UpdatedAt = calc.CreatedAt
	}

	stored := *calc
	s.calculations[calc.ID] = &stored
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*StoredCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calc, ok := s.calculations[id]
	if !ok {
		return nil, notFound(id)
	}
	out := *calc
	return &out, nil
}

func (s *MemoryStore) List(ctx context.Context, filter *ListFilter) ([]*StoredCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*StoredCalculation, 0, len(s.calculations))
	for _, calc := range s.calculations {
		if filter.matches(calc) {
			out := *calc
			results = append(results, &out)
		}
	}
	return sortAndPage(results, filter), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, update *CalculationUpdate) (*StoredCalculation, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	calc, ok := s.calculations[id]
	if !ok {
		return nil, notFound(id)
	}
	update.apply(calc, s.now().UTC())

	out := *calc
	return &out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.calculations[id]; !ok {
		return notFound(id)
	}
	delete(s.calculations, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
