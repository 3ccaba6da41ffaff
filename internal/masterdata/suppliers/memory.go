package suppliers

import (
	"context"
	"sync"
)

// MemoryRepository serves suppliers from process memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[int64]Supplier
}

// NewMemoryRepository seeds a MemoryRepository.
func NewMemoryRepository(seed ...Supplier) *MemoryRepository {
	r := &MemoryRepository{byID: make(map[int64]Supplier, len(seed))}
	for _, s := range seed {
		r.byID[s.ID] = s
	}
	return r
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, id int64) (Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}
