package inventory

import (
	"context"
	"sync"
)

// MemoryStore serves items from process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[int64]Item
}

// NewMemoryStore seeds a MemoryStore.
func NewMemoryStore(seed ...Item) *MemoryStore {
	s := &MemoryStore{items: make(map[int64]Item, len(seed))}
	for _, it := range seed {
		s.items[it.ID] = it
	}
	return s
}

// GetItems implements ItemStore. Unknown ids are left out of the result.
func (s *MemoryStore) GetItems(_ context.Context, ids []int64) (map[int64]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]Item, len(ids))
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}
