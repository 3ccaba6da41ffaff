package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps notifications in process, for test mode and tests.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Notification
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[int64]Notification)}
}

func (r *MemoryRepository) Insert(ctx context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	r.items[n.ID] = *n
	return nil
}

func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.items {
		if n.RecipientRole != filter.Role || (filter.UnreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Page.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Page.Offset:]
	if filter.Page.Limit > 0 && len(out) > filter.Page.Limit {
		out = out[:filter.Page.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) UnreadCount(ctx context.Context, role shared.Role) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.items {
		if n.RecipientRole == role && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *MemoryRepository) MarkRead(ctx context.Context, id int64, role shared.Role, at time.Time) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.RecipientRole != role {
		return Notification{}, ErrNotFound
	}
	if !n.Read {
		n.Read = true
		n.ReadAt = &at
		r.items[id] = n
	}
	return n, nil
}

func (r *MemoryRepository) MarkAllRead(ctx context.Context, role shared.Role, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for id, n := range r.items {
		if n.RecipientRole != role || n.Read {
			continue
		}
		n.Read = true
		n.ReadAt = &at
		r.items[id] = n
		changed++
	}
	return changed, nil
}
