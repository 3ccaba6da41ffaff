package suppliers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items map[int64]Supplier
	calls int
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	m.calls++
	s, ok := m.items[id]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}

func TestServiceGet(t *testing.T) {
	repo := &memoryRepo{items: map[int64]Supplier{7: {ID: 7, Name: "CV Sayur Segar", Active: true}}}
	svc := NewService(repo)

	s, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "CV Sayur Segar", s.Name)

	_, err = svc.Get(context.Background(), 8)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), 0)
	require.Error(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestMemoryRepository(t *testing.T) {
	svc := NewService(NewMemoryRepository(Supplier{ID: 3, Code: "SUP-003", Name: "UD Tani Makmur", Active: true}))

	s, err := svc.Get(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, "SUP-003", s.Code)

	_, err = svc.Get(context.Background(), 4)
	require.ErrorIs(t, err, ErrNotFound)
}
