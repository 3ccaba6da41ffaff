package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServiceItems(t *testing.T) {
	svc := NewService(NewMemoryStore(
		Item{ID: 1, Name: "Beras", Unit: "kg"},
		Item{ID: 2, Name: "Telur", Unit: "butir"},
	))

	items, err := svc.Items(context.Background(), []int64{2, 1, 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "kg", items[1].Unit)

	_, err = svc.Items(context.Background(), []int64{1, 9})
	require.ErrorIs(t, err, ErrItemNotFound)
	require.Contains(t, err.Error(), "9")
}

func TestServiceItemsEmpty(t *testing.T) {
	items, err := NewService(NewMemoryStore()).Items(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, items)
}
