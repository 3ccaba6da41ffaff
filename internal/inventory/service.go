package inventory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// ItemStore is the persistence dependency of Service.
type ItemStore interface {
	GetItems(ctx context.Context, ids []int64) (map[int64]Item, error)
}

// Service resolves item names and units for the procurement engine.
type Service struct {
	store ItemStore
	group singleflight.Group
}

// NewService builds the item lookup service.
func NewService(store ItemStore) *Service {
	return &Service{store: store}
}

// Items resolves every id or fails with ErrItemNotFound naming the first
// missing id.
func (s *Service) Items(ctx context.Context, ids []int64) (map[int64]Item, error) {
	uniq := dedupe(ids)
	if len(uniq) == 0 {
		return map[int64]Item{}, nil
	}
	key := make([]string, len(uniq))
	for i, id := range uniq {
		key[i] = strconv.FormatInt(id, 10)
	}
	v, err, _ := s.group.Do(strings.Join(key, ","), func() (interface{}, error) {
		return s.store.GetItems(ctx, uniq)
	})
	if err != nil {
		return nil, err
	}
	items := v.(map[int64]Item)
	for _, id := range uniq {
		if _, ok := items[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrItemNotFound, id)
		}
	}
	return items, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
