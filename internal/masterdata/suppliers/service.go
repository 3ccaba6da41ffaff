package suppliers

import (
	"context"
	"errors"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// Service exposes supplier lookups to the procurement engine. Concurrent
// lookups of the same id share one query.
type Service struct {
	repo  Repository
	group singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the supplier with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, errors.New("invalid supplier ID")
	}
	v, err, _ := s.group.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return Supplier{}, err
	}
	return v.(Supplier), nil
}
