package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Reader membaca audit_logs. Rows dikembalikan terbaru dulu; Page.Limit 0
// berarti tanpa batas.
type Reader interface {
	Timeline(ctx context.Context, filter TimelineFilter) ([]Row, error)
}

// Service mengoordinasikan pengambilan data audit.
type Service struct {
	reader Reader
	now    func() time.Time
}

// NewService membuat service audit timeline baru.
func NewService(reader Reader) *Service {
	return &Service{reader: reader, now: time.Now}
}

// Timeline mengambil satu halaman audit timeline.
func (s *Service) Timeline(ctx context.Context, filter TimelineFilter) (Result, error) {
	filter, err := s.normalize(filter)
	if err != nil {
		return Result{}, err
	}
	page := shared.NewPage(filter.Page.Limit, filter.Page.Offset)
	filter.Page = shared.Page{Limit: page.Limit + 1, Offset: page.Offset}
	rows, err := s.reader.Timeline(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("audit: timeline: %w", err)
	}
	hasNext := len(rows) > page.Limit
	if hasNext {
		rows = rows[:page.Limit]
	}
	if rows == nil {
		rows = []Row{}
	}
	return Result{Rows: rows, Paging: Paging{Limit: page.Limit, Offset: page.Offset, HasNext: hasNext}}, nil
}

// Export mengambil seluruh baris timeline, dibatasi MaxExport.
func (s *Service) Export(ctx context.Context, filter TimelineFilter) ([]Row, error) {
	filter, err := s.normalize(filter)
	if err != nil {
		return nil, err
	}
	filter.Page = shared.Page{Limit: MaxExport}
	rows, err := s.reader.Timeline(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", err)
	}
	return rows, nil
}

// normalize mengisi rentang default dan menolak rentang yang tidak valid.
func (s *Service) normalize(filter TimelineFilter) (TimelineFilter, error) {
	filter.Actor = strings.TrimSpace(filter.Actor)
	filter.Entity = strings.TrimSpace(filter.Entity)
	filter.EntityID = strings.TrimSpace(filter.EntityID)
	filter.Action = strings.ToUpper(strings.TrimSpace(filter.Action))
	if filter.To.IsZero() {
		filter.To = s.now()
	}
	if filter.From.IsZero() {
		filter.From = filter.To.Add(-DefaultRange)
	}
	if filter.From.After(filter.To) || filter.To.Sub(filter.From) > MaxRange {
		return TimelineFilter{}, fmt.Errorf("%w: %w", shared.ErrValidation, ErrInvalidRange)
	}
	return filter, nil
}
