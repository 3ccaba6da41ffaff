package audit

import (
	"context"
	"sort"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// EntrySource exposes recorded entries, satisfied by shared.MemoryAuditLog.
type EntrySource interface {
	Entries() []shared.AuditLog
}

var _ Reader = MemoryReader{}

// MemoryReader menyaring entri audit in-process untuk test mode.
type MemoryReader struct {
	Source EntrySource
}

// NewMemoryReader membungkus source.
func NewMemoryReader(source EntrySource) MemoryReader {
	return MemoryReader{Source: source}
}

// Timeline implements Reader.
func (m MemoryReader) Timeline(ctx context.Context, filter TimelineFilter) ([]Row, error) {
	if m.Source == nil {
		return nil, nil
	}
	var out []Row
	for _, e := range m.Source.Entries() {
		row := Row{At: e.At, Actor: e.Actor, Action: e.Action, Entity: e.Entity, EntityID: e.EntityID, Meta: e.Meta}
		if filter.matches(row) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if filter.Page.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Page.Offset:]
	if filter.Page.Limit > 0 && len(out) > filter.Page.Limit {
		out = out[:filter.Page.Limit]
	}
	return out, nil
}
