package audit

import (
	"errors"
	"time"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Batas rentang tanggal dan ukuran halaman timeline.
const (
	DefaultRange = 7 * 24 * time.Hour
	MaxRange     = 90 * 24 * time.Hour
	MaxExport    = 5000
)

// ErrInvalidRange ditolak ketika from > to atau rentang melebihi MaxRange.
var ErrInvalidRange = errors.New("audit: invalid date range")

// TimelineFilter menampung filter untuk audit timeline.
type TimelineFilter struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	EntityID string
	Action   string
	Page     shared.Page
}

// Row mewakili satu baris audit_logs.
type Row struct {
	At       time.Time      `json:"at"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Paging menyimpan metadata pagination sederhana.
type Paging struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasNext bool `json:"has_next"`
}

// Result membungkus hasil timeline dengan informasi paging.
type Result struct {
	Rows   []Row  `json:"rows"`
	Paging Paging `json:"paging"`
}

func (f TimelineFilter) matches(r Row) bool {
	if !f.From.IsZero() && r.At.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !r.At.Before(f.To) {
		return false
	}
	if f.Actor != "" && r.Actor != f.Actor {
		return false
	}
	if f.Entity != "" && r.Entity != f.Entity {
		return false
	}
	if f.EntityID != "" && r.EntityID != f.EntityID {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	return true
}
