package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Reader = (*Repository)(nil)

// Repository membaca audit_logs dari PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat reader PostgreSQL.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Timeline implements Reader.
func (r *Repository) Timeline(ctx context.Context, filter TimelineFilter) ([]Row, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !filter.From.IsZero() {
		add("occurred_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("occurred_at < $%d", filter.To)
	}
	if filter.Actor != "" {
		add("actor = $%d", filter.Actor)
	}
	if filter.Entity != "" {
		add("entity = $%d", filter.Entity)
	}
	if filter.EntityID != "" {
		add("entity_id = $%d", filter.EntityID)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	sql := `SELECT occurred_at, actor, action, entity, entity_id, meta FROM audit_logs`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY occurred_at DESC, id DESC`
	if filter.Page.Limit > 0 {
		args = append(args, filter.Page.Limit, filter.Page.Offset)
		sql += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Row, error) {
		var out Row
		err := row.Scan(&out.At, &out.Actor, &out.Action, &out.Entity, &out.EntityID, &out.Meta)
		return out, err
	})
}
