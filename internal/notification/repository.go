package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dapur-erp/dapur-erp/internal/platform/db"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const columns = `id, type, title, message, recipient_role, recipient_id, po_id, invoice_id, read_at, created_at`

func scan(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &n.RecipientRole, &n.RecipientID, &n.POID, &n.InvoiceID, &n.ReadAt, &n.CreatedAt)
	n.Read = n.ReadAt != nil
	return n, err
}

func (r *pgRepository) Insert(ctx context.Context, n *Notification) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO notifications (type, title, message, recipient_role, recipient_id, po_id, invoice_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		n.Type, n.Title, n.Message, n.RecipientRole, n.RecipientID, n.POID, n.InvoiceID, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("notification: insert: %w", err)
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	sql := `SELECT ` + columns + ` FROM notifications WHERE recipient_role = $1`
	if filter.UnreadOnly {
		sql += ` AND read_at IS NULL`
	}
	sql += ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, filter.Role, filter.Page.Limit, filter.Page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Notification
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *pgRepository) UnreadCount(ctx context.Context, role shared.Role) (int, error) {
	var count int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_role = $1 AND read_at IS NULL`, role).Scan(&count)
	return count, err
}

func (r *pgRepository) MarkRead(ctx context.Context, id int64, role shared.Role, at time.Time) (Notification, error) {
	n, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE notifications SET read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND recipient_role = $2 RETURNING `+columns, id, role, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, err
	}
	return n, nil
}

func (r *pgRepository) MarkAllRead(ctx context.Context, role shared.Role, at time.Time) (int, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE notifications SET read_at = $2 WHERE recipient_role = $1 AND read_at IS NULL`, role, at)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
