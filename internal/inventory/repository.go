package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads inventory items from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetItem returns a single item.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	var it Item
	err := r.pool.QueryRow(ctx, `SELECT id, sku, name, unit, COALESCE(category, '') FROM inventory_items WHERE id = $1`, id).
		Scan(&it.ID, &it.SKU, &it.Name, &it.Unit, &it.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return it, nil
}

// GetItems returns the items for the given ids keyed by id. Unknown ids are
// absent from the result.
func (r *Repository) GetItems(ctx context.Context, ids []int64) (map[int64]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sku, name, unit, COALESCE(category, '') FROM inventory_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]Item, len(ids))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.SKU, &it.Name, &it.Unit, &it.Category); err != nil {
			return nil, err
		}
		out[it.ID] = it
	}
	return out, rows.Err()
}
