package sequence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mark is the highest number issued for a kind within one period.
type Mark struct {
	Kind   Kind
	Period time.Time
	Value  int64
}

// Querier is satisfied by pgx pools and transactions.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var numberTables = []struct {
	kind  Kind
	table string
}{
	{KindPurchaseOrder, "purchase_orders"},
	{KindGoodsReceipt, "goods_receipts"},
	{KindInvoice, "invoices"},
	{KindPayment, "payments"},
	{KindPaymentRequest, "payment_requests"},
}

// ParsePeriod reads the year-month scope written by Period.
func ParsePeriod(s string) (time.Time, error) {
	at, err := time.Parse("2006.01", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("sequence: bad period %q: %w", s, err)
	}
	return at, nil
}

// ScanMarks reads the highest stored number per kind and period.
func ScanMarks(ctx context.Context, q Querier) ([]Mark, error) {
	var out []Mark
	for _, t := range numberTables {
		sql := `SELECT split_part(number, '/', 2), MAX(split_part(number, '/', 3)::bigint)
			FROM ` + t.table + ` WHERE number LIKE $1 GROUP BY 1`
		rows, err := q.Query(ctx, sql, string(t.kind)+"/%")
		if err != nil {
			return nil, fmt.Errorf("sequence: scan %s: %w", t.table, err)
		}
		type periodMax struct {
			Period string
			Value  int64
		}
		found, err := pgx.CollectRows(rows, pgx.RowToStructByPos[periodMax])
		if err != nil {
			return nil, fmt.Errorf("sequence: scan %s: %w", t.table, err)
		}
		for _, f := range found {
			at, err := ParsePeriod(f.Period)
			if err != nil {
				return nil, err
			}
			out = append(out, Mark{Kind: t.kind, Period: at, Value: f.Value})
		}
	}
	return out, nil
}

// SeedMarks raises every counter to its mark and returns how many marks it
// applied.
func (a *RedisAllocator) SeedMarks(ctx context.Context, marks []Mark) (int, error) {
	for i, m := range marks {
		if err := a.Seed(ctx, m.Kind, m.Period, m.Value); err != nil {
			return i, fmt.Errorf("sequence: seed %s/%s: %w", m.Kind, Period(m.Period), err)
		}
	}
	return len(marks), nil
}

// Resync raises the redis counters to the numbers already stored in
// PostgreSQL, used after restoring a database or flushing redis.
func Resync(ctx context.Context, q Querier, a *RedisAllocator) (int, error) {
	marks, err := ScanMarks(ctx, q)
	if err != nil {
		return 0, err
	}
	return a.SeedMarks(ctx, marks)
}
