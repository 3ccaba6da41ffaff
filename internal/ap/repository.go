package ap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dapur-erp/dapur-erp/internal/platform/db"
)

// Ensure implementation
var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const invoiceColumns = `id, number, po_id, po_number, supplier_id, supplier_name, kind, subtotal, tax, total_amount,
	paid_amount, remaining_amount, status, issued_date, due_date, created_by, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.POID, &inv.PONumber, &inv.SupplierID, &inv.SupplierName, &inv.Kind,
		&inv.Subtotal, &inv.Tax, &inv.TotalAmount, &inv.PaidAmount, &inv.RemainingAmount, &inv.Status,
		&inv.IssuedDate, &inv.DueDate, &inv.CreatedBy, &inv.UpdatedAt)
	return inv, err
}

func (r *pgRepository) InsertInvoice(ctx context.Context, inv *Invoice) error {
	q := db.Conn(ctx, r.pool)
	err := q.QueryRow(ctx, `INSERT INTO invoices (number, po_id, po_number, supplier_id, supplier_name, kind, subtotal, tax,
		total_amount, paid_amount, remaining_amount, status, issued_date, due_date, created_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`,
		inv.Number, inv.POID, inv.PONumber, inv.SupplierID, inv.SupplierName, inv.Kind, inv.Subtotal, inv.Tax,
		inv.TotalAmount, inv.PaidAmount, inv.RemainingAmount, inv.Status, inv.IssuedDate, inv.DueDate, inv.CreatedBy, inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("ap: insert invoice: %w", err)
	}
	for i, l := range inv.Lines {
		_, err := q.Exec(ctx, `INSERT INTO invoice_lines (invoice_id, line_no, inventory_item_id, item_name, unit, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			inv.ID, i+1, l.InventoryItemID, l.ItemName, l.Unit, l.Quantity, l.UnitPrice, l.TotalPrice)
		if err != nil {
			return fmt.Errorf("ap: insert invoice line: %w", err)
		}
	}
	return nil
}

func (r *pgRepository) GetInvoice(ctx context.Context, id int64, forUpdate bool) (Invoice, error) {
	q := db.Conn(ctx, r.pool)
	sql := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	if forUpdate && db.InTx(ctx) {
		sql += ` FOR UPDATE`
	}
	inv, err := scanInvoice(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	rows, err := q.Query(ctx, `SELECT inventory_item_id, item_name, unit, quantity, unit_price, total_price
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.InventoryItemID, &l.ItemName, &l.Unit, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return Invoice{}, err
		}
		inv.Lines = append(inv.Lines, l)
	}
	return inv, rows.Err()
}

func (r *pgRepository) UpdateInvoiceBalance(ctx context.Context, inv Invoice) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE invoices SET paid_amount = $2, remaining_amount = $3, status = $4, updated_at = $5 WHERE id = $1`,
		inv.ID, inv.PaidAmount, inv.RemainingAmount, inv.Status, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ap: update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *pgRepository) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	var (
		where []string
		args  []any
	)
	if filter.POID > 0 {
		args = append(args, filter.POID)
		where = append(where, fmt.Sprintf("po_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	sql := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY issued_date DESC, id DESC`
	if filter.Page.Limit > 0 {
		args = append(args, filter.Page.Limit, filter.Page.Offset)
		sql += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	return r.queryInvoices(ctx, sql, args...)
}

func (r *pgRepository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	return r.queryInvoices(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE status IN ('pending', 'partial') AND remaining_amount > 0 AND due_date < $1 ORDER BY due_date`, asOf)
}

func (r *pgRepository) queryInvoices(ctx context.Context, sql string, args ...any) ([]Invoice, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *pgRepository) InsertPayment(ctx context.Context, p *Payment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO payments (number, invoice_id, supplier_id, payment_request_id, amount, method, reference, paid_at, paid_by)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9) RETURNING id`,
		p.Number, p.InvoiceID, p.SupplierID, p.PaymentRequestID, p.Amount, p.Method, p.Reference, p.PaidAt, p.PaidBy,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("ap: insert payment: %w", err)
	}
	return nil
}

func (r *pgRepository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, number, invoice_id, supplier_id, payment_request_id, amount, method,
		COALESCE(reference, ''), paid_at, paid_by FROM payments WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.Number, &p.InvoiceID, &p.SupplierID, &p.PaymentRequestID, &p.Amount, &p.Method,
			&p.Reference, &p.PaidAt, &p.PaidBy); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const requestColumns = `id, number, invoice_id, supplier_id, amount, status, requested_by, COALESCE(notes, ''), created_at, paid_at`

func scanRequest(row pgx.Row) (PaymentRequest, error) {
	var pr PaymentRequest
	err := row.Scan(&pr.ID, &pr.Number, &pr.InvoiceID, &pr.SupplierID, &pr.Amount, &pr.Status, &pr.RequestedBy, &pr.Notes, &pr.CreatedAt, &pr.PaidAt)
	return pr, err
}

func (r *pgRepository) InsertPaymentRequest(ctx context.Context, pr *PaymentRequest) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO payment_requests (number, invoice_id, supplier_id, amount, status, requested_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8) RETURNING id`,
		pr.Number, pr.InvoiceID, pr.SupplierID, pr.Amount, pr.Status, pr.RequestedBy, pr.Notes, pr.CreatedAt,
	).Scan(&pr.ID)
	if err != nil {
		return fmt.Errorf("ap: insert payment request: %w", err)
	}
	return nil
}

func (r *pgRepository) GetPaymentRequest(ctx context.Context, id int64, forUpdate bool) (PaymentRequest, error) {
	sql := `SELECT ` + requestColumns + ` FROM payment_requests WHERE id = $1`
	if forUpdate && db.InTx(ctx) {
		sql += ` FOR UPDATE`
	}
	pr, err := scanRequest(db.Conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRequest{}, ErrPaymentRequestNotFound
		}
		return PaymentRequest{}, err
	}
	return pr, nil
}

func (r *pgRepository) UpdatePaymentRequest(ctx context.Context, pr PaymentRequest) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE payment_requests SET status = $2, paid_at = $3 WHERE id = $1`, pr.ID, pr.Status, pr.PaidAt)
	return err
}

func (r *pgRepository) ListPaymentRequests(ctx context.Context, invoiceID int64) ([]PaymentRequest, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentRequest
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}
