package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dapur-erp/dapur-erp/internal/platform/db"
)

// PostgresRepository provides PostgreSQL backed persistence. Every method
// joins the transaction carried by ctx when there is one.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const poColumns = `id, number, supplier_id, supplier_name, subtotal, tax, total_amount, status,
	workflow_progress, current_step, requested_by, COALESCE(approved_by, ''), approved_at, sent_at,
	supplier_approved_at, COALESCE(supplier_approved_by, ''), supplier_rejected_at,
	COALESCE(rejection_reason, ''), expected_delivery_date, proforma_invoice_id, COALESCE(notes, ''),
	version, created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.SupplierID, &po.SupplierName, &po.Subtotal, &po.Tax, &po.TotalAmount, &po.Status,
		&po.WorkflowProgress, &po.CurrentStep, &po.RequestedBy, &po.ApprovedBy, &po.ApprovedAt, &po.SentAt,
		&po.SupplierApprovedAt, &po.SupplierApprovedBy, &po.SupplierRejectedAt,
		&po.RejectionReason, &po.ExpectedDeliveryDate, &po.ProformaInvoiceID, &po.Notes,
		&po.Version, &po.CreatedAt, &po.UpdatedAt)
	return po, err
}

// InsertPO stores header and lines and fills the generated ids.
func (r *PostgresRepository) InsertPO(ctx context.Context, po *PurchaseOrder) error {
	q := db.Conn(ctx, r.pool)
	err := q.QueryRow(ctx, `INSERT INTO purchase_orders (number, supplier_id, supplier_name, subtotal, tax, total_amount, status,
		workflow_progress, current_step, requested_by, expected_delivery_date, notes, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
		po.Number, po.SupplierID, po.SupplierName, po.Subtotal, po.Tax, po.TotalAmount, po.Status,
		po.WorkflowProgress, po.CurrentStep, po.RequestedBy, po.ExpectedDeliveryDate, po.Notes, po.Version, po.CreatedAt, po.UpdatedAt,
	).Scan(&po.ID)
	if err != nil {
		return fmt.Errorf("procurement: insert purchase order: %w", err)
	}
	for i := range po.Lines {
		line := &po.Lines[i]
		line.POID = po.ID
		err := q.QueryRow(ctx, `INSERT INTO po_lines (po_id, inventory_item_id, item_name, unit, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			line.POID, line.InventoryItemID, line.ItemName, line.Unit, line.Quantity, line.UnitPrice, line.TotalPrice,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("procurement: insert po line: %w", err)
		}
	}
	return nil
}

// GetPO loads a PO with its lines. forUpdate locks the header row until the
// surrounding transaction ends.
func (r *PostgresRepository) GetPO(ctx context.Context, id int64, forUpdate bool) (PurchaseOrder, error) {
	q := db.Conn(ctx, r.pool)
	sql := `SELECT ` + poColumns + ` FROM purchase_orders WHERE id = $1`
	if forUpdate && db.InTx(ctx) {
		sql += ` FOR UPDATE`
	}
	po, err := scanPO(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, po_id, inventory_item_id, item_name, unit, quantity, unit_price, total_price
		FROM po_lines WHERE po_id = $1 ORDER BY id`, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l POLine
		if err := rows.Scan(&l.ID, &l.POID, &l.InventoryItemID, &l.ItemName, &l.Unit, &l.Quantity, &l.UnitPrice, &l.TotalPrice); err != nil {
			return PurchaseOrder{}, err
		}
		po.Lines = append(po.Lines, l)
	}
	return po, rows.Err()
}

// UpdatePO performs a compare-and-set on the version column.
func (r *PostgresRepository) UpdatePO(ctx context.Context, po *PurchaseOrder) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE purchase_orders SET status = $3, workflow_progress = $4, current_step = $5,
		approved_by = NULLIF($6, ''), approved_at = $7, sent_at = $8, supplier_approved_at = $9,
		supplier_approved_by = NULLIF($10, ''), supplier_rejected_at = $11, rejection_reason = NULLIF($12, ''),
		proforma_invoice_id = $13, updated_at = $14, version = version + 1
		WHERE id = $1 AND version = $2`,
		po.ID, po.Version, po.Status, po.WorkflowProgress, po.CurrentStep,
		po.ApprovedBy, po.ApprovedAt, po.SentAt, po.SupplierApprovedAt,
		po.SupplierApprovedBy, po.SupplierRejectedAt, po.RejectionReason,
		po.ProformaInvoiceID, po.UpdatedAt)
	if err != nil {
		return fmt.Errorf("procurement: update purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	po.Version++
	return nil
}

// ListPOs returns headers without lines, newest first.
func (r *PostgresRepository) ListPOs(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.SupplierID > 0 {
		args = append(args, filter.SupplierID)
		where = append(where, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(number ILIKE $%d OR supplier_name ILIKE $%d)", len(args), len(args)))
	}
	sql := `SELECT ` + poColumns + ` FROM purchase_orders`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	sql += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

// InsertSteps creates workflow steps.
func (r *PostgresRepository) InsertSteps(ctx context.Context, steps []WorkflowStep) error {
	batch := &pgx.Batch{}
	for _, st := range steps {
		batch.Queue(`INSERT INTO workflow_steps (po_id, stage, status, completed_by, notes, updated_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
			st.POID, st.Stage, st.Status, st.CompletedBy, st.Notes, st.UpdatedAt)
	}
	results := db.Conn(ctx, r.pool).SendBatch(ctx, batch)
	for range steps {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("procurement: insert workflow step: %w", err)
		}
	}
	return results.Close()
}

// ListSteps returns steps in pipeline order.
func (r *PostgresRepository) ListSteps(ctx context.Context, poID int64) ([]WorkflowStep, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT po_id, stage, status, COALESCE(completed_by, ''), COALESCE(notes, ''), updated_at
		FROM workflow_steps WHERE po_id = $1`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byStage := make(map[Stage]WorkflowStep)
	for rows.Next() {
		var st WorkflowStep
		if err := rows.Scan(&st.POID, &st.Stage, &st.Status, &st.CompletedBy, &st.Notes, &st.UpdatedAt); err != nil {
			return nil, err
		}
		byStage[st.Stage] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orderSteps(byStage), nil
}

func orderSteps(byStage map[Stage]WorkflowStep) []WorkflowStep {
	out := make([]WorkflowStep, 0, len(byStage))
	for _, stage := range Stages {
		if st, ok := byStage[stage]; ok {
			out = append(out, st)
		}
	}
	return out
}

// UpdateStep writes a step unless it is already final in storage.
func (r *PostgresRepository) UpdateStep(ctx context.Context, st WorkflowStep) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE workflow_steps SET status = $3, completed_by = NULLIF($4, ''), notes = NULLIF($5, ''), updated_at = $6
		WHERE po_id = $1 AND stage = $2 AND status NOT IN ('completed', 'failed')`,
		st.POID, st.Stage, st.Status, st.CompletedBy, st.Notes, st.UpdatedAt)
	return err
}

// InsertGoodsReceipt stores an immutable receipt.
func (r *PostgresRepository) InsertGoodsReceipt(ctx context.Context, gr *GoodsReceipt) error {
	q := db.Conn(ctx, r.pool)
	err := q.QueryRow(ctx, `INSERT INTO goods_receipts (number, po_id, status, received_by, received_at, notes)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')) RETURNING id`,
		gr.Number, gr.POID, gr.Status, gr.ReceivedBy, gr.ReceivedAt, gr.Notes).Scan(&gr.ID)
	if err != nil {
		return fmt.Errorf("procurement: insert goods receipt: %w", err)
	}
	for i, l := range gr.Lines {
		_, err := q.Exec(ctx, `INSERT INTO goods_receipt_lines (receipt_id, line_no, inventory_item_id, item_name, unit,
			ordered_quantity, received_quantity, rejection_note) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))`,
			gr.ID, i+1, l.InventoryItemID, l.ItemName, l.Unit, l.OrderedQuantity, l.ReceivedQuantity, l.RejectionNote)
		if err != nil {
			return fmt.Errorf("procurement: insert goods receipt line: %w", err)
		}
	}
	return nil
}

// GetGoodsReceipt loads a receipt with lines.
func (r *PostgresRepository) GetGoodsReceipt(ctx context.Context, id int64) (GoodsReceipt, error) {
	q := db.Conn(ctx, r.pool)
	var gr GoodsReceipt
	err := q.QueryRow(ctx, `SELECT id, number, po_id, status, received_by, received_at, COALESCE(notes, '')
		FROM goods_receipts WHERE id = $1`, id).
		Scan(&gr.ID, &gr.Number, &gr.POID, &gr.Status, &gr.ReceivedBy, &gr.ReceivedAt, &gr.Notes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GoodsReceipt{}, ErrNotFound
		}
		return GoodsReceipt{}, err
	}
	lines, err := r.receiptLines(ctx, q, gr.ID)
	if err != nil {
		return GoodsReceipt{}, err
	}
	gr.Lines = lines
	return gr, nil
}

func (r *PostgresRepository) receiptLines(ctx context.Context, q db.Querier, receiptID int64) ([]GRLine, error) {
	rows, err := q.Query(ctx, `SELECT inventory_item_id, item_name, unit, ordered_quantity, received_quantity, COALESCE(rejection_note, '')
		FROM goods_receipt_lines WHERE receipt_id = $1 ORDER BY line_no`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []GRLine
	for rows.Next() {
		var l GRLine
		if err := rows.Scan(&l.InventoryItemID, &l.ItemName, &l.Unit, &l.OrderedQuantity, &l.ReceivedQuantity, &l.RejectionNote); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListGoodsReceipts returns receipts of a PO, oldest first.
func (r *PostgresRepository) ListGoodsReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	q := db.Conn(ctx, r.pool)
	rows, err := q.Query(ctx, `SELECT id, number, po_id, status, received_by, received_at, COALESCE(notes, '')
		FROM goods_receipts WHERE po_id = $1 ORDER BY id`, poID)
	if err != nil {
		return nil, err
	}
	var receipts []GoodsReceipt
	for rows.Next() {
		var gr GoodsReceipt
		if err := rows.Scan(&gr.ID, &gr.Number, &gr.POID, &gr.Status, &gr.ReceivedBy, &gr.ReceivedAt, &gr.Notes); err != nil {
			rows.Close()
			return nil, err
		}
		receipts = append(receipts, gr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range receipts {
		lines, err := r.receiptLines(ctx, q, receipts[i].ID)
		if err != nil {
			return nil, err
		}
		receipts[i].Lines = lines
	}
	return receipts, nil
}

// UpsertMatch replaces the match record of a PO.
func (r *PostgresRepository) UpsertMatch(ctx context.Context, m ThreeWayMatch) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO three_way_matches (po_id, goods_receipt_id, invoice_id, status, discrepancies, matched_at, checked_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (po_id) DO UPDATE SET goods_receipt_id = EXCLUDED.goods_receipt_id, invoice_id = EXCLUDED.invoice_id,
			status = EXCLUDED.status, discrepancies = EXCLUDED.discrepancies, matched_at = EXCLUDED.matched_at,
			checked_by = EXCLUDED.checked_by, updated_at = EXCLUDED.updated_at`,
		m.POID, m.GoodsReceiptID, m.InvoiceID, m.Status, m.Discrepancies, m.MatchedAt, m.CheckedBy, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("procurement: upsert three-way match: %w", err)
	}
	return nil
}

// GetMatch loads the match record of a PO.
func (r *PostgresRepository) GetMatch(ctx context.Context, poID int64) (ThreeWayMatch, error) {
	var m ThreeWayMatch
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT po_id, goods_receipt_id, invoice_id, status, discrepancies, matched_at, checked_by, updated_at
		FROM three_way_matches WHERE po_id = $1`, poID).
		Scan(&m.POID, &m.GoodsReceiptID, &m.InvoiceID, &m.Status, &m.Discrepancies, &m.MatchedAt, &m.CheckedBy, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ThreeWayMatch{}, ErrNotFound
		}
		return ThreeWayMatch{}, err
	}
	if m.Discrepancies == nil {
		m.Discrepancies = []string{}
	}
	return m, nil
}
