package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dapur-erp/dapur-erp/internal/ap"
)

// ReconcileInput selects the documents of a three-way match. GoodsReceiptID
// and InvoiceID are optional.
type ReconcileInput struct {
	POID           int64
	GoodsReceiptID *int64
	InvoiceID      *int64
	CheckedBy      string
}

// Reconcile compares the PO with the given receipt and invoice and replaces
// the PO's match record together with an audit entry. PO, receipt and
// invoice are only read.
func (s *Service) Reconcile(ctx context.Context, input ReconcileInput) (ThreeWayMatch, error) {
	input.CheckedBy = strings.TrimSpace(input.CheckedBy)
	if input.CheckedBy == "" {
		return ThreeWayMatch{}, validationf("checker is required")
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var (
		po      PurchaseOrder
		gr      *GoodsReceipt
		invoice *ap.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		po, err = s.repo.GetPO(gctx, input.POID, false)
		return err
	})
	if input.GoodsReceiptID != nil {
		g.Go(func() error {
			r, err := s.repo.GetGoodsReceipt(gctx, *input.GoodsReceiptID)
			if err != nil {
				return err
			}
			gr = &r
			return nil
		})
	}
	if input.InvoiceID != nil {
		g.Go(func() error {
			inv, err := s.invoices.GetInvoice(gctx, *input.InvoiceID)
			if err != nil {
				return err
			}
			invoice = &inv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ThreeWayMatch{}, err
	}
	if gr != nil && gr.POID != po.ID {
		return ThreeWayMatch{}, validationf("goods receipt %s belongs to another purchase order", gr.Number)
	}
	if invoice != nil && invoice.POID != po.ID {
		return ThreeWayMatch{}, validationf("invoice %s belongs to another purchase order", invoice.Number)
	}

	now := s.now()
	match := ThreeWayMatch{
		POID:           po.ID,
		GoodsReceiptID: input.GoodsReceiptID,
		InvoiceID:      input.InvoiceID,
		Discrepancies:  Discrepancies(po, gr, invoice, s.cfg.MatchTolerance),
		CheckedBy:      input.CheckedBy,
		UpdatedAt:      now,
	}
	match.Status = MatchDiscrepancy
	if len(match.Discrepancies) == 0 {
		match.Status = MatchMatched
		match.MatchedAt = &now
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpsertMatch(ctx, match); err != nil {
			return err
		}
		return s.recordAudit(ctx, input.CheckedBy, "MATCH_RECONCILE", po.ID, map[string]any{
			"status": string(match.Status), "discrepancies": len(match.Discrepancies),
		})
	})
	if err != nil {
		return ThreeWayMatch{}, conflict(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveThreeWayMatch(string(match.Status))
	}
	s.logger.InfoContext(ctx, "three-way match checked",
		slog.Int64("po_id", po.ID),
		slog.String("status", string(match.Status)),
		slog.Int("discrepancies", len(match.Discrepancies)))
	return match, nil
}

// Discrepancies lists every disagreement between the PO, the receipt and the
// invoice: receipt lines in order, then ordered items absent from the receipt,
// then the invoice total.
func Discrepancies(po PurchaseOrder, gr *GoodsReceipt, invoice *ap.Invoice, tolerance decimal.Decimal) []string {
	out := []string{}
	if gr != nil {
		for _, line := range gr.Lines {
			ordered, ok := po.Line(line.InventoryItemID)
			if !ok {
				out = append(out, fmt.Sprintf("item %s received but not on purchase order", itemLabel(line.ItemName, line.InventoryItemID)))
				continue
			}
			if !line.ReceivedQuantity.Equal(ordered.Quantity) {
				out = append(out, fmt.Sprintf("item %s: ordered %s %s, received %s %s",
					itemLabel(ordered.ItemName, ordered.InventoryItemID),
					ordered.Quantity.String(), ordered.Unit,
					line.ReceivedQuantity.String(), ordered.Unit))
			}
		}
		for _, ordered := range po.Lines {
			if _, ok := gr.Line(ordered.InventoryItemID); ok {
				continue
			}
			out = append(out, fmt.Sprintf("item %s: ordered %s %s, not received",
				itemLabel(ordered.ItemName, ordered.InventoryItemID),
				ordered.Quantity.String(), ordered.Unit))
		}
	}
	if invoice != nil {
		diff := invoice.TotalAmount.Sub(po.TotalAmount).Abs()
		if diff.GreaterThan(tolerance) {
			out = append(out, fmt.Sprintf("invoice total %s differs from PO total %s by %s",
				invoice.TotalAmount.StringFixed(2), po.TotalAmount.StringFixed(2), diff.StringFixed(2)))
		}
	}
	return out
}

func itemLabel(name string, id int64) string {
	if name != "" {
		return name
	}
	return "#" + strconv.FormatInt(id, 10)
}

// GetMatch returns the live match record of a PO.
func (s *Service) GetMatch(ctx context.Context, poID int64) (ThreeWayMatch, error) {
	return s.repo.GetMatch(ctx, poID)
}
