package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/events"
	"github.com/dapur-erp/dapur-erp/internal/sequence"
)

// GoodsReceiptInput describes a delivery.
type GoodsReceiptInput struct {
	POID       int64
	ReceivedBy string
	Notes      string
	Lines      []GoodsReceiptLineInput
}

// GoodsReceiptLineInput is the received quantity of one item.
type GoodsReceiptLineInput struct {
	InventoryItemID  int64
	ReceivedQuantity decimal.Decimal
	RejectionNote    string
}

var receivableStatuses = map[POStatus]bool{
	StatusSupplierApproved: true,
	StatusInTransit:        true,
	StatusReceived:         true,
}

// CreateGoodsReceipt records a delivery against the PO. PO lines missing from
// the input are stored as received zero. The receipt is stored whatever its
// classification; a completed receipt moves the PO to received.
func (s *Service) CreateGoodsReceipt(ctx context.Context, input GoodsReceiptInput) (GoodsReceipt, error) {
	input.ReceivedBy = strings.TrimSpace(input.ReceivedBy)
	if input.ReceivedBy == "" {
		return GoodsReceipt{}, validationf("receiver is required")
	}
	if len(input.Lines) == 0 {
		return GoodsReceipt{}, validationf("minimal 1 line")
	}
	seen := make(map[int64]bool, len(input.Lines))
	for i, line := range input.Lines {
		if line.InventoryItemID <= 0 {
			return GoodsReceipt{}, validationf("line %d: inventory item is required", i+1)
		}
		if seen[line.InventoryItemID] {
			return GoodsReceipt{}, validationf("line %d: item %d listed twice", i+1, line.InventoryItemID)
		}
		seen[line.InventoryItemID] = true
		if line.ReceivedQuantity.IsNegative() {
			return GoodsReceipt{}, validationf("line %d: received quantity must not be negative", i+1)
		}
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var gr GoodsReceipt
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		po, err := s.repo.GetPO(ctx, input.POID, true)
		if err != nil {
			return err
		}
		if !receivableStatuses[po.Status] {
			return fmt.Errorf("%w: cannot receive goods for a purchase order in status %s", ErrInvalidState, po.Status)
		}
		now := s.now()
		number, err := s.seq.Next(ctx, sequence.KindGoodsReceipt, now)
		if err != nil {
			return fmt.Errorf("procurement: allocate number: %w", err)
		}
		gr = GoodsReceipt{
			Number:     number,
			POID:       po.ID,
			ReceivedBy: input.ReceivedBy,
			ReceivedAt: now,
			Notes:      input.Notes,
		}
		for _, in := range input.Lines {
			line := GRLine{
				InventoryItemID:  in.InventoryItemID,
				OrderedQuantity:  decimal.Zero,
				ReceivedQuantity: in.ReceivedQuantity,
				RejectionNote:    in.RejectionNote,
			}
			if ordered, ok := po.Line(in.InventoryItemID); ok {
				line.ItemName = ordered.ItemName
				line.Unit = ordered.Unit
				line.OrderedQuantity = ordered.Quantity
			}
			gr.Lines = append(gr.Lines, line)
		}
		for _, ordered := range po.Lines {
			if seen[ordered.InventoryItemID] {
				continue
			}
			gr.Lines = append(gr.Lines, GRLine{
				InventoryItemID:  ordered.InventoryItemID,
				ItemName:         ordered.ItemName,
				Unit:             ordered.Unit,
				OrderedQuantity:  ordered.Quantity,
				ReceivedQuantity: decimal.Zero,
				RejectionNote:    "not delivered",
			})
		}
		gr.Status = ClassifyReceipt(gr.Lines)

		if err := s.repo.InsertGoodsReceipt(ctx, &gr); err != nil {
			return err
		}
		if err := s.publish(ctx, events.GoodsReceived{
			Meta:          events.NewMeta(input.ReceivedBy),
			POID:          po.ID,
			PONumber:      po.Number,
			SupplierID:    po.SupplierID,
			ReceiptID:     gr.ID,
			ReceiptNumber: gr.Number,
			Status:        string(gr.Status),
		}); err != nil {
			return err
		}
		if err := s.recordAudit(ctx, input.ReceivedBy, "GR_CREATE", po.ID, map[string]any{"number": gr.Number, "status": string(gr.Status)}); err != nil {
			return err
		}
		if gr.Status == GRCompleted && po.Status != StatusReceived {
			_, err := s.MarkReceived(ctx, ActionInput{POID: po.ID, Actor: input.ReceivedBy, Note: "goods receipt " + gr.Number})
			return err
		}
		return nil
	})
	if err != nil {
		return GoodsReceipt{}, conflict(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveGoodsReceipt(string(gr.Status))
	}
	s.logger.InfoContext(ctx, "goods receipt recorded",
		slog.Int64("po_id", gr.POID),
		slog.String("number", gr.Number),
		slog.String("status", string(gr.Status)))
	return gr, nil
}

// ClassifyReceipt starts from completed, downgrades to partial when any line
// is under-received, and otherwise flags any remaining mismatch as a
// discrepancy.
func ClassifyReceipt(lines []GRLine) GRStatus {
	status := GRCompleted
	for _, l := range lines {
		if l.ReceivedQuantity.LessThan(l.OrderedQuantity) {
			status = GRPartial
		}
	}
	if status == GRPartial {
		return status
	}
	for _, l := range lines {
		if !l.ReceivedQuantity.Equal(l.OrderedQuantity) {
			return GRDiscrepancy
		}
	}
	return status
}

// GetGoodsReceipt returns a receipt.
func (s *Service) GetGoodsReceipt(ctx context.Context, id int64) (GoodsReceipt, error) {
	return s.repo.GetGoodsReceipt(ctx, id)
}

// ListGoodsReceipts returns the receipts of a PO, oldest first.
func (s *Service) ListGoodsReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	if _, err := s.repo.GetPO(ctx, poID, false); err != nil {
		return nil, err
	}
	return s.repo.ListGoodsReceipts(ctx, poID)
}
