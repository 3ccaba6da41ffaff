package notification

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/events"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// PORef carries the purchase order fields used by the templates.
type PORef struct {
	ID           int64
	Number       string
	SupplierID   int64
	SupplierName string
	TotalAmount  decimal.Decimal
}

// InvoiceRef carries the invoice fields used by the templates.
type InvoiceRef struct {
	ID         int64
	Number     string
	Kind       string
	POID       int64
	PONumber   string
	SupplierID int64
	Amount     decimal.Decimal
}

type recipient struct {
	role shared.Role
	id   *int64
}

func roles(rs ...shared.Role) []recipient {
	out := make([]recipient, 0, len(rs))
	for _, r := range rs {
		out = append(out, recipient{role: r})
	}
	return out
}

func supplier(id int64) recipient {
	if id <= 0 {
		return recipient{role: shared.RoleSupplier}
	}
	return recipient{role: shared.RoleSupplier, id: &id}
}

func (s *Service) fanOut(ctx context.Context, to []recipient, in NotifyInput) error {
	for _, r := range to {
		in.RecipientRole = r.role
		in.RecipientID = r.id
		if _, err := s.Notify(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

func poInput(t Type, title, message string, po PORef) NotifyInput {
	id := po.ID
	return NotifyInput{Type: t, Title: title, Message: message, POID: &id}
}

func rupiah(d decimal.Decimal) string {
	return "Rp " + d.StringFixed(2)
}

// ApprovalRequested asks the manager to review a submitted PO.
func (s *Service) ApprovalRequested(ctx context.Context, po PORef) error {
	return s.fanOut(ctx, roles(shared.RoleManager), poInput(TypeApprovalRequested,
		"PO "+po.Number+" needs approval",
		fmt.Sprintf("Purchase order %s to %s totalling %s is waiting for approval.", po.Number, po.SupplierName, rupiah(po.TotalAmount)),
		po))
}

// POApproved tells the kitchen its PO was approved.
func (s *Service) POApproved(ctx context.Context, po PORef) error {
	return s.fanOut(ctx, roles(shared.RoleKitchen), poInput(TypePOApproved,
		"PO "+po.Number+" approved",
		fmt.Sprintf("Purchase order %s was approved and can be sent to %s.", po.Number, po.SupplierName),
		po))
}

// POSent informs the supplier and the manager that a PO was sent.
func (s *Service) POSent(ctx context.Context, po PORef) error {
	return s.fanOut(ctx, []recipient{supplier(po.SupplierID), {role: shared.RoleManager}}, poInput(TypePOSent,
		"New purchase order "+po.Number,
		fmt.Sprintf("Purchase order %s totalling %s was sent to %s.", po.Number, rupiah(po.TotalAmount), po.SupplierName),
		po))
}

// POAccepted informs the kitchen and the manager that the supplier accepted.
func (s *Service) POAccepted(ctx context.Context, po PORef) error {
	return s.fanOut(ctx, roles(shared.RoleKitchen, shared.RoleManager), poInput(TypePOAccepted,
		"PO "+po.Number+" accepted by supplier",
		fmt.Sprintf("%s accepted purchase order %s.", po.SupplierName, po.Number),
		po))
}

// PORejected informs the kitchen and the manager of the supplier's refusal.
func (s *Service) PORejected(ctx context.Context, po PORef, reason string) error {
	return s.fanOut(ctx, roles(shared.RoleKitchen, shared.RoleManager), poInput(TypePORejected,
		"PO "+po.Number+" rejected by supplier",
		fmt.Sprintf("%s rejected purchase order %s: %s", po.SupplierName, po.Number, reason),
		po))
}

// QCFailed informs the manager and the supplier of a failed quality check.
func (s *Service) QCFailed(ctx context.Context, po PORef, reason string) error {
	return s.fanOut(ctx, []recipient{{role: shared.RoleManager}, supplier(po.SupplierID)}, poInput(TypeQCFailed,
		"QC failed for PO "+po.Number,
		fmt.Sprintf("Goods of purchase order %s failed quality control: %s", po.Number, reason),
		po))
}

// POCancelled informs the kitchen and the manager of a cancellation.
func (s *Service) POCancelled(ctx context.Context, po PORef, reason string) error {
	msg := fmt.Sprintf("Purchase order %s was cancelled.", po.Number)
	if reason != "" {
		msg = fmt.Sprintf("Purchase order %s was cancelled: %s", po.Number, reason)
	}
	return s.fanOut(ctx, roles(shared.RoleKitchen, shared.RoleManager), poInput(TypePOCancelled, "PO "+po.Number+" cancelled", msg, po))
}

// GoodsReceived reports a goods receipt. Completed receipts go to the kitchen
// and the manager, anything else is a discrepancy for the manager and the
// supplier.
func (s *Service) GoodsReceived(ctx context.Context, po PORef, receiptNumber, status string) error {
	if status == "completed" {
		return s.fanOut(ctx, roles(shared.RoleKitchen, shared.RoleManager), poInput(TypeGoodsReceived,
			"Goods received for PO "+po.Number,
			fmt.Sprintf("Goods receipt %s matches purchase order %s.", receiptNumber, po.Number),
			po))
	}
	return s.fanOut(ctx, []recipient{{role: shared.RoleManager}, supplier(po.SupplierID)}, poInput(TypeGoodsDiscrepancy,
		"Delivery discrepancy on PO "+po.Number,
		fmt.Sprintf("Goods receipt %s for purchase order %s is %s.", receiptNumber, po.Number, status),
		po))
}

// InvoiceGenerated asks finance to process a new invoice and tells the
// manager about it.
func (s *Service) InvoiceGenerated(ctx context.Context, inv InvoiceRef) error {
	return s.fanOut(ctx, roles(shared.RoleFinance, shared.RoleManager), invoiceInput(TypeInvoiceGenerated,
		"Invoice "+inv.Number+" issued",
		fmt.Sprintf("%s invoice %s for purchase order %s totals %s.", inv.Kind, inv.Number, inv.PONumber, rupiah(inv.Amount)),
		inv))
}

// PaymentCompleted informs the manager and the supplier of a payment.
func (s *Service) PaymentCompleted(ctx context.Context, inv InvoiceRef, paymentNumber string, remaining decimal.Decimal) error {
	return s.fanOut(ctx, []recipient{{role: shared.RoleManager}, supplier(inv.SupplierID)}, invoiceInput(TypePaymentCompleted,
		"Payment "+paymentNumber+" recorded",
		fmt.Sprintf("Payment %s of %s recorded on invoice %s, remaining %s.", paymentNumber, rupiah(inv.Amount), inv.Number, rupiah(remaining)),
		inv))
}

// InvoiceOverdue warns finance about an overdue invoice.
func (s *Service) InvoiceOverdue(ctx context.Context, inv InvoiceRef) error {
	return s.fanOut(ctx, roles(shared.RoleFinance), invoiceInput(TypeInvoiceOverdue,
		"Invoice "+inv.Number+" overdue",
		fmt.Sprintf("Invoice %s has %s outstanding past its due date.", inv.Number, rupiah(inv.Amount)),
		inv))
}

func invoiceInput(t Type, title, message string, inv InvoiceRef) NotifyInput {
	in := NotifyInput{Type: t, Title: title, Message: message}
	if inv.ID > 0 {
		id := inv.ID
		in.InvoiceID = &id
	}
	if inv.POID > 0 {
		po := inv.POID
		in.POID = &po
	}
	return in
}

// Subscribe registers the dispatcher on the workflow events.
func (s *Service) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.NamePOTransitioned, "notification", s.onPOTransitioned)
	bus.Subscribe(events.NameGoodsReceived, "notification", s.onGoodsReceived)
	bus.Subscribe(events.NameInvoiceGenerated, "notification", s.onInvoiceGenerated)
	bus.Subscribe(events.NamePaymentRecorded, "notification", s.onPaymentRecorded)
	bus.Subscribe(events.NameInvoiceOverdue, "notification", s.onInvoiceOverdue)
}

func (s *Service) onPOTransitioned(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.POTransitioned)
	if !ok {
		return nil
	}
	po := PORef{ID: e.POID, Number: e.PONumber, SupplierID: e.SupplierID, SupplierName: e.SupplierName, TotalAmount: e.TotalAmount}
	switch e.To {
	case "pending_approval":
		return s.ApprovalRequested(ctx, po)
	case "approved":
		return s.POApproved(ctx, po)
	case "sent":
		return s.POSent(ctx, po)
	case "supplier_approved":
		return s.POAccepted(ctx, po)
	case "supplier_rejected":
		return s.PORejected(ctx, po, e.Reason)
	case "qc_failed":
		return s.QCFailed(ctx, po, e.Reason)
	case "cancelled":
		return s.POCancelled(ctx, po, e.Reason)
	}
	return nil
}

func (s *Service) onGoodsReceived(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.GoodsReceived)
	if !ok {
		return nil
	}
	return s.GoodsReceived(ctx, PORef{ID: e.POID, Number: e.PONumber, SupplierID: e.SupplierID}, e.ReceiptNumber, e.Status)
}

func (s *Service) onInvoiceGenerated(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.InvoiceGenerated)
	if !ok {
		return nil
	}
	return s.InvoiceGenerated(ctx, InvoiceRef{
		ID: e.InvoiceID, Number: e.InvoiceNumber, Kind: e.Kind, POID: e.POID,
		PONumber: e.PONumber, SupplierID: e.SupplierID, Amount: e.TotalAmount,
	})
}

func (s *Service) onPaymentRecorded(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.PaymentRecorded)
	if !ok {
		return nil
	}
	return s.PaymentCompleted(ctx, InvoiceRef{
		ID: e.InvoiceID, Number: e.InvoiceNumber, POID: e.POID, SupplierID: e.SupplierID, Amount: e.Amount,
	}, e.PaymentNumber, e.RemainingAmount)
}

func (s *Service) onInvoiceOverdue(ctx context.Context, evt events.Event) error {
	e, ok := evt.(events.InvoiceOverdue)
	if !ok {
		return nil
	}
	return s.InvoiceOverdue(ctx, InvoiceRef{ID: e.InvoiceID, Number: e.InvoiceNumber, POID: e.POID, Amount: e.RemainingAmount})
}
