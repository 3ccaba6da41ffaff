// Package events carries procurement domain events between packages without
// import cycles. Handlers run synchronously inside the publisher's
// transaction, so a failing handler aborts the whole unit of work.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event names.
const (
	NamePOTransitioned   = "po.transitioned"
	NameGoodsReceived    = "po.goods_received"
	NameInvoiceGenerated = "invoice.generated"
	NameInvoiceOverdue   = "invoice.overdue"
	NamePaymentRecorded  = "payment.recorded"
	NameInvoicePaid      = "invoice.paid"
)

// Event is implemented by every domain event.
type Event interface {
	EventName() string
}

// Meta is embedded in every event.
type Meta struct {
	ID         uuid.UUID
	OccurredAt time.Time
	Actor      string
}

// NewMeta stamps a fresh event id and time.
func NewMeta(actor string) Meta {
	return Meta{ID: uuid.New(), OccurredAt: time.Now().UTC(), Actor: actor}
}

// POTransitioned is published after every purchase order status change.
type POTransitioned struct {
	Meta
	POID         int64
	PONumber     string
	SupplierID   int64
	SupplierName string
	From         string
	To           string
	Reason       string
	TotalAmount  decimal.Decimal
}

// EventName implements Event.
func (POTransitioned) EventName() string { return NamePOTransitioned }

// GoodsReceived is published for every persisted goods receipt.
type GoodsReceived struct {
	Meta
	POID          int64
	PONumber      string
	SupplierID    int64
	ReceiptID     int64
	ReceiptNumber string
	Status        string
}

// EventName implements Event.
func (GoodsReceived) EventName() string { return NameGoodsReceived }

// InvoiceGenerated is published when the invoice ledger issues an invoice.
type InvoiceGenerated struct {
	Meta
	InvoiceID     int64
	InvoiceNumber string
	Kind          string
	POID          int64
	PONumber      string
	SupplierID    int64
	TotalAmount   decimal.Decimal
	DueDate       time.Time
}

// EventName implements Event.
func (InvoiceGenerated) EventName() string { return NameInvoiceGenerated }

// InvoiceOverdue is published when the sweep flags an invoice overdue.
type InvoiceOverdue struct {
	Meta
	InvoiceID       int64
	InvoiceNumber   string
	POID            int64
	RemainingAmount decimal.Decimal
	DueDate         time.Time
}

// EventName implements Event.
func (InvoiceOverdue) EventName() string { return NameInvoiceOverdue }

// PaymentRecorded is published for every payment.
type PaymentRecorded struct {
	Meta
	PaymentID       int64
	PaymentNumber   string
	InvoiceID       int64
	InvoiceNumber   string
	POID            int64
	SupplierID      int64
	Amount          decimal.Decimal
	RemainingAmount decimal.Decimal
}

// EventName implements Event.
func (PaymentRecorded) EventName() string { return NamePaymentRecorded }

// InvoicePaid is published when an invoice's remaining amount reaches zero.
type InvoicePaid struct {
	Meta
	InvoiceID     int64
	InvoiceNumber string
	Kind          string
	POID          int64
}

// EventName implements Event.
func (InvoicePaid) EventName() string { return NameInvoicePaid }
