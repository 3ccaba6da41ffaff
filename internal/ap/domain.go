package ap

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// InvoiceKind distinguishes proforma and final invoices.
type InvoiceKind string

const (
	KindProforma InvoiceKind = "proforma"
	KindFinal    InvoiceKind = "final"
)

// InvoiceStatus enumerates invoice statuses.
type InvoiceStatus string

const (
	StatusPending InvoiceStatus = "pending"
	StatusPartial InvoiceStatus = "partial"
	StatusPaid    InvoiceStatus = "paid"
	StatusOverdue InvoiceStatus = "overdue"
)

// Invoice model. RemainingAmount is always TotalAmount - PaidAmount.
type Invoice struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	POID            int64           `json:"po_id"`
	PONumber        string          `json:"po_number"`
	SupplierID      int64           `json:"supplier_id"`
	SupplierName    string          `json:"supplier_name"`
	Kind            InvoiceKind     `json:"kind"`
	Lines           []InvoiceLine   `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          InvoiceStatus   `json:"status"`
	IssuedDate      time.Time       `json:"issued_date"`
	DueDate         time.Time       `json:"due_date"`
	CreatedBy       string          `json:"created_by"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// InvoiceLine mirrors a purchase order line.
type InvoiceLine struct {
	InventoryItemID int64           `json:"inventory_item_id"`
	ItemName        string          `json:"item_name"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// InvoiceSource is the purchase order snapshot an invoice is built from.
type InvoiceSource struct {
	POID         int64
	PONumber     string
	SupplierID   int64
	SupplierName string
	Lines        []InvoiceLine
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	TotalAmount  decimal.Decimal
	IssuedBy     string
}

// InvoiceFilter narrows invoice listings. Zero fields are ignored.
type InvoiceFilter struct {
	POID   int64
	Status InvoiceStatus
	Kind   InvoiceKind
	Page   shared.Page
}

// Payment model. Payments are append-only.
type Payment struct {
	ID               int64           `json:"id"`
	Number           string          `json:"number"`
	InvoiceID        int64           `json:"invoice_id"`
	SupplierID       int64           `json:"supplier_id"`
	PaymentRequestID *int64          `json:"payment_request_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Method           string          `json:"method"`
	Reference        string          `json:"reference"`
	PaidAt           time.Time       `json:"paid_at"`
	PaidBy           string          `json:"paid_by"`
}

// PaymentRequestStatus enumerates payment request statuses.
type PaymentRequestStatus string

const (
	RequestPending   PaymentRequestStatus = "pending"
	RequestPaid      PaymentRequestStatus = "paid"
	RequestCancelled PaymentRequestStatus = "cancelled"
)

// PaymentRequest asks finance to pay part or all of an invoice.
type PaymentRequest struct {
	ID          int64                `json:"id"`
	Number      string               `json:"number"`
	InvoiceID   int64                `json:"invoice_id"`
	SupplierID  int64                `json:"supplier_id"`
	Amount      decimal.Decimal      `json:"amount"`
	Status      PaymentRequestStatus `json:"status"`
	RequestedBy string               `json:"requested_by"`
	Notes       string               `json:"notes,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	PaidAt      *time.Time           `json:"paid_at,omitempty"`
}

var (
	// ErrInvoiceNotFound indicates the invoice id is unknown.
	ErrInvoiceNotFound = fmt.Errorf("ap: invoice %w", shared.ErrNotFound)
	// ErrPaymentRequestNotFound indicates the payment request id is unknown.
	ErrPaymentRequestNotFound = fmt.Errorf("ap: payment request %w", shared.ErrNotFound)
	// ErrInvalidStatus indicates the document is in the wrong status for the operation.
	ErrInvalidStatus = fmt.Errorf("ap: invalid status for operation: %w", shared.ErrStateConflict)
	// ErrOverpayment rejects payments above the remaining amount.
	ErrOverpayment = fmt.Errorf("ap: payment exceeds remaining amount: %w", shared.ErrValidation)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("ap: invalid input: %w", shared.ErrValidation)
	// ErrDuplicatePayment indicates the (invoice, reference) pair was already recorded.
	ErrDuplicatePayment = fmt.Errorf("ap: payment already recorded: %w", shared.ErrDuplicate)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// DeriveStatus computes the status from the balance and due date. A fully
// paid invoice is never overdue.
func DeriveStatus(inv Invoice, now time.Time) InvoiceStatus {
	switch {
	case inv.RemainingAmount.Sign() <= 0:
		return StatusPaid
	case now.After(inv.DueDate):
		return StatusOverdue
	case inv.PaidAmount.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}
