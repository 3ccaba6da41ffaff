package procurement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// POStatus is the lifecycle status of a purchase order.
type POStatus string

const (
	StatusDraft            POStatus = "draft"
	StatusPendingApproval  POStatus = "pending_approval"
	StatusApproved         POStatus = "approved"
	StatusSent             POStatus = "sent"
	StatusSupplierApproved POStatus = "supplier_approved"
	StatusSupplierRejected POStatus = "supplier_rejected"
	StatusInTransit        POStatus = "in_transit"
	StatusReceived         POStatus = "received"
	StatusQCPassed         POStatus = "qc_passed"
	StatusQCFailed         POStatus = "qc_failed"
	StatusCompleted        POStatus = "completed"
	StatusCancelled        POStatus = "cancelled"
)

// Stage names a workflow step tracked alongside the PO status.
type Stage string

const (
	StageDraft           Stage = "draft"
	StageApproval        Stage = "approval"
	StageSentToSupplier  Stage = "sent_to_supplier"
	StageSupplierAccept  Stage = "supplier_accept"
	StageProformaInvoice Stage = "proforma_invoice"
	StageShipment        Stage = "shipment"
	StageReceiving       Stage = "receiving"
	StageQC              Stage = "qc"
	StageFinalInvoice    Stage = "final_invoice"
	StagePayment         Stage = "payment"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageDraft, StageApproval, StageSentToSupplier, StageSupplierAccept, StageProformaInvoice,
	StageShipment, StageReceiving, StageQC, StageFinalInvoice, StagePayment,
}

// StepStatus is the status of a single workflow step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// Final reports whether the step can no longer change.
func (s StepStatus) Final() bool {
	return s == StepCompleted || s == StepFailed
}

// GRStatus classifies a goods receipt.
type GRStatus string

const (
	GRCompleted   GRStatus = "completed"
	GRPartial     GRStatus = "partial"
	GRDiscrepancy GRStatus = "discrepancy"
)

// MatchStatus is the outcome of a three-way match.
type MatchStatus string

const (
	MatchMatched     MatchStatus = "matched"
	MatchDiscrepancy MatchStatus = "discrepancy"
)

// PurchaseOrder domain model.
type PurchaseOrder struct {
	ID                   int64           `json:"id"`
	Number               string          `json:"number"`
	SupplierID           int64           `json:"supplier_id"`
	SupplierName         string          `json:"supplier_name"`
	Lines                []POLine        `json:"lines"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	Tax                  decimal.Decimal `json:"tax"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	Status               POStatus        `json:"status"`
	WorkflowProgress     int             `json:"workflow_progress"`
	CurrentStep          string          `json:"current_step"`
	RequestedBy          string          `json:"requested_by"`
	ApprovedBy           string          `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time      `json:"approved_at,omitempty"`
	SentAt               *time.Time      `json:"sent_at,omitempty"`
	SupplierApprovedAt   *time.Time      `json:"supplier_approved_at,omitempty"`
	SupplierApprovedBy   string          `json:"supplier_approved_by,omitempty"`
	SupplierRejectedAt   *time.Time      `json:"supplier_rejected_at,omitempty"`
	RejectionReason      string          `json:"rejection_reason,omitempty"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	ProformaInvoiceID    *int64          `json:"proforma_invoice_id,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	Version              int64           `json:"version"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Line returns the PO line for an inventory item.
func (po PurchaseOrder) Line(itemID int64) (POLine, bool) {
	for _, l := range po.Lines {
		if l.InventoryItemID == itemID {
			return l, true
		}
	}
	return POLine{}, false
}

// POLine represents an ordered item.
type POLine struct {
	ID              int64           `json:"id"`
	POID            int64           `json:"po_id"`
	InventoryItemID int64           `json:"inventory_item_id"`
	ItemName        string          `json:"item_name"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// WorkflowStep tracks one stage of a PO.
type WorkflowStep struct {
	POID        int64      `json:"po_id"`
	Stage       Stage      `json:"stage"`
	Status      StepStatus `json:"status"`
	CompletedBy string     `json:"completed_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GoodsReceipt records what physically arrived against a PO.
type GoodsReceipt struct {
	ID         int64     `json:"id"`
	Number     string    `json:"number"`
	POID       int64     `json:"po_id"`
	Lines      []GRLine  `json:"lines"`
	Status     GRStatus  `json:"status"`
	ReceivedBy string    `json:"received_by"`
	ReceivedAt time.Time `json:"received_at"`
	Notes      string    `json:"notes,omitempty"`
}

// Line returns the receipt line for an inventory item.
func (gr GoodsReceipt) Line(itemID int64) (GRLine, bool) {
	for _, l := range gr.Lines {
		if l.InventoryItemID == itemID {
			return l, true
		}
	}
	return GRLine{}, false
}

// GRLine is one received item.
type GRLine struct {
	InventoryItemID  int64           `json:"inventory_item_id"`
	ItemName         string          `json:"item_name,omitempty"`
	Unit             string          `json:"unit,omitempty"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	RejectionNote    string          `json:"rejection_note,omitempty"`
}

// ThreeWayMatch is the live reconciliation record of a PO.
type ThreeWayMatch struct {
	POID           int64       `json:"po_id"`
	GoodsReceiptID *int64      `json:"goods_receipt_id,omitempty"`
	InvoiceID      *int64      `json:"invoice_id,omitempty"`
	Status         MatchStatus `json:"status"`
	Discrepancies  []string    `json:"discrepancies"`
	MatchedAt      *time.Time  `json:"matched_at,omitempty"`
	CheckedBy      string      `json:"checked_by"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ListFilter narrows PO listings.
type ListFilter struct {
	Status     POStatus
	SupplierID int64
	Search     string
	Page       shared.Page
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("procurement: %w", shared.ErrNotFound)
	// ErrInvalidState occurs when action violates the status workflow.
	ErrInvalidState = fmt.Errorf("procurement: invalid state transition: %w", shared.ErrStateConflict)
	// ErrVersionConflict indicates the PO changed since the caller read it.
	ErrVersionConflict = fmt.Errorf("procurement: purchase order was modified concurrently: %w", shared.ErrStateConflict)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("procurement: invalid input: %w", shared.ErrValidation)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
