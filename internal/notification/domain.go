// Package notification keeps the role inbox of the procurement workflow and
// hands messages to the background delivery queue.
package notification

import (
	"fmt"
	"time"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Type classifies a notification.
type Type string

const (
	TypeApprovalRequested Type = "po_approval_requested"
	TypePOApproved        Type = "po_approved"
	TypePOSent            Type = "po_sent"
	TypePOAccepted        Type = "po_accepted"
	TypePORejected        Type = "po_rejected"
	TypePOCancelled       Type = "po_cancelled"
	TypeGoodsReceived     Type = "goods_received"
	TypeGoodsDiscrepancy  Type = "goods_discrepancy"
	TypeQCFailed          Type = "qc_failed"
	TypeInvoiceGenerated  Type = "invoice_generated"
	TypeInvoiceOverdue    Type = "invoice_overdue"
	TypePaymentCompleted  Type = "payment_completed"
)

// Notification is one inbox entry addressed to a role.
type Notification struct {
	ID            int64       `json:"id"`
	Type          Type        `json:"type"`
	Title         string      `json:"title"`
	Message       string      `json:"message"`
	RecipientRole shared.Role `json:"recipient_role"`
	RecipientID   *int64      `json:"recipient_id,omitempty"`
	POID          *int64      `json:"po_id,omitempty"`
	InvoiceID     *int64      `json:"invoice_id,omitempty"`
	Read          bool        `json:"read"`
	ReadAt        *time.Time  `json:"read_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NotifyInput describes a message to append.
type NotifyInput struct {
	Type          Type
	Title         string
	Message       string
	RecipientRole shared.Role
	RecipientID   *int64
	POID          *int64
	InvoiceID     *int64
}

// ListFilter narrows an inbox listing.
type ListFilter struct {
	Role       shared.Role
	UnreadOnly bool
	Page       shared.Page
}

// Delivery is the payload handed to the external delivery queue.
type Delivery struct {
	NotificationID int64       `json:"notification_id"`
	Type           Type        `json:"type"`
	Title          string      `json:"title"`
	Message        string      `json:"message"`
	RecipientRole  shared.Role `json:"recipient_role"`
	RecipientID    *int64      `json:"recipient_id,omitempty"`
}

var (
	// ErrNotFound indicates the notification id is unknown.
	ErrNotFound = fmt.Errorf("notification: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("notification: invalid input: %w", shared.ErrValidation)
)
