package ap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/events"
	"github.com/dapur-erp/dapur-erp/internal/sequence"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// RecordPaymentInput describes a payment against an invoice.
type RecordPaymentInput struct {
	InvoiceID        int64
	Amount           decimal.Decimal
	Method           string
	Reference        string
	PaidBy           string
	PaymentRequestID *int64
}

// PaymentRequestInput describes a request to pay an invoice.
type PaymentRequestInput struct {
	InvoiceID   int64
	Amount      decimal.Decimal
	RequestedBy string
	Notes       string
}

const idempotencyModule = "ap.payment"

// RecordPayment stores an append-only payment and applies it to the invoice.
// A repeated (invoice, reference) pair is rejected with ErrDuplicatePayment.
func (s *Service) RecordPayment(ctx context.Context, input RecordPaymentInput) (Payment, Invoice, error) {
	input.Method = strings.TrimSpace(input.Method)
	input.PaidBy = strings.TrimSpace(input.PaidBy)
	input.Reference = strings.TrimSpace(input.Reference)
	if !input.Amount.IsPositive() {
		return Payment{}, Invoice{}, validationf("amount must be positive")
	}
	if input.Method == "" {
		return Payment{}, Invoice{}, validationf("method is required")
	}
	if input.PaidBy == "" {
		return Payment{}, Invoice{}, validationf("payer is required")
	}
	ctx = shared.ContextWithActor(ctx, shared.Actor{Name: input.PaidBy, Role: shared.RoleFinance})

	var (
		payment Payment
		invoice Invoice
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoice(ctx, input.InvoiceID, true)
		if err != nil {
			return err
		}
		var request *PaymentRequest
		if input.PaymentRequestID != nil {
			pr, err := s.repo.GetPaymentRequest(ctx, *input.PaymentRequestID, true)
			if err != nil {
				return err
			}
			if pr.InvoiceID != inv.ID {
				return validationf("payment request %s belongs to another invoice", pr.Number)
			}
			if pr.Status != RequestPending {
				return fmt.Errorf("%w: payment request %s is %s", ErrInvalidStatus, pr.Number, pr.Status)
			}
			request = &pr
		}
		if input.Amount.GreaterThan(inv.RemainingAmount) {
			return fmt.Errorf("%w: %s remaining on %s, got %s", ErrOverpayment, inv.RemainingAmount, inv.Number, input.Amount)
		}
		if input.Reference != "" && s.idem != nil {
			key := fmt.Sprintf("%d:%s", input.InvoiceID, input.Reference)
			if err := s.idem.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
				if errors.Is(err, shared.ErrDuplicate) {
					return fmt.Errorf("%w: reference %s", ErrDuplicatePayment, input.Reference)
				}
				return err
			}
		}

		now := s.now()
		number, err := s.seq.Next(ctx, sequence.KindPayment, now)
		if err != nil {
			return fmt.Errorf("ap: allocate payment number: %w", err)
		}
		payment = Payment{
			Number:           number,
			InvoiceID:        inv.ID,
			SupplierID:       inv.SupplierID,
			PaymentRequestID: input.PaymentRequestID,
			Amount:           input.Amount,
			Method:           input.Method,
			Reference:        input.Reference,
			PaidAt:           now,
			PaidBy:           input.PaidBy,
		}
		if err := s.repo.InsertPayment(ctx, &payment); err != nil {
			return err
		}
		updated, err := s.ApplyPayment(ctx, inv.ID, input.Amount)
		if err != nil {
			return err
		}
		invoice = updated
		if request != nil {
			request.Status = RequestPaid
			request.PaidAt = &now
			if err := s.repo.UpdatePaymentRequest(ctx, *request); err != nil {
				return err
			}
		}
		if err := s.publish(ctx, events.PaymentRecorded{
			Meta:            events.NewMeta(input.PaidBy),
			PaymentID:       payment.ID,
			PaymentNumber:   payment.Number,
			InvoiceID:       invoice.ID,
			InvoiceNumber:   invoice.Number,
			POID:            invoice.POID,
			SupplierID:      invoice.SupplierID,
			Amount:          payment.Amount,
			RemainingAmount: invoice.RemainingAmount,
		}); err != nil {
			return err
		}
		return s.recordAudit(ctx, input.PaidBy, "PAYMENT_RECORD", invoice.ID, map[string]any{"payment": payment.Number, "amount": payment.Amount.String()})
	})
	if err != nil {
		return Payment{}, Invoice{}, err
	}
	s.logger.InfoContext(ctx, "payment recorded",
		slog.String("number", payment.Number),
		slog.String("invoice", invoice.Number),
		slog.String("remaining", invoice.RemainingAmount.String()))
	return payment, invoice, nil
}

// ListPayments returns the payments of an invoice, oldest first.
func (s *Service) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	if _, err := s.repo.GetInvoice(ctx, invoiceID, false); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, invoiceID)
}

// CreatePaymentRequest asks finance to pay an open invoice.
func (s *Service) CreatePaymentRequest(ctx context.Context, input PaymentRequestInput) (PaymentRequest, error) {
	input.RequestedBy = strings.TrimSpace(input.RequestedBy)
	if input.RequestedBy == "" {
		return PaymentRequest{}, validationf("requester is required")
	}
	if !input.Amount.IsPositive() {
		return PaymentRequest{}, validationf("amount must be positive")
	}
	var pr PaymentRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoice(ctx, input.InvoiceID, true)
		if err != nil {
			return err
		}
		if inv.Status == StatusPaid {
			return fmt.Errorf("%w: invoice %s is already paid", ErrInvalidStatus, inv.Number)
		}
		if input.Amount.GreaterThan(inv.RemainingAmount) {
			return fmt.Errorf("%w: %s remaining on %s, requested %s", ErrOverpayment, inv.RemainingAmount, inv.Number, input.Amount)
		}
		now := s.now()
		number, err := s.seq.Next(ctx, sequence.KindPaymentRequest, now)
		if err != nil {
			return fmt.Errorf("ap: allocate payment request number: %w", err)
		}
		pr = PaymentRequest{
			Number:      number,
			InvoiceID:   inv.ID,
			SupplierID:  inv.SupplierID,
			Amount:      input.Amount,
			Status:      RequestPending,
			RequestedBy: input.RequestedBy,
			Notes:       input.Notes,
			CreatedAt:   now,
		}
		if err := s.repo.InsertPaymentRequest(ctx, &pr); err != nil {
			return err
		}
		return s.recordAudit(ctx, input.RequestedBy, "PAYMENT_REQUEST_CREATE", inv.ID, map[string]any{"request": pr.Number})
	})
	if err != nil {
		return PaymentRequest{}, err
	}
	return pr, nil
}

// CancelPaymentRequest withdraws a pending request.
func (s *Service) CancelPaymentRequest(ctx context.Context, id int64, actor string) (PaymentRequest, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return PaymentRequest{}, validationf("actor is required")
	}
	var pr PaymentRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetPaymentRequest(ctx, id, true)
		if err != nil {
			return err
		}
		if current.Status != RequestPending {
			return fmt.Errorf("%w: payment request %s is %s", ErrInvalidStatus, current.Number, current.Status)
		}
		current.Status = RequestCancelled
		if err := s.repo.UpdatePaymentRequest(ctx, current); err != nil {
			return err
		}
		pr = current
		return s.recordAudit(ctx, actor, "PAYMENT_REQUEST_CANCEL", current.InvoiceID, map[string]any{"request": current.Number})
	})
	if err != nil {
		return PaymentRequest{}, err
	}
	return pr, nil
}

// ListPaymentRequests returns the requests raised for an invoice.
func (s *Service) ListPaymentRequests(ctx context.Context, invoiceID int64) ([]PaymentRequest, error) {
	if _, err := s.repo.GetInvoice(ctx, invoiceID, false); err != nil {
		return nil, err
	}
	return s.repo.ListPaymentRequests(ctx, invoiceID)
}
