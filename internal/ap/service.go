package ap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/events"
	"github.com/dapur-erp/dapur-erp/internal/platform/db"
	"github.com/dapur-erp/dapur-erp/internal/sequence"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// DefaultTermDays is the payment term applied to new invoices.
const DefaultTermDays = 30

// Repository defines AP data access. Implementations resolve the active
// transaction from ctx.
type Repository interface {
	InsertInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id int64, forUpdate bool) (Invoice, error)
	UpdateInvoiceBalance(ctx context.Context, inv Invoice) error
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error)

	InsertPayment(ctx context.Context, p *Payment) error
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)

	InsertPaymentRequest(ctx context.Context, pr *PaymentRequest) error
	GetPaymentRequest(ctx context.Context, id int64, forUpdate bool) (PaymentRequest, error)
	UpdatePaymentRequest(ctx context.Context, pr PaymentRequest) error
	ListPaymentRequests(ctx context.Context, invoiceID int64) ([]PaymentRequest, error)
}

// IdempotencyPort deduplicates payment submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo        Repository
	Tx          db.Transactor
	Sequence    sequence.Allocator
	Events      events.Publisher
	Idempotency IdempotencyPort
	Audit       AuditPort
	Logger      *slog.Logger
	TermDays    int
}

// Service implements the invoice and payment ledgers.
type Service struct {
	repo     Repository
	tx       db.Transactor
	seq      sequence.Allocator
	events   events.Publisher
	idem     IdempotencyPort
	audit    AuditPort
	logger   *slog.Logger
	termDays int
	now      func() time.Time
}

// NewService constructs the AP service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tx := deps.Tx
	if tx == nil {
		tx = db.NoopTransactor{}
	}
	term := deps.TermDays
	if term <= 0 {
		term = DefaultTermDays
	}
	return &Service{
		repo:     deps.Repo,
		tx:       tx,
		seq:      deps.Sequence,
		events:   deps.Events,
		idem:     deps.Idempotency,
		audit:    deps.Audit,
		logger:   logger.With(slog.String("component", "ap")),
		termDays: term,
		now:      time.Now,
	}
}

// GenerateFromPO issues an invoice mirroring the purchase order snapshot.
func (s *Service) GenerateFromPO(ctx context.Context, src InvoiceSource, kind InvoiceKind) (Invoice, error) {
	if kind != KindProforma && kind != KindFinal {
		return Invoice{}, validationf("unknown invoice kind %q", kind)
	}
	if src.POID <= 0 {
		return Invoice{}, validationf("purchase order is required")
	}
	if !src.TotalAmount.Equal(src.Subtotal.Add(src.Tax)) {
		return Invoice{}, validationf("total %s does not equal subtotal %s plus tax %s", src.TotalAmount, src.Subtotal, src.Tax)
	}

	now := s.now()
	inv := Invoice{
		POID:            src.POID,
		PONumber:        src.PONumber,
		SupplierID:      src.SupplierID,
		SupplierName:    src.SupplierName,
		Kind:            kind,
		Lines:           append([]InvoiceLine(nil), src.Lines...),
		Subtotal:        src.Subtotal,
		Tax:             src.Tax,
		TotalAmount:     src.TotalAmount,
		PaidAmount:      decimal.Zero,
		RemainingAmount: src.TotalAmount,
		Status:          StatusPending,
		IssuedDate:      now,
		DueDate:         now.AddDate(0, 0, s.termDays),
		CreatedBy:       src.IssuedBy,
		UpdatedAt:       now,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		number, err := s.seq.Next(ctx, sequence.KindInvoice, now)
		if err != nil {
			return fmt.Errorf("ap: allocate invoice number: %w", err)
		}
		inv.Number = number
		if err := s.repo.InsertInvoice(ctx, &inv); err != nil {
			return err
		}
		if err := s.publish(ctx, events.InvoiceGenerated{
			Meta:          events.NewMeta(src.IssuedBy),
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			Kind:          string(inv.Kind),
			POID:          inv.POID,
			PONumber:      inv.PONumber,
			SupplierID:    inv.SupplierID,
			TotalAmount:   inv.TotalAmount,
			DueDate:       inv.DueDate,
		}); err != nil {
			return err
		}
		return s.recordAudit(ctx, src.IssuedBy, "INVOICE_CREATE", inv.ID, map[string]any{"number": inv.Number, "kind": string(kind), "po_id": src.POID})
	})
	if err != nil {
		return Invoice{}, err
	}
	s.logger.InfoContext(ctx, "invoice issued", slog.String("number", inv.Number), slog.String("kind", string(kind)), slog.Int64("po_id", inv.POID))
	return inv, nil
}

// GetInvoice returns an invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id, false)
}

// ListInvoices returns invoices matching filter, newest first.
func (s *Service) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	filter.Page = shared.NewPage(filter.Page.Limit, filter.Page.Offset)
	return s.repo.ListInvoices(ctx, filter)
}

// ApplyPayment adds amount to the paid balance of the invoice. Amounts above
// the remaining balance are rejected with ErrOverpayment.
func (s *Service) ApplyPayment(ctx context.Context, invoiceID int64, amount decimal.Decimal) (Invoice, error) {
	if !amount.IsPositive() {
		return Invoice{}, validationf("amount must be positive")
	}
	var updated Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoice(ctx, invoiceID, true)
		if err != nil {
			return err
		}
		if amount.GreaterThan(inv.RemainingAmount) {
			return fmt.Errorf("%w: %s remaining on %s, got %s", ErrOverpayment, inv.RemainingAmount, inv.Number, amount)
		}
		now := s.now()
		inv.PaidAmount = inv.PaidAmount.Add(amount)
		inv.RemainingAmount = inv.TotalAmount.Sub(inv.PaidAmount)
		inv.Status = DeriveStatus(inv, now)
		inv.UpdatedAt = now
		if err := s.repo.UpdateInvoiceBalance(ctx, inv); err != nil {
			return err
		}
		updated = inv
		if inv.Status != StatusPaid {
			return nil
		}
		actor, _ := shared.ActorFromContext(ctx)
		return s.publish(ctx, events.InvoicePaid{
			Meta:          events.NewMeta(actor.Name),
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			Kind:          string(inv.Kind),
			POID:          inv.POID,
		})
	})
	if err != nil {
		return Invoice{}, err
	}
	return updated, nil
}

// MarkOverdue flags every unpaid invoice whose due date is before asOf and
// returns how many changed.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	candidates, err := s.repo.ListOverdueCandidates(ctx, asOf)
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, c := range candidates {
		changed := false
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			inv, err := s.repo.GetInvoice(ctx, c.ID, true)
			if err != nil {
				return err
			}
			if inv.Status == StatusOverdue || DeriveStatus(inv, asOf) != StatusOverdue {
				return nil
			}
			inv.Status = StatusOverdue
			inv.UpdatedAt = s.now()
			if err := s.repo.UpdateInvoiceBalance(ctx, inv); err != nil {
				return err
			}
			changed = true
			return s.publish(ctx, events.InvoiceOverdue{
				Meta:            events.NewMeta("system"),
				InvoiceID:       inv.ID,
				InvoiceNumber:   inv.Number,
				POID:            inv.POID,
				RemainingAmount: inv.RemainingAmount,
				DueDate:         inv.DueDate,
			})
		})
		if err != nil {
			return marked, fmt.Errorf("ap: mark invoice %d overdue: %w", c.ID, err)
		}
		if changed {
			marked++
		}
	}
	if marked > 0 {
		s.logger.InfoContext(ctx, "invoices marked overdue", slog.Int("count", marked))
	}
	return marked, nil
}

func (s *Service) publish(ctx context.Context, evt events.Event) error {
	if s.events == nil {
		return nil
	}
	return s.events.Publish(ctx, evt)
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, entityID int64, meta map[string]any) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "invoice", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
