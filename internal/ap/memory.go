package ap

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps AP data in process, for test mode and tests.
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	invoices map[int64]Invoice
	payments map[int64]Payment
	requests map[int64]PaymentRequest
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		invoices: make(map[int64]Invoice),
		payments: make(map[int64]Payment),
		requests: make(map[int64]PaymentRequest),
	}
}

func (r *MemoryRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func cloneInvoice(inv Invoice) Invoice {
	inv.Lines = append([]InvoiceLine(nil), inv.Lines...)
	return inv
}

func (r *MemoryRepository) InsertInvoice(ctx context.Context, inv *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv.ID = r.id()
	r.invoices[inv.ID] = cloneInvoice(*inv)
	return nil
}

func (r *MemoryRepository) GetInvoice(ctx context.Context, id int64, forUpdate bool) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

func (r *MemoryRepository) UpdateInvoiceBalance(ctx context.Context, inv Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.invoices[inv.ID]
	if !ok {
		return ErrInvoiceNotFound
	}
	current.PaidAmount = inv.PaidAmount
	current.RemainingAmount = inv.RemainingAmount
	current.Status = inv.Status
	current.UpdatedAt = inv.UpdatedAt
	r.invoices[inv.ID] = current
	return nil
}

func (r *MemoryRepository) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		if filter.POID > 0 && inv.POID != filter.POID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.Kind != "" && inv.Kind != filter.Kind {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if filter.Page.Limit > 0 {
		if filter.Page.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Page.Offset:]
		if len(out) > filter.Page.Limit {
			out = out[:filter.Page.Limit]
		}
	}
	return out, nil
}

func (r *MemoryRepository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		if (inv.Status == StatusPending || inv.Status == StatusPartial) && inv.RemainingAmount.IsPositive() && inv.DueDate.Before(asOf) {
			out = append(out, cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (r *MemoryRepository) InsertPayment(ctx context.Context, p *Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.id()
	r.payments[p.ID] = *p
	return nil
}

func (r *MemoryRepository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) InsertPaymentRequest(ctx context.Context, pr *PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr.ID = r.id()
	r.requests[pr.ID] = *pr
	return nil
}

func (r *MemoryRepository) GetPaymentRequest(ctx context.Context, id int64, forUpdate bool) (PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.requests[id]
	if !ok {
		return PaymentRequest{}, ErrPaymentRequestNotFound
	}
	return pr, nil
}

func (r *MemoryRepository) UpdatePaymentRequest(ctx context.Context, pr PaymentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[pr.ID]; !ok {
		return ErrPaymentRequestNotFound
	}
	r.requests[pr.ID] = pr
	return nil
}

func (r *MemoryRepository) ListPaymentRequests(ctx context.Context, invoiceID int64) ([]PaymentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PaymentRequest
	for _, pr := range r.requests {
		if pr.InvoiceID == invoiceID {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
