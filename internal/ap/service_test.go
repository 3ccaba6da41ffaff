package ap

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dapur-erp/dapur-erp/internal/events"
	"github.com/dapur-erp/dapur-erp/internal/sequence"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

var testNow = time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T) (*Service, *MemoryRepository, *events.Recorder) {
	t.Helper()
	repo := NewMemoryRepository()
	rec := &events.Recorder{}
	svc := NewService(Deps{
		Repo:        repo,
		Sequence:    sequence.NewMemoryAllocator(),
		Events:      rec,
		Idempotency: shared.NewMemoryIdempotencyStore(),
		Audit:       &shared.MemoryAuditLog{},
	})
	svc.now = func() time.Time { return testNow }
	return svc, repo, rec
}

func sampleSource() InvoiceSource {
	return InvoiceSource{
		POID:         11,
		PONumber:     "PO/2026.10/0001",
		SupplierID:   3,
		SupplierName: "CV Sayur Segar",
		Lines: []InvoiceLine{
			{InventoryItemID: 1, ItemName: "Beras", Unit: "kg", Quantity: dec("100"), UnitPrice: dec("12000"), TotalPrice: dec("1200000")},
		},
		Subtotal:    dec("1200000"),
		Tax:         dec("120000"),
		TotalAmount: dec("1320000"),
		IssuedBy:    "Budi",
	}
}

func TestGenerateFromPOCopiesTotals(t *testing.T) {
	svc, _, rec := newTestService(t)
	inv, err := svc.GenerateFromPO(context.Background(), sampleSource(), KindProforma)
	require.NoError(t, err)

	require.Equal(t, "INV/2026.10/0001", inv.Number)
	require.Equal(t, StatusPending, inv.Status)
	require.True(t, inv.TotalAmount.Equal(dec("1320000")))
	require.True(t, inv.RemainingAmount.Equal(inv.TotalAmount))
	require.True(t, inv.PaidAmount.IsZero())
	require.Equal(t, testNow.AddDate(0, 0, 30), inv.DueDate)
	require.Len(t, inv.Lines, 1)

	generated := rec.Named(events.NameInvoiceGenerated)
	require.Len(t, generated, 1)
	require.Equal(t, inv.ID, generated[0].(events.InvoiceGenerated).InvoiceID)

	second, err := svc.GenerateFromPO(context.Background(), sampleSource(), KindFinal)
	require.NoError(t, err)
	require.Equal(t, "INV/2026.10/0002", second.Number)
}

func TestGenerateFromPORejectsInconsistentTotals(t *testing.T) {
	svc, _, _ := newTestService(t)
	src := sampleSource()
	src.TotalAmount = dec("1")
	_, err := svc.GenerateFromPO(context.Background(), src, KindProforma)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.GenerateFromPO(context.Background(), sampleSource(), InvoiceKind("credit"))
	require.ErrorIs(t, err, ErrValidation)
}

func TestApplyPaymentBalances(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromPO(ctx, sampleSource(), KindFinal)
	require.NoError(t, err)

	_, err = svc.ApplyPayment(ctx, inv.ID, decimal.Zero)
	require.ErrorIs(t, err, ErrValidation)

	partial, err := svc.ApplyPayment(ctx, inv.ID, dec("320000"))
	require.NoError(t, err)
	require.Equal(t, StatusPartial, partial.Status)
	require.True(t, partial.RemainingAmount.Equal(partial.TotalAmount.Sub(partial.PaidAmount)))
	require.True(t, partial.RemainingAmount.Equal(dec("1000000")))
	require.Empty(t, rec.Named(events.NameInvoicePaid))

	_, err = svc.ApplyPayment(ctx, inv.ID, dec("1000000.01"))
	require.ErrorIs(t, err, ErrOverpayment)
	require.ErrorIs(t, err, shared.ErrValidation)

	paid, err := svc.ApplyPayment(ctx, inv.ID, dec("1000000"))
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.True(t, paid.RemainingAmount.IsZero())
	require.Len(t, rec.Named(events.NameInvoicePaid), 1)
}

func TestApplyPaymentAfterDueDateIsOverdue(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromPO(ctx, sampleSource(), KindProforma)
	require.NoError(t, err)

	svc.now = func() time.Time { return testNow.AddDate(0, 0, 45) }
	updated, err := svc.ApplyPayment(ctx, inv.ID, dec("100"))
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, updated.Status)

	paid, err := svc.ApplyPayment(ctx, inv.ID, updated.RemainingAmount)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
}

func TestDeriveStatus(t *testing.T) {
	due := testNow
	cases := []struct {
		name      string
		paid      string
		remaining string
		at        time.Time
		want      InvoiceStatus
	}{
		{"untouched", "0", "100", due.Add(-time.Hour), StatusPending},
		{"partly paid", "40", "60", due.Add(-time.Hour), StatusPartial},
		{"late", "40", "60", due.Add(time.Hour), StatusOverdue},
		{"paid late", "100", "0", due.Add(time.Hour), StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := Invoice{PaidAmount: dec(tc.paid), RemainingAmount: dec(tc.remaining), DueDate: due}
			require.Equal(t, tc.want, DeriveStatus(inv, tc.at))
		})
	}
}

func TestRecordPaymentSettlesRequestAndDeduplicates(t *testing.T) {
	svc, repo, rec := newTestService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromPO(ctx, sampleSource(), KindFinal)
	require.NoError(t, err)

	req, err := svc.CreatePaymentRequest(ctx, PaymentRequestInput{InvoiceID: inv.ID, Amount: dec("500000"), RequestedBy: "Sari"})
	require.NoError(t, err)
	require.Equal(t, "PREQ/2026.10/0001", req.Number)

	payment, updated, err := svc.RecordPayment(ctx, RecordPaymentInput{
		InvoiceID:        inv.ID,
		Amount:           dec("500000"),
		Method:           "transfer",
		Reference:        "TRF-001",
		PaidBy:           "Dewi",
		PaymentRequestID: &req.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "PAY/2026.10/0001", payment.Number)
	require.Equal(t, inv.SupplierID, payment.SupplierID)
	require.Equal(t, StatusPartial, updated.Status)

	stored, err := repo.GetPaymentRequest(ctx, req.ID, false)
	require.NoError(t, err)
	require.Equal(t, RequestPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)

	recorded := rec.Named(events.NamePaymentRecorded)
	require.Len(t, recorded, 1)
	require.True(t, recorded[0].(events.PaymentRecorded).RemainingAmount.Equal(dec("820000")))

	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: dec("1"), Method: "transfer", Reference: "TRF-001", PaidBy: "Dewi"})
	require.ErrorIs(t, err, ErrDuplicatePayment)
	require.ErrorIs(t, err, shared.ErrDuplicate)

	payments, err := svc.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: dec("1"), Method: "transfer", PaidBy: "Dewi", PaymentRequestID: &req.ID})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, _, err := svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: 1, Amount: dec("-5"), Method: "cash", PaidBy: "Dewi"})
	require.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: 1, Amount: dec("5"), PaidBy: "Dewi"})
	require.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: 1, Amount: dec("5"), Method: "cash"})
	require.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: 99, Amount: dec("5"), Method: "cash", PaidBy: "Dewi"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromPO(ctx, sampleSource(), KindFinal)
	require.NoError(t, err)

	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: dec("1320000.50"), Method: "cash", PaidBy: "Dewi", Reference: "X"})
	require.ErrorIs(t, err, ErrOverpayment)

	payments, err := svc.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Empty(t, payments)

	_, updated, err := svc.RecordPayment(ctx, RecordPaymentInput{InvoiceID: inv.ID, Amount: dec("1320000"), Method: "cash", PaidBy: "Dewi", Reference: "X"})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, updated.Status)
}

func TestMarkOverdue(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()
	open, err := svc.GenerateFromPO(ctx, sampleSource(), KindProforma)
	require.NoError(t, err)
	settled, err := svc.GenerateFromPO(ctx, sampleSource(), KindFinal)
	require.NoError(t, err)
	_, err = svc.ApplyPayment(ctx, settled.ID, settled.TotalAmount)
	require.NoError(t, err)

	count, err := svc.MarkOverdue(ctx, testNow.AddDate(0, 0, 10))
	require.NoError(t, err)
	require.Zero(t, count)

	count, err = svc.MarkOverdue(ctx, testNow.AddDate(0, 0, 31))
	require.NoError(t, err)
	require.Equal(t, 1, count)

	inv, err := svc.GetInvoice(ctx, open.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, inv.Status)
	require.Len(t, rec.Named(events.NameInvoiceOverdue), 1)

	count, err = svc.MarkOverdue(ctx, testNow.AddDate(0, 0, 32))
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCancelPaymentRequest(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	inv, err := svc.GenerateFromPO(ctx, sampleSource(), KindFinal)
	require.NoError(t, err)

	_, err = svc.CreatePaymentRequest(ctx, PaymentRequestInput{InvoiceID: inv.ID, Amount: dec("2000000"), RequestedBy: "Sari"})
	require.ErrorIs(t, err, ErrOverpayment)

	req, err := svc.CreatePaymentRequest(ctx, PaymentRequestInput{InvoiceID: inv.ID, Amount: dec("1000"), RequestedBy: "Sari"})
	require.NoError(t, err)

	cancelled, err := svc.CancelPaymentRequest(ctx, req.ID, "Sari")
	require.NoError(t, err)
	require.Equal(t, RequestCancelled, cancelled.Status)

	_, err = svc.CancelPaymentRequest(ctx, req.ID, "Sari")
	require.ErrorIs(t, err, shared.ErrStateConflict)

	requests, err := svc.ListPaymentRequests(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
}
