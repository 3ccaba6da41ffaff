package perf

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/ap"
	"github.com/dapur-erp/dapur-erp/internal/app"
	"github.com/dapur-erp/dapur-erp/internal/procurement"
)

func newServices(tb testing.TB) *app.Services {
	tb.Helper()
	cfg := &app.Config{AppEnv: "test", POTaxRate: "0.10", MatchTolerance: "0.01", InvoiceTermDays: 30}
	svc, err := app.NewServices(app.ServiceDeps{
		Config: cfg,
		Stores: app.MemoryStores(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		tb.Fatalf("new services: %v", err)
	}
	return svc
}

// runLifecycle drives one PO from draft to completed.
func runLifecycle(ctx context.Context, svc *app.Services) error {
	proc := svc.Procurement
	po, err := proc.CreatePO(ctx, procurement.CreatePOInput{
		SupplierID:  1,
		RequestedBy: "Ani",
		Lines: []procurement.POLineInput{
			{InventoryItemID: 1, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(12500)},
			{InventoryItemID: 3, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(28000)},
		},
	})
	if err != nil {
		return err
	}
	in := procurement.ActionInput{POID: po.ID, Actor: "Budi"}
	for _, step := range []func(context.Context, procurement.ActionInput) (procurement.PurchaseOrder, error){
		proc.SubmitForApproval, proc.Approve, proc.Send,
	} {
		if _, err := step(ctx, in); err != nil {
			return err
		}
	}
	if _, _, err := proc.SupplierAccept(ctx, in); err != nil {
		return err
	}
	if _, err := proc.AdvanceToTransit(ctx, in); err != nil {
		return err
	}
	gr, err := proc.CreateGoodsReceipt(ctx, procurement.GoodsReceiptInput{
		POID:       po.ID,
		ReceivedBy: "Ani",
		Lines: []procurement.GoodsReceiptLineInput{
			{InventoryItemID: 1, ReceivedQuantity: decimal.NewFromInt(10)},
			{InventoryItemID: 3, ReceivedQuantity: decimal.NewFromInt(4)},
		},
	})
	if err != nil {
		return err
	}
	if _, err := proc.MarkQCPassed(ctx, in); err != nil {
		return err
	}
	inv, err := proc.GenerateFinalInvoice(ctx, po.ID, "Dewi")
	if err != nil {
		return err
	}
	if _, err := proc.Reconcile(ctx, procurement.ReconcileInput{POID: po.ID, GoodsReceiptID: &gr.ID, InvoiceID: &inv.ID, CheckedBy: "Dewi"}); err != nil {
		return err
	}
	_, _, err = svc.Invoices.RecordPayment(ctx, ap.RecordPaymentInput{
		InvoiceID: inv.ID,
		Amount:    inv.RemainingAmount,
		Method:    "transfer",
		PaidBy:    "Dewi",
	})
	return err
}

func TestLifecycleCompletes(t *testing.T) {
	svc := newServices(t)
	ctx := context.Background()
	if err := runLifecycle(ctx, svc); err != nil {
		t.Fatalf("lifecycle: %v", err)
	}
	pos, err := svc.Procurement.ListPOs(ctx, procurement.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pos) != 1 || pos[0].Status != procurement.StatusCompleted {
		t.Fatalf("expected one completed PO, got %+v", pos)
	}
}

func BenchmarkPurchaseOrderLifecycle(b *testing.B) {
	svc := newServices(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := runLifecycle(ctx, svc); err != nil {
			b.Fatalf("lifecycle: %v", err)
		}
	}
}

func BenchmarkReconcileParallel(b *testing.B) {
	svc := newServices(b)
	ctx := context.Background()
	if err := runLifecycle(ctx, svc); err != nil {
		b.Fatalf("lifecycle: %v", err)
	}
	pos, err := svc.Procurement.ListPOs(ctx, procurement.ListFilter{})
	if err != nil || len(pos) == 0 {
		b.Fatalf("list: %v", err)
	}
	poID := pos[0].ID
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := svc.Procurement.Reconcile(ctx, procurement.ReconcileInput{POID: poID, CheckedBy: "Dewi"}); err != nil {
				b.Errorf("reconcile: %v", err)
				return
			}
		}
	})
}
