package procurement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dapur-erp/dapur-erp/internal/ap"
	"github.com/dapur-erp/dapur-erp/internal/events"
	"github.com/dapur-erp/dapur-erp/internal/inventory"
	"github.com/dapur-erp/dapur-erp/internal/masterdata/suppliers"
	"github.com/dapur-erp/dapur-erp/internal/platform/db"
	"github.com/dapur-erp/dapur-erp/internal/sequence"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type stubSuppliers map[int64]suppliers.Supplier

func (s stubSuppliers) Get(ctx context.Context, id int64) (suppliers.Supplier, error) {
	sup, ok := s[id]
	if !ok {
		return suppliers.Supplier{}, suppliers.ErrNotFound
	}
	return sup, nil
}

type stubItems map[int64]inventory.Item

func (s stubItems) Items(ctx context.Context, ids []int64) (map[int64]inventory.Item, error) {
	out := make(map[int64]inventory.Item, len(ids))
	for _, id := range ids {
		item, ok := s[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", inventory.ErrItemNotFound, id)
		}
		out[id] = item
	}
	return out, nil
}

type fixture struct {
	svc      *Service
	repo     *MemoryRepository
	ledger   *ap.Service
	invoices *ap.MemoryRepository
	bus      *events.Bus
	recorder *events.Recorder
	audit    *shared.MemoryAuditLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     NewMemoryRepository(),
		invoices: ap.NewMemoryRepository(),
		bus:      events.NewBus(),
		recorder: &events.Recorder{},
		audit:    &shared.MemoryAuditLog{},
	}
	for _, name := range []string{
		events.NamePOTransitioned, events.NameGoodsReceived, events.NameInvoiceGenerated,
		events.NamePaymentRecorded, events.NameInvoicePaid,
	} {
		f.bus.Subscribe(name, "recorder", f.recorder.Publish)
	}
	seq := sequence.NewMemoryAllocator()
	f.ledger = ap.NewService(ap.Deps{
		Repo:        f.invoices,
		Sequence:    seq,
		Events:      f.bus,
		Idempotency: shared.NewMemoryIdempotencyStore(),
		Audit:       f.audit,
	})
	f.svc = NewService(Deps{
		Repo:      f.repo,
		Suppliers: stubSuppliers{7: {ID: 7, Name: "CV Sayur Segar", Active: true}},
		Items: stubItems{
			1: {ID: 1, Name: "Beras", Unit: "kg"},
			2: {ID: 2, Name: "Minyak Goreng", Unit: "liter"},
		},
		Invoices: f.ledger,
		Sequence: seq,
		Events:   f.bus,
		Audit:    f.audit,
		Config:   DefaultConfig(),
	})
	f.svc.now = func() time.Time { return testNow }
	f.bus.Subscribe(events.NameInvoicePaid, "procurement", f.svc.HandleInvoicePaid)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) createPO(t *testing.T) PurchaseOrder {
	t.Helper()
	po, err := f.svc.CreatePO(context.Background(), CreatePOInput{
		SupplierID:  7,
		RequestedBy: "Sari",
		Lines: []POLineInput{
			{InventoryItemID: 1, Quantity: dec("10"), UnitPrice: dec("12500")},
			{InventoryItemID: 2, Quantity: dec("3"), UnitPrice: dec("2500.50")},
		},
	})
	require.NoError(t, err)
	return po
}

func (f *fixture) advance(t *testing.T, id int64, steps ...func(context.Context, ActionInput) (PurchaseOrder, error)) PurchaseOrder {
	t.Helper()
	var po PurchaseOrder
	for _, step := range steps {
		var err error
		po, err = step(context.Background(), ActionInput{POID: id, Actor: "Budi"})
		require.NoError(t, err)
	}
	return po
}

func (f *fixture) toSent(t *testing.T) PurchaseOrder {
	po := f.createPO(t)
	return f.advance(t, po.ID, f.svc.SubmitForApproval, f.svc.Approve, f.svc.Send)
}

func (f *fixture) steps(t *testing.T, poID int64) map[Stage]WorkflowStep {
	t.Helper()
	list, err := f.svc.ListWorkflowSteps(context.Background(), poID)
	require.NoError(t, err)
	out := make(map[Stage]WorkflowStep, len(list))
	for _, st := range list {
		out[st.Stage] = st
	}
	return out
}

func TestCreatePOComputesTotals(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t)

	require.Equal(t, "PO/2026.10/0001", po.Number)
	require.Equal(t, StatusDraft, po.Status)
	require.Equal(t, 10, po.WorkflowProgress)
	require.Equal(t, "CV Sayur Segar", po.SupplierName)
	require.Equal(t, "Minyak Goreng", po.Lines[1].ItemName)
	require.True(t, dec("7501.50").Equal(po.Lines[1].TotalPrice))
	require.True(t, dec("132501.50").Equal(po.Subtotal), po.Subtotal.String())
	require.True(t, dec("13250.15").Equal(po.Tax), po.Tax.String())
	require.True(t, po.TotalAmount.Equal(po.Subtotal.Add(po.Tax)))

	steps, err := f.svc.ListWorkflowSteps(context.Background(), po.ID)
	require.NoError(t, err)
	require.Len(t, steps, len(Stages))
	for i, st := range steps {
		require.Equal(t, Stages[i], st.Stage)
		if st.Stage == StageDraft {
			require.Equal(t, StepCompleted, st.Status)
			continue
		}
		require.Equal(t, StepPending, st.Status)
	}
	require.Len(t, f.audit.Entries(), 1)
}

func TestCreatePOValidation(t *testing.T) {
	f := newFixture(t)
	line := POLineInput{InventoryItemID: 1, Quantity: dec("1"), UnitPrice: dec("100")}
	cases := map[string]CreatePOInput{
		"no lines":         {SupplierID: 7, RequestedBy: "Sari"},
		"no requester":     {SupplierID: 7, Lines: []POLineInput{line}},
		"unknown supplier": {SupplierID: 99, RequestedBy: "Sari", Lines: []POLineInput{line}},
		"unknown item":     {SupplierID: 7, RequestedBy: "Sari", Lines: []POLineInput{{InventoryItemID: 42, Quantity: dec("1"), UnitPrice: dec("1")}}},
		"zero quantity":    {SupplierID: 7, RequestedBy: "Sari", Lines: []POLineInput{{InventoryItemID: 1, Quantity: decimal.Zero, UnitPrice: dec("1")}}},
		"negative price":   {SupplierID: 7, RequestedBy: "Sari", Lines: []POLineInput{{InventoryItemID: 1, Quantity: dec("1"), UnitPrice: dec("-1")}}},
		"duplicate item":   {SupplierID: 7, RequestedBy: "Sari", Lines: []POLineInput{line, line}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreatePO(context.Background(), input)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
	pos, err := f.repo.ListPOs(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Empty(t, pos)
}

func TestIllegalTransitionLeavesPOUnchanged(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t)

	_, err := f.svc.Send(context.Background(), ActionInput{POID: po.ID, Actor: "Budi"})
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorIs(t, err, shared.ErrStateConflict)

	_, err = f.svc.Transition(context.Background(), TransitionInput{POID: po.ID, Target: StatusCompleted, Actor: "Budi"})
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = f.svc.Transition(context.Background(), TransitionInput{POID: po.ID, Target: "shipped", Actor: "Budi"})
	require.ErrorIs(t, err, shared.ErrValidation)

	stored, err := f.svc.GetPO(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
	require.Equal(t, po.Version, stored.Version)
	require.Empty(t, f.recorder.Named(events.NamePOTransitioned))
}

func TestTransitionRequiresActor(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t)
	_, err := f.svc.SubmitForApproval(context.Background(), ActionInput{POID: po.ID, Actor: "  "})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestStaleVersionIsRejected(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t)

	submitted, err := f.svc.SubmitForApproval(context.Background(), ActionInput{POID: po.ID, Actor: "Sari", ExpectedVersion: po.Version})
	require.NoError(t, err)
	require.Equal(t, po.Version+1, submitted.Version)

	_, err = f.svc.Approve(context.Background(), ActionInput{POID: po.ID, Actor: "Budi", ExpectedVersion: po.Version})
	require.ErrorIs(t, err, ErrVersionConflict)
	require.ErrorIs(t, err, shared.ErrStateConflict)

	approved, err := f.svc.Transition(context.Background(), TransitionInput{POID: po.ID, Target: StatusApproved, Actor: "Budi", ExpectedVersion: submitted.Version})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, "Budi", approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
}

func TestSupplierAcceptIssuesOneProforma(t *testing.T) {
	f := newFixture(t)
	sent := f.toSent(t)
	require.Equal(t, 40, sent.WorkflowProgress)

	po, invoice, err := f.svc.SupplierAccept(context.Background(), ActionInput{POID: sent.ID, Actor: "CV Sayur Segar"})
	require.NoError(t, err)
	require.Equal(t, StatusSupplierApproved, po.Status)
	require.Equal(t, 50, po.WorkflowProgress)
	require.NotNil(t, po.ProformaInvoiceID)
	require.Equal(t, invoice.ID, *po.ProformaInvoiceID)
	require.Equal(t, ap.KindProforma, invoice.Kind)
	require.True(t, invoice.TotalAmount.Equal(po.TotalAmount))
	require.Contains(t, invoice.Number, "INV/")

	invoices, err := f.ledger.ListInvoices(context.Background(), ap.InvoiceFilter{POID: po.ID})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	require.Len(t, f.recorder.Named(events.NameInvoiceGenerated), 1)

	steps := f.steps(t, po.ID)
	require.Equal(t, StepCompleted, steps[StageSupplierAccept].Status)
	require.Equal(t, StepCompleted, steps[StageProformaInvoice].Status)
	require.Equal(t, StepInProgress, steps[StageShipment].Status)

	_, _, err = f.svc.SupplierAccept(context.Background(), ActionInput{POID: sent.ID, Actor: "CV Sayur Segar"})
	require.ErrorIs(t, err, ErrInvalidState)
	invoices, err = f.ledger.ListInvoices(context.Background(), ap.InvoiceFilter{POID: po.ID})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
}

func TestSupplierRejectRecordsReason(t *testing.T) {
	f := newFixture(t)
	sent := f.toSent(t)

	_, err := f.svc.SupplierReject(context.Background(), ActionInput{POID: sent.ID, Actor: "CV Sayur Segar"})
	require.ErrorIs(t, err, shared.ErrValidation)

	reason := "Stok beras habis sampai akhir bulan"
	po, err := f.svc.SupplierReject(context.Background(), ActionInput{POID: sent.ID, Actor: "CV Sayur Segar", Note: reason})
	require.NoError(t, err)
	require.Equal(t, StatusSupplierRejected, po.Status)
	require.Equal(t, reason, po.RejectionReason)
	require.NotNil(t, po.SupplierRejectedAt)
	require.Equal(t, 40, po.WorkflowProgress)
	require.True(t, Terminal(po.Status))

	steps := f.steps(t, po.ID)
	require.Equal(t, StepFailed, steps[StageSupplierAccept].Status)
	require.Equal(t, reason, steps[StageSupplierAccept].Notes)

	invoices, err := f.ledger.ListInvoices(context.Background(), ap.InvoiceFilter{POID: po.ID})
	require.NoError(t, err)
	require.Empty(t, invoices)

	transitions := f.recorder.Named(events.NamePOTransitioned)
	last := transitions[len(transitions)-1].(events.POTransitioned)
	require.Equal(t, string(StatusSupplierRejected), last.To)
	require.Equal(t, reason, last.Reason)
}

func TestCancelFailsInProgressStep(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t)
	f.advance(t, po.ID, f.svc.SubmitForApproval, f.svc.Approve)

	cancelled, err := f.svc.Cancel(context.Background(), ActionInput{POID: po.ID, Actor: "Budi", Note: "menu changed"})
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, 30, cancelled.WorkflowProgress)
	steps := f.steps(t, po.ID)
	require.Equal(t, StepCompleted, steps[StageApproval].Status)
	require.Equal(t, StepFailed, steps[StageSentToSupplier].Status)
	require.Equal(t, StepPending, steps[StageSupplierAccept].Status)

	sent := f.toSent(t)
	_, err = f.svc.Cancel(context.Background(), ActionInput{POID: sent.ID, Actor: "Budi"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestClassifyReceipt(t *testing.T) {
	line := func(ordered, received string) GRLine {
		return GRLine{InventoryItemID: 1, OrderedQuantity: dec(ordered), ReceivedQuantity: dec(received)}
	}
	cases := []struct {
		name  string
		lines []GRLine
		want  GRStatus
	}{
		{"exact", []GRLine{line("10", "10")}, GRCompleted},
		{"short", []GRLine{line("10", "7")}, GRPartial},
		{"over", []GRLine{line("10", "12")}, GRDiscrepancy},
		{"unordered item", []GRLine{line("10", "10"), line("0", "5")}, GRDiscrepancy},
		{"short wins over excess", []GRLine{line("10", "12"), line("5", "4")}, GRPartial},
		{"fractional exact", []GRLine{line("2.5", "2.50")}, GRCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyReceipt(tc.lines))
		})
	}
}

func TestGoodsReceiptOutcomes(t *testing.T) {
	f := newFixture(t)
	sent := f.toSent(t)
	f.advance(t, sent.ID, func(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
		po, _, err := f.svc.SupplierAccept(ctx, in)
		return po, err
	}, f.svc.AdvanceToTransit)

	partial, err := f.svc.CreateGoodsReceipt(context.Background(), GoodsReceiptInput{
		POID:       sent.ID,
		ReceivedBy: "Sari",
		Lines: []GoodsReceiptLineInput{
			{InventoryItemID: 1, ReceivedQuantity: dec("7"), RejectionNote: "3 karung basah"},
			{InventoryItemID: 2, ReceivedQuantity: dec("3")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, GRPartial, partial.Status)
	require.Equal(t, "GR/2026.10/0001", partial.Number)
	require.Equal(t, "Beras", partial.Lines[0].ItemName)
	require.True(t, dec("10").Equal(partial.Lines[0].OrderedQuantity))

	po, err := f.svc.GetPO(context.Background(), sent.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, po.Status)

	extra, err := f.svc.CreateGoodsReceipt(context.Background(), GoodsReceiptInput{
		POID:       sent.ID,
		ReceivedBy: "Sari",
		Lines:      []GoodsReceiptLineInput{{InventoryItemID: 99, ReceivedQuantity: dec("5")}},
	})
	require.NoError(t, err)
	require.Equal(t, GRPartial, extra.Status)
	require.Len(t, extra.Lines, 3)
	require.True(t, extra.Lines[0].OrderedQuantity.IsZero())
	require.Equal(t, int64(1), extra.Lines[1].InventoryItemID)
	require.True(t, extra.Lines[1].ReceivedQuantity.IsZero())

	complete, err := f.svc.CreateGoodsReceipt(context.Background(), GoodsReceiptInput{
		POID:       sent.ID,
		ReceivedBy: "Sari",
		Lines: []GoodsReceiptLineInput{
			{InventoryItemID: 1, ReceivedQuantity: dec("10")},
			{InventoryItemID: 2, ReceivedQuantity: dec("3")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, GRCompleted, complete.Status)

	po, err = f.svc.GetPO(context.Background(), sent.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, po.Status)
	require.Equal(t, 70, po.WorkflowProgress)

	receipts, err := f.svc.ListGoodsReceipts(context.Background(), sent.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	require.Len(t, f.recorder.Named(events.NameGoodsReceived), 3)
}

func TestGoodsReceiptOmittingOrderedItemIsPartial(t *testing.T) {
	f := newFixture(t)
	sent := f.toSent(t)
	_, _, err := f.svc.SupplierAccept(context.Background(), ActionInput{POID: sent.ID, Actor: "CV Sayur Segar"})
	require.NoError(t, err)

	gr, err := f.svc.CreateGoodsReceipt(context.Background(), GoodsReceiptInput{
		POID:       sent.ID,
		ReceivedBy: "Sari",
		Lines:      []GoodsReceiptLineInput{{InventoryItemID: 1, ReceivedQuantity: dec("10")}},
	})
	require.NoError(t, err)
	require.Equal(t, GRPartial, gr.Status)
	require.Len(t, gr.Lines, 2)
	missing, ok := gr.Line(2)
	require.True(t, ok)
	require.Equal(t, "Minyak Goreng", missing.ItemName)
	require.True(t, dec("3").Equal(missing.OrderedQuantity))
	require.True(t, missing.ReceivedQuantity.IsZero())

	po, err := f.svc.GetPO(context.Background(), sent.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSupplierApproved, po.Status)

	match, err := f.svc.Reconcile(context.Background(), ReconcileInput{POID: sent.ID, GoodsReceiptID: &gr.ID, CheckedBy: "Dewi"})
	require.NoError(t, err)
	require.Equal(t, MatchDiscrepancy, match.Status)
	require.Nil(t, match.MatchedAt)
	require.Equal(t, []string{"item Minyak Goreng: ordered 3 liter, received 0 liter"}, match.Discrepancies)
}

func TestGoodsReceiptRejectedBeforeSupplierAccept(t *testing.T) {
	f := newFixture(t)
	sent := f.toSent(t)
	_, err := f.svc.CreateGoodsReceipt(context.Background(), GoodsReceiptInput{
		POID:       sent.ID,
		ReceivedBy: "Sari",
		Lines:      []GoodsReceiptLineInput{{InventoryItemID: 1, ReceivedQuantity: dec("10")}},
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDiscrepanciesTolerance(t *testing.T) {
	po := PurchaseOrder{
		ID:          1,
		Lines:       []POLine{{InventoryItemID: 1, ItemName: "Beras", Unit: "kg", Quantity: dec("10")}},
		TotalAmount: dec("1000000"),
	}
	gr := &GoodsReceipt{POID: 1, Lines: []GRLine{{InventoryItemID: 1, ItemName: "Beras", Unit: "kg", OrderedQuantity: dec("10"), ReceivedQuantity: dec("10")}}}

	within := &ap.Invoice{POID: 1, TotalAmount: dec("1000000.005")}
	require.Empty(t, Discrepancies(po, gr, within, dec("0.01")))

	beyond := &ap.Invoice{POID: 1, TotalAmount: dec("1000002")}
	got := Discrepancies(po, gr, beyond, dec("0.01"))
	require.Len(t, got, 1)
	require.Contains(t, got[0], "1000002.00")

	short := &GoodsReceipt{POID: 1, Lines: []GRLine{
		{InventoryItemID: 1, ItemName: "Beras", Unit: "kg", OrderedQuantity: dec("10"), ReceivedQuantity: dec("8")},
		{InventoryItemID: 5, ReceivedQuantity: dec("1")},
	}}
	got = Discrepancies(po, short, nil, dec("0.01"))
	require.Len(t, got, 2)
	require.Contains(t, got[0], "ordered 10 kg, received 8 kg")
	require.Contains(t, got[1], "#5")

	require.Empty(t, Discrepancies(po, nil, nil, dec("0.01")))

	po.Lines = append(po.Lines, POLine{InventoryItemID: 2, ItemName: "Minyak Goreng", Unit: "liter", Quantity: dec("3")})
	got = Discrepancies(po, gr, nil, dec("0.01"))
	require.Equal(t, []string{"item Minyak Goreng: ordered 3 liter, not received"}, got)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sent := f.toSent(t)
	_, proforma, err := f.svc.SupplierAccept(context.Background(), ActionInput{POID: sent.ID, Actor: "CV Sayur Segar"})
	require.NoError(t, err)
	gr, err := f.svc.CreateGoodsReceipt(context.Background(), GoodsReceiptInput{
		POID:       sent.ID,
		ReceivedBy: "Sari",
		Lines: []GoodsReceiptLineInput{
			{InventoryItemID: 1, ReceivedQuantity: dec("10")},
			{InventoryItemID: 2, ReceivedQuantity: dec("3")},
		},
	})
	require.NoError(t, err)

	input := ReconcileInput{POID: sent.ID, GoodsReceiptID: &gr.ID, InvoiceID: &proforma.ID, CheckedBy: "Dewi"}
	first, err := f.svc.Reconcile(context.Background(), input)
	require.NoError(t, err)
	second, err := f.svc.Reconcile(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, MatchMatched, first.Status)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.Discrepancies, second.Discrepancies)
	require.NotNil(t, second.MatchedAt)

	stored, err := f.svc.GetMatch(context.Background(), sent.ID)
	require.NoError(t, err)
	require.Equal(t, second, stored)

	po, err := f.svc.GetPO(context.Background(), sent.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, po.Status)
}

func TestReconcileRejectsForeignDocuments(t *testing.T) {
	f := newFixture(t)
	a := f.toSent(t)
	b := f.toSent(t)
	_, proforma, err := f.svc.SupplierAccept(context.Background(), ActionInput{POID: a.ID, Actor: "CV Sayur Segar"})
	require.NoError(t, err)
	_, err = f.svc.Reconcile(context.Background(), ReconcileInput{POID: b.ID, InvoiceID: &proforma.ID, CheckedBy: "Dewi"})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.svc.GetMatch(context.Background(), b.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestQCFailedIsTerminal(t *testing.T) {
	f := newFixture(t)
	sent := f.toSent(t)
	_, _, err := f.svc.SupplierAccept(context.Background(), ActionInput{POID: sent.ID, Actor: "CV Sayur Segar"})
	require.NoError(t, err)
	po := f.advance(t, sent.ID, f.svc.MarkReceived)
	require.Equal(t, StatusReceived, po.Status)

	failed, err := f.svc.MarkQCFailed(context.Background(), ActionInput{POID: po.ID, Actor: "Sari", Note: "beras berkutu"})
	require.NoError(t, err)
	require.Equal(t, StatusQCFailed, failed.Status)
	require.Equal(t, 70, failed.WorkflowProgress)
	require.Equal(t, StepFailed, f.steps(t, po.ID)[StageQC].Status)

	_, err = f.svc.GenerateFinalInvoice(context.Background(), po.ID, "Dewi")
	require.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.Complete(context.Background(), ActionInput{POID: po.ID, Actor: "Budi"})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestHappyPathToPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sent := f.toSent(t)
	_, _, err := f.svc.SupplierAccept(ctx, ActionInput{POID: sent.ID, Actor: "CV Sayur Segar"})
	require.NoError(t, err)
	f.advance(t, sent.ID, f.svc.AdvanceToTransit)

	_, err = f.svc.CreateGoodsReceipt(ctx, GoodsReceiptInput{
		POID:       sent.ID,
		ReceivedBy: "Sari",
		Lines: []GoodsReceiptLineInput{
			{InventoryItemID: 1, ReceivedQuantity: dec("10")},
			{InventoryItemID: 2, ReceivedQuantity: dec("3")},
		},
	})
	require.NoError(t, err)
	passed := f.advance(t, sent.ID, f.svc.MarkQCPassed)
	require.Equal(t, 80, passed.WorkflowProgress)

	final, err := f.svc.GenerateFinalInvoice(ctx, sent.ID, "Dewi")
	require.NoError(t, err)
	require.Equal(t, ap.KindFinal, final.Kind)
	_, err = f.svc.GenerateFinalInvoice(ctx, sent.ID, "Dewi")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, StepInProgress, f.steps(t, sent.ID)[StagePayment].Status)

	half := final.TotalAmount.Div(decimal.NewFromInt(2))
	_, inv, err := f.ledger.RecordPayment(ctx, ap.RecordPaymentInput{InvoiceID: final.ID, Amount: half, Method: "transfer", Reference: "TRX-1", PaidBy: "Dewi"})
	require.NoError(t, err)
	require.Equal(t, ap.StatusPartial, inv.Status)
	po, err := f.svc.GetPO(ctx, sent.ID)
	require.NoError(t, err)
	require.Equal(t, StatusQCPassed, po.Status)

	_, inv, err = f.ledger.RecordPayment(ctx, ap.RecordPaymentInput{InvoiceID: final.ID, Amount: inv.RemainingAmount, Method: "transfer", Reference: "TRX-2", PaidBy: "Dewi"})
	require.NoError(t, err)
	require.Equal(t, ap.StatusPaid, inv.Status)
	require.True(t, inv.RemainingAmount.IsZero())

	po, err = f.svc.GetPO(ctx, sent.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, po.Status)
	require.Equal(t, 100, po.WorkflowProgress)
	for stage, st := range f.steps(t, sent.ID) {
		require.Equal(t, StepCompleted, st.Status, stage)
	}

	var to []string
	for _, evt := range f.recorder.Named(events.NamePOTransitioned) {
		to = append(to, evt.(events.POTransitioned).To)
	}
	require.Equal(t, []string{
		"pending_approval", "approved", "sent", "supplier_approved", "in_transit",
		"received", "qc_passed", "completed",
	}, to)
}

func TestDirectApprovalToPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	po := f.createPO(t)

	approved, err := f.svc.Approve(ctx, ActionInput{POID: po.ID, Actor: "Budi"})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.Equal(t, "Budi", approved.ApprovedBy)
	require.Equal(t, StepCompleted, f.steps(t, po.ID)[StageApproval].Status)

	f.advance(t, po.ID, f.svc.Send)
	_, _, err = f.svc.SupplierAccept(ctx, ActionInput{POID: po.ID, Actor: "CV Sayur Segar"})
	require.NoError(t, err)
	gr, err := f.svc.CreateGoodsReceipt(ctx, GoodsReceiptInput{
		POID:       po.ID,
		ReceivedBy: "Sari",
		Lines: []GoodsReceiptLineInput{
			{InventoryItemID: 1, ReceivedQuantity: dec("10")},
			{InventoryItemID: 2, ReceivedQuantity: dec("3")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, GRCompleted, gr.Status)
	f.advance(t, po.ID, f.svc.MarkQCPassed)

	final, err := f.svc.GenerateFinalInvoice(ctx, po.ID, "Dewi")
	require.NoError(t, err)
	_, inv, err := f.ledger.RecordPayment(ctx, ap.RecordPaymentInput{InvoiceID: final.ID, Amount: final.TotalAmount, Method: "transfer", Reference: "TRX-9", PaidBy: "Dewi"})
	require.NoError(t, err)
	require.Equal(t, ap.StatusPaid, inv.Status)

	done, err := f.svc.GetPO(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, 100, done.WorkflowProgress)
}

type racingTx struct{}

func (racingTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.TranslateError(fmt.Errorf("procurement: get po: %w", &pgconn.PgError{Code: "40001"}))
}

func TestLostRaceReportsVersionConflict(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t)
	f.svc.tx = racingTx{}

	_, err := f.svc.SubmitForApproval(context.Background(), ActionInput{POID: po.ID, Actor: "Sari"})
	require.ErrorIs(t, err, ErrVersionConflict)
	require.ErrorIs(t, err, shared.ErrStateConflict)

	_, err = f.svc.CreateGoodsReceipt(context.Background(), GoodsReceiptInput{
		POID:       po.ID,
		ReceivedBy: "Sari",
		Lines:      []GoodsReceiptLineInput{{InventoryItemID: 1, ReceivedQuantity: dec("10")}},
	})
	require.ErrorIs(t, err, shared.ErrStateConflict)

	_, err = f.svc.Reconcile(context.Background(), ReconcileInput{POID: po.ID, CheckedBy: "Dewi"})
	require.ErrorIs(t, err, shared.ErrStateConflict)
}

func TestReconcileWritesAudit(t *testing.T) {
	f := newFixture(t)
	po := f.createPO(t)
	_, err := f.svc.Reconcile(context.Background(), ReconcileInput{POID: po.ID, CheckedBy: "Dewi"})
	require.NoError(t, err)

	entries := f.audit.Entries()
	last := entries[len(entries)-1]
	require.Equal(t, "MATCH_RECONCILE", last.Action)
	require.Equal(t, "Dewi", last.Actor)
	require.Equal(t, string(MatchMatched), last.Meta["status"])
}

func TestListPOsFilters(t *testing.T) {
	f := newFixture(t)
	draft := f.createPO(t)
	sent := f.toSent(t)

	all, err := f.svc.ListPOs(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, sent.ID, all[0].ID)

	drafts, err := f.svc.ListPOs(context.Background(), ListFilter{Status: StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, draft.ID, drafts[0].ID)

	_, err = f.svc.ListPOs(context.Background(), ListFilter{Status: "archived"})
	require.ErrorIs(t, err, shared.ErrValidation)
}
