package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/ap"
	"github.com/dapur-erp/dapur-erp/internal/events"
	"github.com/dapur-erp/dapur-erp/internal/inventory"
	"github.com/dapur-erp/dapur-erp/internal/masterdata/suppliers"
	"github.com/dapur-erp/dapur-erp/internal/platform/db"
	"github.com/dapur-erp/dapur-erp/internal/sequence"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Repository describes persistence used by Service. Implementations resolve
// the active transaction from ctx.
type Repository interface {
	InsertPO(ctx context.Context, po *PurchaseOrder) error
	GetPO(ctx context.Context, id int64, forUpdate bool) (PurchaseOrder, error)
	// UpdatePO writes po when the stored version equals po.Version and bumps
	// the version. It returns ErrVersionConflict otherwise.
	UpdatePO(ctx context.Context, po *PurchaseOrder) error
	ListPOs(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)

	InsertSteps(ctx context.Context, steps []WorkflowStep) error
	ListSteps(ctx context.Context, poID int64) ([]WorkflowStep, error)
	UpdateStep(ctx context.Context, step WorkflowStep) error

	InsertGoodsReceipt(ctx context.Context, gr *GoodsReceipt) error
	GetGoodsReceipt(ctx context.Context, id int64) (GoodsReceipt, error)
	ListGoodsReceipts(ctx context.Context, poID int64) ([]GoodsReceipt, error)

	UpsertMatch(ctx context.Context, m ThreeWayMatch) error
	GetMatch(ctx context.Context, poID int64) (ThreeWayMatch, error)
}

// SupplierLookup resolves suppliers.
type SupplierLookup interface {
	Get(ctx context.Context, id int64) (suppliers.Supplier, error)
}

// ItemLookup resolves inventory items.
type ItemLookup interface {
	Items(ctx context.Context, ids []int64) (map[int64]inventory.Item, error)
}

// InvoiceLedger issues and reads invoices.
type InvoiceLedger interface {
	GenerateFromPO(ctx context.Context, src ap.InvoiceSource, kind ap.InvoiceKind) (ap.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (ap.Invoice, error)
	ListInvoices(ctx context.Context, filter ap.InvoiceFilter) ([]ap.Invoice, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Metrics receives workflow counters.
type Metrics interface {
	ObservePOTransition(to string)
	ObserveGoodsReceipt(status string)
	ObserveThreeWayMatch(status string)
}

// Config tunes the engine.
type Config struct {
	TaxRate           decimal.Decimal
	MatchTolerance    decimal.Decimal
	TransitionTimeout time.Duration
}

// DefaultConfig returns the standard 10% tax and 0.01 match tolerance.
func DefaultConfig() Config {
	return Config{
		TaxRate:           decimal.RequireFromString("0.10"),
		MatchTolerance:    decimal.RequireFromString("0.01"),
		TransitionTimeout: 10 * time.Second,
	}
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Tx        db.Transactor
	Suppliers SupplierLookup
	Items     ItemLookup
	Invoices  InvoiceLedger
	Sequence  sequence.Allocator
	Events    events.Publisher
	Audit     AuditPort
	Metrics   Metrics
	Logger    *slog.Logger
	Config    Config
}

// Service orchestrates the purchase order lifecycle.
type Service struct {
	repo      Repository
	tx        db.Transactor
	suppliers SupplierLookup
	items     ItemLookup
	invoices  InvoiceLedger
	seq       sequence.Allocator
	events    events.Publisher
	audit     AuditPort
	metrics   Metrics
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

// NewService constructs procurement service.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tx := deps.Tx
	if tx == nil {
		tx = db.NoopTransactor{}
	}
	return &Service{
		repo:      deps.Repo,
		tx:        tx,
		suppliers: deps.Suppliers,
		items:     deps.Items,
		invoices:  deps.Invoices,
		seq:       deps.Sequence,
		events:    deps.Events,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		logger:    logger.With(slog.String("component", "procurement")),
		cfg:       deps.Config,
		now:       time.Now,
	}
}

// CreatePOInput describes creation payload.
type CreatePOInput struct {
	SupplierID           int64
	RequestedBy          string
	ExpectedDeliveryDate *time.Time
	Notes                string
	Lines                []POLineInput
}

// POLineInput describes an ordered item.
type POLineInput struct {
	InventoryItemID int64
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
}

// ActionInput identifies the PO and actor of a dedicated transition.
// ExpectedVersion is optional; when set the PO must still carry it.
type ActionInput struct {
	POID            int64
	Actor           string
	Note            string
	ExpectedVersion int64
}

// TransitionInput requests a move to Target.
type TransitionInput struct {
	POID            int64
	Target          POStatus
	Actor           string
	Note            string
	ExpectedVersion int64
}

// CreatePO validates the request, snapshots supplier and item names and
// persists a draft PO with its ten workflow steps.
func (s *Service) CreatePO(ctx context.Context, input CreatePOInput) (PurchaseOrder, error) {
	input.RequestedBy = strings.TrimSpace(input.RequestedBy)
	if input.RequestedBy == "" {
		return PurchaseOrder{}, validationf("requester is required")
	}
	if input.SupplierID <= 0 {
		return PurchaseOrder{}, validationf("supplier is required")
	}
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, validationf("minimal 1 line")
	}
	ids := make([]int64, 0, len(input.Lines))
	seen := make(map[int64]bool, len(input.Lines))
	for i, line := range input.Lines {
		if line.InventoryItemID <= 0 {
			return PurchaseOrder{}, validationf("line %d: inventory item is required", i+1)
		}
		if seen[line.InventoryItemID] {
			return PurchaseOrder{}, validationf("line %d: item %d listed twice", i+1, line.InventoryItemID)
		}
		seen[line.InventoryItemID] = true
		if !line.Quantity.IsPositive() {
			return PurchaseOrder{}, validationf("line %d: quantity must be positive", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return PurchaseOrder{}, validationf("line %d: unit price must not be negative", i+1)
		}
		ids = append(ids, line.InventoryItemID)
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	supplier, err := s.suppliers.Get(ctx, input.SupplierID)
	if err != nil {
		if errors.Is(err, suppliers.ErrNotFound) {
			return PurchaseOrder{}, validationf("unknown supplier %d", input.SupplierID)
		}
		return PurchaseOrder{}, fmt.Errorf("procurement: supplier lookup: %w", err)
	}
	items, err := s.items.Items(ctx, ids)
	if err != nil {
		if errors.Is(err, inventory.ErrItemNotFound) {
			return PurchaseOrder{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return PurchaseOrder{}, fmt.Errorf("procurement: item lookup: %w", err)
	}

	now := s.now()
	po := PurchaseOrder{
		SupplierID:           supplier.ID,
		SupplierName:         supplier.Name,
		Status:               StatusDraft,
		WorkflowProgress:     Progress(StatusDraft, 0),
		CurrentStep:          Label(StatusDraft),
		RequestedBy:          input.RequestedBy,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
		Notes:                input.Notes,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for _, line := range input.Lines {
		item := items[line.InventoryItemID]
		po.Lines = append(po.Lines, POLine{
			InventoryItemID: item.ID,
			ItemName:        item.Name,
			Unit:            item.Unit,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
		})
	}
	computeTotals(&po, s.cfg.TaxRate)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		number, err := s.seq.Next(ctx, sequence.KindPurchaseOrder, now)
		if err != nil {
			return fmt.Errorf("procurement: allocate number: %w", err)
		}
		po.Number = number
		if err := s.repo.InsertPO(ctx, &po); err != nil {
			return err
		}
		steps := make([]WorkflowStep, 0, len(Stages))
		for _, stage := range Stages {
			step := WorkflowStep{POID: po.ID, Stage: stage, Status: StepPending, UpdatedAt: now}
			if stage == StageDraft {
				step.Status = StepCompleted
				step.CompletedBy = po.RequestedBy
			}
			steps = append(steps, step)
		}
		if err := s.repo.InsertSteps(ctx, steps); err != nil {
			return err
		}
		return s.recordAudit(ctx, po.RequestedBy, "PO_CREATE", po.ID, map[string]any{"number": po.Number, "total": po.TotalAmount.String()})
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.logger.InfoContext(ctx, "purchase order created", slog.Int64("po_id", po.ID), slog.String("number", po.Number))
	return po, nil
}

// computeTotals derives line totals, subtotal, tax and total.
func computeTotals(po *PurchaseOrder, taxRate decimal.Decimal) {
	subtotal := decimal.Zero
	for i := range po.Lines {
		po.Lines[i].TotalPrice = po.Lines[i].Quantity.Mul(po.Lines[i].UnitPrice)
		subtotal = subtotal.Add(po.Lines[i].TotalPrice)
	}
	po.Subtotal = subtotal
	po.Tax = subtotal.Mul(taxRate)
	po.TotalAmount = po.Subtotal.Add(po.Tax)
}

// GetPO returns a PO with its lines.
func (s *Service) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, id, false)
}

// ListPOs returns PO headers matching filter.
func (s *Service) ListPOs(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	filter.Page = shared.NewPage(filter.Page.Limit, filter.Page.Offset)
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationf("unknown status %q", filter.Status)
	}
	return s.repo.ListPOs(ctx, filter)
}

// ListWorkflowSteps returns the steps of a PO in pipeline order.
func (s *Service) ListWorkflowSteps(ctx context.Context, poID int64) ([]WorkflowStep, error) {
	if _, err := s.repo.GetPO(ctx, poID, false); err != nil {
		return nil, err
	}
	return s.repo.ListSteps(ctx, poID)
}

// Transition moves the PO to in.Target when the transition table allows it.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (PurchaseOrder, error) {
	if !in.Target.Valid() {
		return PurchaseOrder{}, validationf("unknown status %q", in.Target)
	}
	action := ActionInput{POID: in.POID, Actor: in.Actor, Note: in.Note, ExpectedVersion: in.ExpectedVersion}
	switch in.Target {
	case StatusSupplierApproved:
		po, _, err := s.SupplierAccept(ctx, action)
		return po, err
	case StatusSupplierRejected:
		return s.SupplierReject(ctx, action)
	}
	return s.apply(ctx, transitionRequest{ActionInput: action, target: in.Target})
}

// SubmitForApproval requests manager approval.
func (s *Service) SubmitForApproval(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionSubmit})
}

// Approve records the approver.
func (s *Service) Approve(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionApprove})
}

// Send marks the PO as sent to the supplier.
func (s *Service) Send(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionSend})
}

// SupplierAccept records the supplier's acceptance and issues the proforma
// invoice in the same transaction.
func (s *Service) SupplierAccept(ctx context.Context, in ActionInput) (PurchaseOrder, ap.Invoice, error) {
	var invoice ap.Invoice
	po, err := s.apply(ctx, transitionRequest{
		ActionInput: in,
		action:      ActionSupplierAccept,
		mutate: func(ctx context.Context, po *PurchaseOrder) error {
			inv, err := s.invoices.GenerateFromPO(ctx, invoiceSource(*po, in.Actor), ap.KindProforma)
			if err != nil {
				return fmt.Errorf("procurement: issue proforma invoice: %w", err)
			}
			invoice = inv
			po.ProformaInvoiceID = &inv.ID
			return nil
		},
	})
	if err != nil {
		return PurchaseOrder{}, ap.Invoice{}, err
	}
	return po, invoice, nil
}

// SupplierReject records the supplier's refusal. in.Note is the reason.
func (s *Service) SupplierReject(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	if strings.TrimSpace(in.Note) == "" {
		return PurchaseOrder{}, validationf("rejection reason is required")
	}
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionSupplierReject})
}

// AdvanceToTransit marks the goods as shipped.
func (s *Service) AdvanceToTransit(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionShip})
}

// MarkReceived marks the goods as received.
func (s *Service) MarkReceived(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionReceive})
}

// MarkQCPassed records a passed quality check.
func (s *Service) MarkQCPassed(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionQCPass})
}

// MarkQCFailed records a failed quality check. in.Note is the reason.
func (s *Service) MarkQCFailed(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionQCFail})
}

// Complete closes the PO.
func (s *Service) Complete(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionComplete})
}

// Cancel aborts a PO that has not been sent yet.
func (s *Service) Cancel(ctx context.Context, in ActionInput) (PurchaseOrder, error) {
	return s.apply(ctx, transitionRequest{ActionInput: in, action: ActionCancel})
}

type transitionRequest struct {
	ActionInput
	action Action
	// target is used instead of action when set.
	target POStatus
	mutate func(ctx context.Context, po *PurchaseOrder) error
}

// apply runs one transition as a compare-and-set on the PO version, together
// with its step updates, events and audit entry.
func (s *Service) apply(ctx context.Context, req transitionRequest) (PurchaseOrder, error) {
	req.Actor = strings.TrimSpace(req.Actor)
	if req.Actor == "" {
		return PurchaseOrder{}, validationf("actor is required")
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var (
		updated PurchaseOrder
		from    POStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		po, err := s.repo.GetPO(ctx, req.POID, true)
		if err != nil {
			return err
		}
		if req.ExpectedVersion != 0 && req.ExpectedVersion != po.Version {
			return ErrVersionConflict
		}
		action := req.action
		if req.target != "" {
			a, ok := ActionTo(po.Status, req.target)
			if !ok {
				return fmt.Errorf("%w: %s cannot move to %s", ErrInvalidState, po.Status, req.target)
			}
			action = a
		}
		next, ok := Next(po.Status, action)
		if !ok {
			return fmt.Errorf("%w: cannot %s a purchase order in status %s", ErrInvalidState, action, po.Status)
		}

		now := s.now()
		from = po.Status
		po.Status = next
		po.WorkflowProgress = Progress(next, po.WorkflowProgress)
		po.CurrentStep = Label(next)
		po.UpdatedAt = now
		stampTransition(&po, action, req.Actor, req.Note, now)
		if req.mutate != nil {
			if err := req.mutate(ctx, &po); err != nil {
				return err
			}
		}
		if err := s.repo.UpdatePO(ctx, &po); err != nil {
			return err
		}
		if err := s.advanceSteps(ctx, po.ID, action, req.Actor, req.Note, now); err != nil {
			return err
		}
		if err := s.publish(ctx, events.POTransitioned{
			Meta:         events.NewMeta(req.Actor),
			POID:         po.ID,
			PONumber:     po.Number,
			SupplierID:   po.SupplierID,
			SupplierName: po.SupplierName,
			From:         string(from),
			To:           string(next),
			Reason:       req.Note,
			TotalAmount:  po.TotalAmount,
		}); err != nil {
			return err
		}
		updated = po
		return s.recordAudit(ctx, req.Actor, "PO_"+strings.ToUpper(string(action)), po.ID, map[string]any{
			"from": string(from), "to": string(next), "note": req.Note,
		})
	})
	if err != nil {
		return PurchaseOrder{}, conflict(err)
	}
	if s.metrics != nil {
		s.metrics.ObservePOTransition(string(updated.Status))
	}
	s.logger.InfoContext(ctx, "purchase order transitioned",
		slog.Int64("po_id", updated.ID),
		slog.String("from", string(from)),
		slog.String("to", string(updated.Status)),
		slog.String("actor", req.Actor))
	return updated, nil
}

func stampTransition(po *PurchaseOrder, action Action, actor, note string, now time.Time) {
	at := now
	switch action {
	case ActionApprove:
		po.ApprovedBy = actor
		po.ApprovedAt = &at
	case ActionSend:
		po.SentAt = &at
	case ActionSupplierAccept:
		po.SupplierApprovedBy = actor
		po.SupplierApprovedAt = &at
	case ActionSupplierReject:
		po.SupplierRejectedAt = &at
		po.RejectionReason = note
	}
}

// advanceSteps applies the step effects of action. Completed and failed
// steps are never touched again.
func (s *Service) advanceSteps(ctx context.Context, poID int64, action Action, actor, note string, now time.Time) error {
	steps, err := s.repo.ListSteps(ctx, poID)
	if err != nil {
		return err
	}
	byStage := make(map[Stage]WorkflowStep, len(steps))
	for _, st := range steps {
		byStage[st.Stage] = st
	}

	var changes []stepChange
	if action == ActionCancel {
		for _, st := range steps {
			if st.Status == StepInProgress {
				changes = append(changes, stepChange{stage: st.Stage, status: StepFailed})
			}
		}
	} else {
		changes = stepEffects(action)
	}

	for _, change := range changes {
		st, ok := byStage[change.stage]
		if !ok {
			return fmt.Errorf("procurement: workflow step %s missing for po %d", change.stage, poID)
		}
		if st.Status.Final() {
			continue
		}
		st.Status = change.status
		st.Notes = change.note
		if st.Notes == "" {
			st.Notes = note
		}
		if change.status.Final() {
			st.CompletedBy = actor
		}
		st.UpdatedAt = now
		if err := s.repo.UpdateStep(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// GenerateFinalInvoice issues the single final invoice of a QC-passed PO.
func (s *Service) GenerateFinalInvoice(ctx context.Context, poID int64, actor string) (ap.Invoice, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ap.Invoice{}, validationf("actor is required")
	}
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	var invoice ap.Invoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		po, err := s.repo.GetPO(ctx, poID, true)
		if err != nil {
			return err
		}
		if po.Status != StatusQCPassed {
			return fmt.Errorf("%w: final invoice requires qc_passed, purchase order is %s", ErrInvalidState, po.Status)
		}
		existing, err := s.invoices.ListInvoices(ctx, ap.InvoiceFilter{POID: po.ID, Kind: ap.KindFinal})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: final invoice %s already issued", ErrInvalidState, existing[0].Number)
		}
		inv, err := s.invoices.GenerateFromPO(ctx, invoiceSource(po, actor), ap.KindFinal)
		if err != nil {
			return fmt.Errorf("procurement: issue final invoice: %w", err)
		}
		invoice = inv
		now := s.now()
		steps, err := s.repo.ListSteps(ctx, po.ID)
		if err != nil {
			return err
		}
		for _, st := range steps {
			switch {
			case st.Stage == StageFinalInvoice && !st.Status.Final():
				st.Status = StepCompleted
				st.CompletedBy = actor
				st.Notes = inv.Number
			case st.Stage == StagePayment && !st.Status.Final():
				st.Status = StepInProgress
			default:
				continue
			}
			st.UpdatedAt = now
			if err := s.repo.UpdateStep(ctx, st); err != nil {
				return err
			}
		}
		return s.recordAudit(ctx, actor, "PO_FINAL_INVOICE", po.ID, map[string]any{"invoice": inv.Number})
	})
	if err != nil {
		return ap.Invoice{}, conflict(err)
	}
	return invoice, nil
}

// HandleInvoicePaid completes a QC-passed PO once its final invoice is paid.
// It runs inside the payment's transaction.
func (s *Service) HandleInvoicePaid(ctx context.Context, evt events.Event) error {
	paid, ok := evt.(events.InvoicePaid)
	if !ok || paid.Kind != string(ap.KindFinal) {
		return nil
	}
	po, err := s.repo.GetPO(ctx, paid.POID, false)
	if err != nil {
		return err
	}
	if po.Status != StatusQCPassed {
		s.logger.InfoContext(ctx, "final invoice paid, purchase order left as is",
			slog.Int64("po_id", po.ID), slog.String("status", string(po.Status)))
		return nil
	}
	actor := paid.Actor
	if actor == "" {
		actor = "system"
	}
	_, err = s.Complete(ctx, ActionInput{POID: po.ID, Actor: actor, Note: "final invoice " + paid.InvoiceNumber + " paid"})
	return err
}

func invoiceSource(po PurchaseOrder, actor string) ap.InvoiceSource {
	lines := make([]ap.InvoiceLine, 0, len(po.Lines))
	for _, l := range po.Lines {
		lines = append(lines, ap.InvoiceLine{
			InventoryItemID: l.InventoryItemID,
			ItemName:        l.ItemName,
			Unit:            l.Unit,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			TotalPrice:      l.TotalPrice,
		})
	}
	return ap.InvoiceSource{
		POID:         po.ID,
		PONumber:     po.Number,
		SupplierID:   po.SupplierID,
		SupplierName: po.SupplierName,
		Lines:        lines,
		Subtotal:     po.Subtotal,
		Tax:          po.Tax,
		TotalAmount:  po.TotalAmount,
		IssuedBy:     actor,
	}
}

// conflict reports a PostgreSQL lost race as a stale PO version.
func conflict(err error) error {
	if errors.Is(err, db.ErrConcurrentUpdate) && !errors.Is(err, shared.ErrStateConflict) {
		return fmt.Errorf("%w: %w", ErrVersionConflict, err)
	}
	return err
}

func (s *Service) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.TransitionTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.TransitionTimeout)
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
	return s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
