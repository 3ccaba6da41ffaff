package procurement

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/ap"
	"github.com/dapur-erp/dapur-erp/internal/platform/httpx"
	"github.com/dapur-erp/dapur-erp/internal/rbac"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Handler manages procurement endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermProcurementView))
		r.Get("/pos", h.listPOs)
		r.Get("/pos/{id}", h.getPO)
		r.Get("/pos/{id}/steps", h.listSteps)
		r.Get("/pos/{id}/receipts", h.listReceipts)
		r.Get("/pos/{id}/match", h.getMatch)
		r.Get("/receipts/{id}", h.getReceipt)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermProcurementCreate))
		r.Post("/pos", h.createPO)
		r.Post("/pos/{id}/submit", h.action(h.service.SubmitForApproval))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermProcurementApprove))
		r.Post("/pos/{id}/approve", h.action(h.service.Approve))
		r.Post("/pos/{id}/cancel", h.action(h.service.Cancel))
	})
	r.With(h.rbac.RequireAny(rbac.PermProcurementSend)).Post("/pos/{id}/send", h.action(h.service.Send))
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermSupplierRespond))
		r.Post("/pos/{id}/accept", h.accept)
		r.Post("/pos/{id}/reject", h.action(h.service.SupplierReject))
		r.Post("/pos/{id}/ship", h.action(h.service.AdvanceToTransit))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermGoodsReceive))
		r.Post("/pos/{id}/receive", h.action(h.service.MarkReceived))
		r.Post("/pos/{id}/receipts", h.createReceipt)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermQualityControl))
		r.Post("/pos/{id}/qc-pass", h.action(h.service.MarkQCPassed))
		r.Post("/pos/{id}/qc-fail", h.action(h.service.MarkQCFailed))
	})
	r.With(h.rbac.RequireAny(rbac.PermProcurementApprove, rbac.PermFinancePay)).Post("/pos/{id}/complete", h.action(h.service.Complete))
	r.With(h.rbac.RequireAny(rbac.PermProcurementMatch)).Post("/pos/{id}/match", h.reconcile)
	r.With(h.rbac.RequireAny(rbac.PermProcurementView)).Post("/pos/{id}/transition", h.transition)
}

// targetPermission is the permission needed to move a PO to a status through
// the generic transition route.
var targetPermission = map[POStatus]string{
	StatusPendingApproval:  rbac.PermProcurementCreate,
	StatusApproved:         rbac.PermProcurementApprove,
	StatusSent:             rbac.PermProcurementSend,
	StatusSupplierApproved: rbac.PermSupplierRespond,
	StatusSupplierRejected: rbac.PermSupplierRespond,
	StatusInTransit:        rbac.PermSupplierRespond,
	StatusReceived:         rbac.PermGoodsReceive,
	StatusQCPassed:         rbac.PermQualityControl,
	StatusQCFailed:         rbac.PermQualityControl,
	StatusCompleted:        rbac.PermProcurementApprove,
	StatusCancelled:        rbac.PermProcurementApprove,
}

type createPORequest struct {
	SupplierID           int64                 `json:"supplier_id" validate:"required,gt=0"`
	ExpectedDeliveryDate *time.Time            `json:"expected_delivery_date"`
	Notes                string                `json:"notes" validate:"max=1000"`
	Lines                []createPOLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createPOLineRequest struct {
	InventoryItemID int64           `json:"inventory_item_id" validate:"required,gt=0"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

type actionRequest struct {
	Note string `json:"note" validate:"max=1000"`
}

type transitionRequestBody struct {
	Target string `json:"target" validate:"required"`
	Note   string `json:"note" validate:"max=1000"`
}

type receiptRequest struct {
	Notes string               `json:"notes" validate:"max=1000"`
	Lines []receiptLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type receiptLineRequest struct {
	InventoryItemID  int64           `json:"inventory_item_id" validate:"required,gt=0"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	RejectionNote    string          `json:"rejection_note" validate:"max=500"`
}

type matchRequest struct {
	GoodsReceiptID *int64 `json:"goods_receipt_id" validate:"omitempty,gt=0"`
	InvoiceID      *int64 `json:"invoice_id" validate:"omitempty,gt=0"`
}

func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status: POStatus(q.Get("status")),
		Search: strings.TrimSpace(q.Get("q")),
		Page:   shared.NewPage(httpx.QueryInt(r, "limit", 0), httpx.QueryInt(r, "offset", 0)),
	}
	if raw := q.Get("supplier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, validationf("supplier_id must be numeric"))
			return
		}
		filter.SupplierID = id
	}
	pos, err := h.service.ListPOs(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_orders": pos})
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.service.GetPO(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("ETag", etag(po.Version))
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) listSteps(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	steps, err := h.service.ListWorkflowSteps(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"steps": steps})
}

func (h *Handler) createPO(w http.ResponseWriter, r *http.Request) {
	var req createPORequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := CreatePOInput{
		SupplierID:           req.SupplierID,
		RequestedBy:          actor.Name,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Notes:                req.Notes,
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, POLineInput{InventoryItemID: l.InventoryItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	po, err := h.service.CreatePO(r.Context(), input)
	if err != nil {
		h.logger.Warn("create po", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("ETag", etag(po.Version))
	httpx.JSON(w, http.StatusCreated, po)
}

// action adapts a dedicated transition to an HTTP handler.
func (h *Handler) action(fn func(ctx context.Context, in ActionInput) (PurchaseOrder, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := h.actionInput(w, r)
		if !ok {
			return
		}
		po, err := fn(r.Context(), in)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		w.Header().Set("ETag", etag(po.Version))
		httpx.JSON(w, http.StatusOK, po)
	}
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	in, ok := h.actionInput(w, r)
	if !ok {
		return
	}
	po, invoice, err := h.service.SupplierAccept(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("ETag", etag(po.Version))
	httpx.JSON(w, http.StatusOK, struct {
		PurchaseOrder   PurchaseOrder `json:"purchase_order"`
		ProformaInvoice ap.Invoice    `json:"proforma_invoice"`
	}{po, invoice})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	version, err := ifMatch(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req transitionRequestBody
	if !h.decode(w, r, &req) {
		return
	}
	target := POStatus(req.Target)
	actor, _ := shared.ActorFromContext(r.Context())
	if perm, ok := targetPermission[target]; ok && !h.rbac.Service.Allowed(actor.Role, perm) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "role "+string(actor.Role)+" may not move a purchase order to "+req.Target)
		return
	}
	po, err := h.service.Transition(r.Context(), TransitionInput{
		POID:            id,
		Target:          target,
		Actor:           actor.Name,
		Note:            req.Note,
		ExpectedVersion: version,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("ETag", etag(po.Version))
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req receiptRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := GoodsReceiptInput{POID: id, ReceivedBy: actor.Name, Notes: req.Notes}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, GoodsReceiptLineInput{
			InventoryItemID:  l.InventoryItemID,
			ReceivedQuantity: l.ReceivedQuantity,
			RejectionNote:    l.RejectionNote,
		})
	}
	gr, err := h.service.CreateGoodsReceipt(r.Context(), input)
	if err != nil {
		h.logger.Warn("create goods receipt", slog.Int64("po_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, gr)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	receipts, err := h.service.ListGoodsReceipts(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"goods_receipts": receipts})
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	gr, err := h.service.GetGoodsReceipt(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, gr)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req matchRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	match, err := h.service.Reconcile(r.Context(), ReconcileInput{
		POID:           id,
		GoodsReceiptID: req.GoodsReceiptID,
		InvoiceID:      req.InvoiceID,
		CheckedBy:      actor.Name,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, match)
}

func (h *Handler) getMatch(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	match, err := h.service.GetMatch(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, match)
}

func (h *Handler) actionInput(w http.ResponseWriter, r *http.Request) (ActionInput, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return ActionInput{}, false
	}
	version, err := ifMatch(r)
	if err != nil {
		httpx.RespondError(w, err)
		return ActionInput{}, false
	}
	var req actionRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return ActionInput{}, false
	}
	actor, _ := shared.ActorFromContext(r.Context())
	return ActionInput{POID: id, Actor: actor.Name, Note: req.Note, ExpectedVersion: version}, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}

// ifMatch reads the expected PO version. A missing header means any version.
func ifMatch(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return 0, nil
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, validationf("If-Match must carry a purchase order version")
	}
	return v, nil
}
