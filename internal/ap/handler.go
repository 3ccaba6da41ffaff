package ap

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dapur-erp/dapur-erp/internal/platform/httpx"
	"github.com/dapur-erp/dapur-erp/internal/rbac"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// FinalInvoicer issues the final invoice of a purchase order. The purchase
// order side owns the precondition checks.
type FinalInvoicer interface {
	GenerateFinalInvoice(ctx context.Context, poID int64, actor string) (Invoice, error)
}

// Handler manages AP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	final     FinalInvoicer
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, final FinalInvoicer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, final: final, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers AP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermFinanceView))
		r.Get("/invoices", h.listInvoices)
		r.Get("/invoices/{id}", h.getInvoice)
		r.Get("/invoices/{id}/payments", h.listPayments)
		r.Get("/invoices/{id}/payment-requests", h.listPaymentRequests)
	})
	r.With(h.rbac.RequireAny(rbac.PermFinanceInvoice)).Post("/invoices/final", h.generateFinal)
	r.With(h.rbac.RequireAny(rbac.PermFinancePay)).Post("/payments", h.recordPayment)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermFinanceRequest))
		r.Post("/payment-requests", h.createPaymentRequest)
		r.Post("/payment-requests/{id}/cancel", h.cancelPaymentRequest)
	})
}

type finalInvoiceRequest struct {
	POID int64 `json:"po_id" validate:"required,gt=0"`
}

type paymentRequest struct {
	InvoiceID        int64           `json:"invoice_id" validate:"required,gt=0"`
	Amount           decimal.Decimal `json:"amount"`
	Method           string          `json:"method" validate:"required,max=40"`
	Reference        string          `json:"reference" validate:"max=120"`
	PaymentRequestID *int64          `json:"payment_request_id" validate:"omitempty,gt=0"`
}

type createPaymentRequestRequest struct {
	InvoiceID int64           `json:"invoice_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes" validate:"max=500"`
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := InvoiceFilter{
		Status: InvoiceStatus(q.Get("status")),
		Kind:   InvoiceKind(q.Get("kind")),
		Page:   shared.NewPage(httpx.QueryInt(r, "limit", 0), httpx.QueryInt(r, "offset", 0)),
	}
	if raw := q.Get("po_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, validationf("po_id must be numeric"))
			return
		}
		filter.POID = id
	}
	invoices, err := h.service.ListInvoices(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) listPaymentRequests(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	requests, err := h.service.ListPaymentRequests(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payment_requests": requests})
}

func (h *Handler) generateFinal(w http.ResponseWriter, r *http.Request) {
	var req finalInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	inv, err := h.final.GenerateFinalInvoice(r.Context(), req.POID, actor.Name)
	if err != nil {
		h.logger.Warn("final invoice", slog.Int64("po_id", req.POID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	payment, inv, err := h.service.RecordPayment(r.Context(), RecordPaymentInput{
		InvoiceID:        req.InvoiceID,
		Amount:           req.Amount,
		Method:           req.Method,
		Reference:        req.Reference,
		PaidBy:           actor.Name,
		PaymentRequestID: req.PaymentRequestID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"payment": payment, "invoice": inv})
}

func (h *Handler) createPaymentRequest(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequestRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	pr, err := h.service.CreatePaymentRequest(r.Context(), PaymentRequestInput{
		InvoiceID:   req.InvoiceID,
		Amount:      req.Amount,
		RequestedBy: actor.Name,
		Notes:       req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pr)
}

func (h *Handler) cancelPaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	pr, err := h.service.CancelPaymentRequest(r.Context(), id, actor.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
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
