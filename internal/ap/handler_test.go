package ap

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dapur-erp/dapur-erp/internal/rbac"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

type stubFinal struct {
	svc   *Service
	calls int
}

func (s *stubFinal) GenerateFinalInvoice(ctx context.Context, poID int64, actor string) (Invoice, error) {
	s.calls++
	if s.calls > 1 {
		return Invoice{}, shared.ErrStateConflict
	}
	src := sampleSource()
	src.POID = poID
	src.IssuedBy = actor
	return s.svc.GenerateFromPO(ctx, src, KindFinal)
}

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestService(t)
	mw := rbac.Middleware{Service: rbac.NewService()}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, &stubFinal{svc: svc}, mw)
	r := chi.NewRouter()
	r.Use(mw.Identify)
	r.Route("/api/finance", h.MountRoutes)
	return r, svc
}

func call(t *testing.T, h http.Handler, method, path, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(rbac.HeaderActorName, "Dewi")
	req.Header.Set(rbac.HeaderActorRole, role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerFinalInvoiceAndPayments(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := call(t, router, http.MethodPost, "/api/finance/invoices/final", "kitchen", `{"po_id":11}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/finance/invoices/final", "finance", `{"po_id":11}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	require.Equal(t, KindFinal, inv.Kind)
	require.Equal(t, "Dewi", inv.CreatedBy)

	rec = call(t, router, http.MethodPost, "/api/finance/invoices/final", "finance", `{"po_id":11}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	id := strconv.FormatInt(inv.ID, 10)
	rec = call(t, router, http.MethodPost, "/api/finance/payments", "finance",
		`{"invoice_id":`+id+`,"amount":"2000000","method":"transfer","reference":"TRX-9"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/finance/payments", "finance",
		`{"invoice_id":`+id+`,"amount":"320000","method":"transfer","reference":"TRX-9"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var paid struct {
		Payment Payment `json:"payment"`
		Invoice Invoice `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	require.Equal(t, StatusPartial, paid.Invoice.Status)
	require.Equal(t, "1000000", paid.Invoice.RemainingAmount.String())

	rec = call(t, router, http.MethodPost, "/api/finance/payments", "finance",
		`{"invoice_id":`+id+`,"amount":"1000","method":"transfer","reference":"TRX-9"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/finance/payments", "manager",
		`{"invoice_id":`+id+`,"amount":"1000","method":"cash"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, router, http.MethodGet, "/api/finance/invoices/"+id+"/payments", "supplier", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var payments struct {
		Payments []Payment `json:"payments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payments))
	require.Len(t, payments.Payments, 1)

	rec = call(t, router, http.MethodGet, "/api/finance/invoices?kind=final&po_id=11", "manager", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, router, http.MethodGet, "/api/finance/invoices/999", "manager", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerPaymentRequests(t *testing.T) {
	router, svc := newTestRouter(t)
	inv, err := svc.GenerateFromPO(context.Background(), sampleSource(), KindProforma)
	require.NoError(t, err)
	id := strconv.FormatInt(inv.ID, 10)

	rec := call(t, router, http.MethodPost, "/api/finance/payment-requests", "manager", `{"invoice_id":`+id+`,"amount":"500000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pr PaymentRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pr))
	require.Equal(t, RequestPending, pr.Status)

	path := "/api/finance/payment-requests/" + strconv.FormatInt(pr.ID, 10) + "/cancel"
	rec = call(t, router, http.MethodPost, path, "manager", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, router, http.MethodPost, path, "manager", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/finance/payment-requests", "supplier", `{"invoice_id":`+id+`,"amount":"1"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
