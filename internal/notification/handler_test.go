package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dapur-erp/dapur-erp/internal/rbac"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

func TestHandlerInbox(t *testing.T) {
	svc, _, _ := newTestService()
	mw := rbac.Middleware{Service: rbac.NewService()}
	router := chi.NewRouter()
	router.Use(mw.Identify)
	router.Route("/api/notifications", NewHandler(nil, svc, mw).MountRoutes)

	n, err := svc.Notify(context.Background(), NotifyInput{Type: TypeInvoiceGenerated, Title: "Invoice issued", RecipientRole: shared.RoleFinance})
	require.NoError(t, err)

	send := func(method, path, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set(rbac.HeaderActorName, "Dewi")
		req.Header.Set(rbac.HeaderActorRole, role)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := send(http.MethodGet, "/api/notifications/unread-count", "finance")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"unread":1}`, rec.Body.String())

	rec = send(http.MethodGet, "/api/notifications/unread-count", "kitchen")
	require.JSONEq(t, `{"unread":0}`, rec.Body.String())

	path := "/api/notifications/" + strconv.FormatInt(n.ID, 10) + "/read"
	rec = send(http.MethodPost, path, "kitchen")
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = send(http.MethodPost, path, "finance")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = send(http.MethodPost, path, "finance")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(http.MethodGet, "/api/notifications?unread=true", "finance")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Notifications []Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body.Notifications)

	rec = send(http.MethodPost, "/api/notifications/read-all", "finance")
	require.JSONEq(t, `{"marked":0}`, rec.Body.String())
}
