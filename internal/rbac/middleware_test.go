package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

func TestRequireAny(t *testing.T) {
	m := Middleware{Service: NewService()}
	var seen shared.Actor
	protected := m.Identify(m.RequireAny(PermFinancePay)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	cases := []struct {
		name string
		role string
		want int
	}{
		{"finance allowed", "finance", http.StatusNoContent},
		{"kitchen forbidden", "kitchen", http.StatusForbidden},
		{"unknown role anonymous", "chef", http.StatusUnauthorized},
		{"missing headers", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/finance/payments", nil)
			if tc.role != "" {
				req.Header.Set(HeaderActorName, "Dewi")
				req.Header.Set(HeaderActorRole, tc.role)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
	require.Equal(t, "Dewi", seen.Name)
	require.Equal(t, shared.RoleFinance, seen.Role)
}

func TestEveryRoleGrantsKnownPermissions(t *testing.T) {
	known := make(map[string]bool)
	for _, p := range Permissions {
		known[p.Name] = true
	}
	for role, perms := range rolePermissions {
		require.True(t, role.Valid(), role)
		for _, p := range perms {
			require.True(t, known[p], "%s grants unknown %s", role, p)
		}
	}
	require.True(t, hasAllPermissions([]string{"a", "b"}, normalizePermissions([]string{" A ", "b", ""})))
	require.False(t, hasAnyPermission([]string{"a"}, []string{"c"}))
}
