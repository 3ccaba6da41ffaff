package rbac

import (
	"context"
	"fmt"

	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Service answers permission questions from the static role table.
type Service struct {
	roles map[shared.Role][]string
}

// NewService constructs Service over the built-in role table.
func NewService() *Service {
	return &Service{roles: rolePermissions}
}

// ListPermissions returns every known permission.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return append([]Permission(nil), Permissions...), nil
}

// EffectivePermissions returns the permissions granted to role.
func (s *Service) EffectivePermissions(ctx context.Context, role shared.Role) ([]string, error) {
	perms, ok := s.roles[role]
	if !ok {
		return nil, fmt.Errorf("rbac: unknown role %q: %w", role, shared.ErrForbidden)
	}
	return append([]string(nil), perms...), nil
}

// Allowed reports whether role grants perm.
func (s *Service) Allowed(role shared.Role, perm string) bool {
	return hasAnyPermission(s.roles[role], normalizePermissions([]string{perm}))
}
