package shared

import (
	"context"
	"strings"
)

// Role names the party an actor speaks for.
type Role string

const (
	RoleKitchen  Role = "kitchen"
	RoleManager  Role = "manager"
	RoleSupplier Role = "supplier"
	RoleFinance  Role = "finance"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleKitchen, RoleManager, RoleSupplier, RoleFinance:
		return true
	}
	return false
}

// ParseRole normalises a role name.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	return r, r.Valid()
}

// Actor identifies who performs an operation.
type Actor struct {
	Name string
	Role Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
