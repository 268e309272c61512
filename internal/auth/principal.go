package auth

import (
	"context"

	"github.com/vaidashi/garment-order-tracker/internal/models"
)

// Principal is the authenticated caller of a service operation
type Principal struct {
	UserID string
	Role   models.Role
}

// PrincipalOf returns the principal for a loaded user
func PrincipalOf(user *models.User) Principal {
	return Principal{UserID: user.ID, Role: user.Role}
}

// IsAdmin reports whether the principal holds the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

type principalKey struct{}

// WithPrincipal stores p in the context
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by WithPrincipal
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
