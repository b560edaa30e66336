package authz

import (
	"context"

	"teamtasks/internal/models"
)

type identityKey struct{}

// WithIdentity returns a child context carrying the resolved identity.
func WithIdentity(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, identityKey{}, u)
}

// IdentityFrom returns the identity attached by the credential gate.
func IdentityFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(identityKey{}).(*models.User)
	return u, ok && u != nil
}
