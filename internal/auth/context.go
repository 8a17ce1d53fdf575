package auth

import (
	"context"
	"time"
)

// Provider names the credential source a principal was created with.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

// AuthenticatedPrincipal captures identity metadata propagated through the request context.
type AuthenticatedPrincipal struct {
	// ID references users.id.
	ID    string
	Email string
	Role  Role
	// TokenID is the jti of the bearer token that authenticated the request.
	TokenID string
	// ExpiresAt is the expiry of that token.
	ExpiresAt time.Time
}

type principalContextKey struct{}

// SetUserContext stores the authenticated principal on the context for downstream consumers.
func SetUserContext(ctx context.Context, principal AuthenticatedPrincipal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// GetUserFromContext retrieves the authenticated principal from the context.
func GetUserFromContext(ctx context.Context) (AuthenticatedPrincipal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(AuthenticatedPrincipal)
	return principal, ok
}
