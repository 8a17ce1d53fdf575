package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RevocationKeyPrefix namespaces denylist entries. The suffix is HashToken(token);
// raw tokens are never stored.
const RevocationKeyPrefix = "blacklist:"

// RevokedValue is the sentinel stored against revoked keys.
const RevokedValue = "revoked"

// RevocationList is the denylist of tokens invalidated before their natural expiry.
// Implementations are safe for concurrent use.
type RevocationList interface {
	// Revoke denies token for remaining. It is a no-op when remaining <= 0 since
	// the token already fails verification on its own.
	Revoke(ctx context.Context, token string, remaining time.Duration) error
	// IsRevoked reports whether token is currently denied. Backend failures are
	// returned as errors, never as "not revoked".
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Backend names the storage for logs and metrics.
	Backend() string
}

// RevocationKey returns the denylist key for token.
func RevocationKey(token string) string {
	return RevocationKeyPrefix + HashToken(token)
}

type revocationReasonKey struct{}

// WithRevocationReason annotates ctx with why a token is being revoked. Backends that
// keep an audit trail record it.
func WithRevocationReason(ctx context.Context, reason string) context.Context {
	return context.WithValue(ctx, revocationReasonKey{}, reason)
}

func revocationReason(ctx context.Context) string {
	if reason, ok := ctx.Value(revocationReasonKey{}).(string); ok && reason != "" {
		return reason
	}
	return "logout"
}

// unverifiedSubject reads sub without checking the signature. Only used for audit columns.
func unverifiedSubject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
