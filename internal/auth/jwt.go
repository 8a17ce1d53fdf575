package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/xenitab/go-oidc-middleware/oidctoken"
	"github.com/xenitab/go-oidc-middleware/options"
)

// ErrNoBearerToken is returned when a request carries no usable bearer credential.
var ErrNoBearerToken = errors.New("no bearer token")

type claimsContextKey struct{}

type tokenStringContextKey struct{}

type tokenHashContextKey struct{}

// bearerTokenStrings lists the extraction strategies tried in order.
// The empty set means the library default: "Authorization: Bearer <token>".
var bearerTokenStrings = [][]options.TokenStringOption{{}}

// ExtractBearerToken returns the trimmed bearer token of r.
func ExtractBearerToken(r *http.Request) (string, error) {
	return BearerTokenFromHeader(r.Header)
}

// BearerTokenFromHeader returns the trimmed bearer token carried by h.
func BearerTokenFromHeader(h http.Header) (string, error) {
	if h == nil {
		return "", ErrNoBearerToken
	}
	token, err := oidctoken.GetTokenString(h.Get, bearerTokenStrings)
	if err != nil {
		return "", ErrNoBearerToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoBearerToken
	}
	return token, nil
}

// WithVerifiedToken stores verified claims, the raw token and its hash on ctx.
func WithVerifiedToken(ctx context.Context, claims *TokenClaims, token string) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey{}, claims)
	ctx = context.WithValue(ctx, tokenStringContextKey{}, token)
	return context.WithValue(ctx, tokenHashContextKey{}, HashToken(token))
}

// ClaimsFromContext returns the verified token claims stored on the request context.
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*TokenClaims)
	return claims, ok && claims != nil
}

// TokenStringFromContext returns the raw bearer token extracted during verification.
func TokenStringFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenStringContextKey{}).(string)
	return token, ok
}

// TokenHashFromContext returns the SHA256 hash of the bearer token extracted during verification.
func TokenHashFromContext(ctx context.Context) (string, bool) {
	hash, ok := ctx.Value(tokenHashContextKey{}).(string)
	return hash, ok
}

// HashToken creates a SHA256 hash of a token string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
