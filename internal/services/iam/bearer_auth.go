package iam

import (
	"context"
	"errors"
	"fmt"

	"github.com/terraconstructs/campusapi/internal/apperr"
	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/telemetry"
)

// Token rejection reasons used as metric labels.
const (
	RejectRevoked = "revoked"
	RejectExpired = "expired"
	RejectInvalid = "invalid"
)

// BearerAuthenticator authenticates requests carrying "Authorization: Bearer <token>".
//
//  1. Extract the token (return (nil, nil) when absent)
//  2. Check the revocation list (backend failure fails closed)
//  3. Verify signature, issuer and expiry
//  4. Build the Principal from the claims
//
// It never reads the credential store, so role changes apply once a new token is
// issued. This authenticator is stateless and thread-safe.
type BearerAuthenticator struct {
	tokens      *auth.TokenIssuer
	revocations auth.RevocationList
	metrics     *telemetry.Metrics
}

// NewBearerAuthenticator creates a bearer token authenticator.
func NewBearerAuthenticator(tokens *auth.TokenIssuer, revocations auth.RevocationList, metrics *telemetry.Metrics) *BearerAuthenticator {
	return &BearerAuthenticator{tokens: tokens, revocations: revocations, metrics: metrics}
}

// Authenticate extracts and validates the bearer token in req.Headers.
func (a *BearerAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	token, err := auth.BearerTokenFromHeader(req.Headers)
	if err != nil {
		return nil, nil
	}

	revoked, err := a.revocations.IsRevoked(ctx, token)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("check revocation (%s): %w", a.revocations.Backend(), err))
	}
	if revoked {
		a.metrics.RecordTokenRejection(RejectRevoked)
		return nil, ErrTokenRevoked
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			a.metrics.RecordTokenRejection(RejectExpired)
			return nil, ErrTokenExpired.WithCause(err)
		}
		a.metrics.RecordTokenRejection(RejectInvalid)
		return nil, ErrInvalidToken.WithCause(err)
	}

	return principalFromClaims(claims, token), nil
}
