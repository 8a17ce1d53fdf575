package iam

import (
	"context"
	"net/http"
)

// Authenticator validates credentials and returns a Principal with its role.
//
// Implementations:
//   - PasswordAuthenticator: email and password against the credential store
//   - IdentityBroker: Google authorization code
//   - BearerAuthenticator: signed bearer tokens
//
// Return values:
//   - (principal, nil): Authentication successful
//   - (nil, nil): Credentials for this authenticator not present
//   - (nil, error): Authentication failed (an *apperr.Error)
type Authenticator interface {
	Authenticate(ctx context.Context, req AuthRequest) (*Principal, error)
}

// AuthRequest carries the credentials of one attempt. Each authenticator reads
// only the part it understands.
type AuthRequest struct {
	// Headers contains HTTP headers (Authorization)
	Headers http.Header

	// Password is set for email/password sign-in
	Password *PasswordCredentials

	// AuthorizationCode is the code returned to the Google callback
	AuthorizationCode string
}

// PasswordCredentials is an email and password pair as submitted by the client.
type PasswordCredentials struct {
	Email    string
	Password string
}
