package iam

import (
	"context"
	"time"

	"github.com/terraconstructs/campusapi/internal/auth"
)

// Service provides all authentication operations.
//
// This service centralizes:
//   - Sign-up and sign-in (password and Google)
//   - Bearer token authentication (request path - performance critical)
//   - Token revocation (logout, administrator revoke)
//   - Principal management (CLI)
type Service interface {
	// =========================================================================
	// Sign-up and sign-in
	// =========================================================================

	// Signup creates a local principal and returns a token for it.
	//
	// The role is derived from the email. A requested role is honoured only when it
	// is not more privileged than the derived one (ErrRoleNotAllowed otherwise).
	// An existing email fails with ErrUserExists.
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)

	// Login verifies an email and password and returns a token.
	// Every credential failure is ErrInvalidCredentials.
	Login(ctx context.Context, email, password string) (*AuthResult, error)

	// GoogleEnabled reports whether the Google flow is configured.
	GoogleEnabled() bool

	// AuthorizationURL returns the Google URL for state (ErrGoogleDisabled when not configured).
	AuthorizationURL(state string) (string, error)

	// CompleteExternalLogin redeems a Google authorization code, finds or creates the
	// principal and returns a token.
	CompleteExternalLogin(ctx context.Context, code string) (*AuthResult, error)

	// =========================================================================
	// Authentication (Request Path - Performance Critical)
	// =========================================================================

	// AuthenticateRequest validates the bearer token in req.
	//
	// Returns:
	//   - (principal, nil): Authentication successful
	//   - (nil, nil): No bearer token present
	//   - (nil, error): Revoked, expired or invalid token, or a revocation backend failure
	AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error)

	// =========================================================================
	// Revocation
	// =========================================================================

	// Logout revokes the token that authenticated principal for its remaining lifetime.
	Logout(ctx context.Context, principal *Principal) error

	// RevokeToken revokes any token issued by this service (administrator action).
	// Tokens that already expired need no revocation and succeed silently.
	RevokeToken(ctx context.Context, token string) error

	// RevocationBackend names the configured revocation storage.
	RevocationBackend() string

	// =========================================================================
	// Principal management
	// =========================================================================

	// GetPrincipal reads a principal from the credential store.
	GetPrincipal(ctx context.Context, id string) (*Principal, error)

	// CreateUser creates a local principal without issuing a token (CLI).
	// An empty role is derived from the email.
	CreateUser(ctx context.Context, in CreateUserInput) (*Principal, error)

	// SetRole changes the role of the principal with email (administrator action).
	// Tokens already issued keep their role until they expire.
	SetRole(ctx context.Context, email string, role auth.Role) (*Principal, error)

	// SetDisabled disables or re-enables the principal with email.
	SetDisabled(ctx context.Context, email string, disabled bool) error

	// ListUsers returns all principals ordered by email.
	ListUsers(ctx context.Context) ([]*Principal, error)
}

// AuthResult is the outcome of a successful sign-up or sign-in.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Principal *Principal
}

// SignupInput is a self-service registration request.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	// Role is optional.
	Role string
}

// CreateUserInput is an administrator-created local principal.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     auth.Role
}
