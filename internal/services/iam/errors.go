package iam

import (
	"net/http"

	"github.com/terraconstructs/campusapi/internal/apperr"
)

// Failures returned by the service. Messages are client-facing.
var (
	ErrInvalidCredentials     = apperr.Unauthenticated("Invalid credentials")
	ErrAuthenticationRequired = apperr.Unauthenticated("Authentication required")
	ErrInvalidToken           = apperr.Unauthenticated("Invalid token")
	ErrTokenExpired           = apperr.Unauthenticated("Token expired")
	ErrTokenRevoked           = apperr.Unauthenticated("Token revoked")

	ErrAccountDisabled = apperr.Forbidden("Account disabled")
	ErrForbidden       = apperr.Forbidden("Forbidden")

	ErrProviderRejected          = apperr.Provider("Authentication failed")
	ErrProviderUnavailable       = apperr.ProviderUnavailable("Identity provider unavailable")
	ErrProviderProfileIncomplete = apperr.Provider("Identity provider did not return an email address")
	ErrEmailNotVerified          = apperr.Provider("Email address is not verified")
	ErrInvalidState              = apperr.Provider("Invalid OAuth state")
	ErrGoogleDisabled            = apperr.NotFound("Google sign-in is not configured")

	ErrEmailConflict   = apperr.Conflict("account exists with a different sign-in method")
	ErrUserExists      = &apperr.Error{Kind: apperr.KindConflict, Message: "User already exists", Status: http.StatusBadRequest}
	ErrUserNotFound    = apperr.NotFound("User not found")
	ErrRoleNotAllowed  = apperr.Validation("role not permitted for this email")
	ErrTokenNotIssued  = apperr.Validation("token was not issued by this service")
	ErrInvalidEmail    = apperr.Validation("Invalid email")
	ErrInvalidRole     = apperr.Validation("Invalid role")
	ErrPasswordTooLong = apperr.Validation("Password is too long")
)
