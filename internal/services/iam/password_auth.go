package iam

import (
	"context"
	"errors"

	"github.com/terraconstructs/campusapi/internal/apperr"
	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/repository"
)

// PasswordAuthenticator checks an email and password against the credential store.
//
// Unknown email, an account without a password and a wrong password all fail with
// ErrInvalidCredentials, and every path performs one bcrypt comparison so the
// response time does not reveal which case occurred.
type PasswordAuthenticator struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
}

// NewPasswordAuthenticator creates a password authenticator.
func NewPasswordAuthenticator(users repository.UserRepository, hasher *auth.PasswordHasher) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: users, hasher: hasher}
}

// Authenticate verifies req.Password. Returns (nil, nil) when no password credentials
// are present.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	if req.Password == nil {
		return nil, nil
	}

	email := auth.NormalizeEmail(req.Password.Email)
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.hasher.VerifyDummy(req.Password.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}

	if !user.HasPassword() {
		a.hasher.VerifyDummy(req.Password.Password)
		return nil, ErrInvalidCredentials
	}
	if !a.hasher.Verify(*user.PasswordHash, req.Password.Password) {
		return nil, ErrInvalidCredentials
	}

	// Checked after the password so a disabled account is not revealed to guessers.
	if !user.Active() {
		return nil, ErrAccountDisabled
	}

	principal, err := principalFromUser(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return principal, nil
}
