package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/terraconstructs/campusapi/internal/apperr"
	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/db/bunx"
	"github.com/terraconstructs/campusapi/internal/db/models"
	"github.com/terraconstructs/campusapi/internal/repository"
)

// BrokerOptions tunes how external profiles are accepted.
type BrokerOptions struct {
	RequireEmail         bool
	RequireVerifiedEmail bool
}

// IdentityBroker completes the Google authorization code flow and maps the external
// profile onto a local principal, creating it on first sign-in.
//
// Lookup order:
//  1. external id: returning principal, data and role are left untouched
//  2. email: a local or differently linked account is a conflict (409)
//  3. otherwise create with the role derived from the email
//
// Calling it twice with the same profile yields the same principal.
type IdentityBroker struct {
	exchanger auth.ProfileExchanger
	users     repository.UserRepository
	roles     *auth.RoleResolver
	opts      BrokerOptions
	logger    zerolog.Logger
}

// NewIdentityBroker creates an identity broker.
func NewIdentityBroker(
	exchanger auth.ProfileExchanger,
	users repository.UserRepository,
	roles *auth.RoleResolver,
	opts BrokerOptions,
	logger zerolog.Logger,
) *IdentityBroker {
	return &IdentityBroker{
		exchanger: exchanger,
		users:     users,
		roles:     roles,
		opts:      opts,
		logger:    logger,
	}
}

// AuthorizationURL returns the provider URL the client is redirected to.
func (b *IdentityBroker) AuthorizationURL(state string) string {
	return b.exchanger.AuthorizationURL(state)
}

// Authenticate redeems req.AuthorizationCode. Returns (nil, nil) when no code is present.
func (b *IdentityBroker) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	if req.AuthorizationCode == "" {
		return nil, nil
	}

	profile, err := b.exchanger.Exchange(ctx, req.AuthorizationCode)
	if err != nil {
		if errors.Is(err, auth.ErrProviderUnavailable) {
			return nil, ErrProviderUnavailable.WithCause(err)
		}
		return nil, ErrProviderRejected.WithCause(err)
	}

	return b.Resolve(ctx, profile)
}

// Resolve finds or creates the principal for a verified external profile.
func (b *IdentityBroker) Resolve(ctx context.Context, profile *auth.ExternalProfile) (*Principal, error) {
	if profile == nil || profile.Subject == "" {
		return nil, ErrProviderRejected.WithCause(errors.New("profile has no subject"))
	}
	email := auth.NormalizeEmail(profile.Email)
	if email == "" && b.opts.RequireEmail {
		return nil, ErrProviderProfileIncomplete
	}
	if email != "" && !profile.EmailVerified && b.opts.RequireVerifiedEmail {
		return nil, ErrEmailNotVerified
	}

	user, err := b.users.GetByExternalID(ctx, profile.Subject)
	switch {
	case err == nil:
		return b.returning(user)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperr.Internal(err)
	}

	if email == "" {
		return nil, ErrProviderProfileIncomplete
	}

	if _, err := b.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	return b.create(ctx, profile, email)
}

func (b *IdentityBroker) returning(user *models.User) (*Principal, error) {
	if !user.Active() {
		return nil, ErrAccountDisabled
	}
	principal, err := principalFromUser(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return principal, nil
}

func (b *IdentityBroker) create(ctx context.Context, profile *auth.ExternalProfile, email string) (*Principal, error) {
	subject := profile.Subject
	role := b.roles.Resolve(email)
	user := &models.User{
		ID:         bunx.NewUUIDv7(),
		ExternalID: &subject,
		Email:      email,
		Name:       profile.Name,
		AvatarURL:  profile.Picture,
		Role:       string(role),
		Provider:   string(auth.ProviderGoogle),
		CreatedAt:  time.Now().UTC(),
	}

	if err := b.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Internal(fmt.Errorf("create external principal: %w", err))
		}
		// A concurrent callback for the same subject won the insert.
		existing, lookupErr := b.users.GetByExternalID(ctx, subject)
		if lookupErr != nil {
			return nil, ErrEmailConflict.WithCause(err)
		}
		return b.returning(existing)
	}

	b.logger.Info().
		Str("user_id", user.ID).
		Str("role", user.Role).
		Str("provider", user.Provider).
		Msg("created principal from external profile")

	return principalFromUser(user)
}
