package iam

import (
	"fmt"
	"time"

	"github.com/terraconstructs/campusapi/internal/auth"
	"github.com/terraconstructs/campusapi/internal/db/models"
)

// Principal represents an authenticated identity.
//
// This struct is IMMUTABLE after construction. For bearer authentication it is
// built from the verified claims alone; Name, Provider and AvatarURL are then empty.
type Principal struct {
	// ID references users.id.
	ID string

	Email     string
	Name      string
	Role      auth.Role
	Provider  auth.Provider
	AvatarURL string

	// TokenID and ExpiresAt describe the bearer token that authenticated the
	// request (bearer authentication only).
	TokenID   string
	ExpiresAt time.Time

	// Token is the raw bearer token (bearer authentication only).
	Token string
	// Claims are the verified token claims (bearer authentication only).
	Claims *auth.TokenClaims
}

// Context returns the view of the principal stored on request contexts.
func (p *Principal) Context() auth.AuthenticatedPrincipal {
	return auth.AuthenticatedPrincipal{
		ID:        p.ID,
		Email:     p.Email,
		Role:      p.Role,
		TokenID:   p.TokenID,
		ExpiresAt: p.ExpiresAt,
	}
}

func principalFromUser(u *models.User) (*Principal, error) {
	role, err := auth.ParseRole(u.Role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return &Principal{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      role,
		Provider:  auth.Provider(u.Provider),
		AvatarURL: u.AvatarURL,
	}, nil
}

func principalFromClaims(claims *auth.TokenClaims, token string) *Principal {
	p := &Principal{
		ID:      claims.ID,
		Email:   claims.Email,
		Role:    claims.Role,
		TokenID: claims.RegisteredClaims.ID,
		Token:   token,
		Claims:  claims,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	return p
}
