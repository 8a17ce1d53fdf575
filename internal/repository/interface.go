package repository

import (
	"context"
	"time"

	"github.com/terraconstructs/campusapi/internal/db/models"
)

// UserRepository defines the data access interface for accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetRole(ctx context.Context, id string, role string) error
	SetDisabled(ctx context.Context, id string, disabled bool) error
	List(ctx context.Context) ([]*models.User, error)
}

// RevokedTokenRepository manages the persistent token denylist
type RevokedTokenRepository interface {
	// Create is idempotent: revoking an already revoked token is not an error.
	Create(ctx context.Context, token *models.RevokedToken) error
	IsRevoked(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
