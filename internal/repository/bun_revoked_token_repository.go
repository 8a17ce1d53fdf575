package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/campusapi/internal/db/models"
)

// BunRevokedTokenRepository implements RevokedTokenRepository using Bun ORM
type BunRevokedTokenRepository struct {
	db *bun.DB
}

// NewBunRevokedTokenRepository creates a new Bun-based revoked token repository
func NewBunRevokedTokenRepository(db *bun.DB) *BunRevokedTokenRepository {
	return &BunRevokedTokenRepository{db: db}
}

// Create adds a token hash to the denylist. Revoking twice keeps the first row.
func (r *BunRevokedTokenRepository) Create(ctx context.Context, token *models.RevokedToken) error {
	token.ExpiresAt = token.ExpiresAt.UTC()
	if token.RevokedAt.IsZero() {
		token.RevokedAt = time.Now().UTC()
	}

	_, err := r.db.NewInsert().
		Model(token).
		On("CONFLICT (token_hash) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create revoked token: %w", err)
	}
	return nil
}

// IsRevoked reports whether an unexpired denylist row exists for the hash
func (r *BunRevokedTokenRepository) IsRevoked(ctx context.Context, tokenHash string, now time.Time) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*models.RevokedToken)(nil)).
		Where("token_hash = ?", tokenHash).
		Where("expires_at > ?", now.UTC()).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}

// DeleteExpired removes rows whose token could no longer verify anyway
func (r *BunRevokedTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*models.RevokedToken)(nil)).
		Where("expires_at <= ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired revoked tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return n, nil
}

var _ RevokedTokenRepository = (*BunRevokedTokenRepository)(nil)
var _ UserRepository = (*BunUserRepository)(nil)

