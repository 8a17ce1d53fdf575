package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/terraconstructs/campusapi/internal/db/models"
)

// RevokedTokenStore persists denylist rows.
type RevokedTokenStore interface {
	Create(ctx context.Context, token *models.RevokedToken) error
	IsRevoked(ctx context.Context, tokenHash string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// DatabaseRevocationList stores revoked token hashes in the revoked_tokens table.
// Expired rows read as absent and are removed by Sweep.
type DatabaseRevocationList struct {
	store RevokedTokenStore
	now   func() time.Time
}

// NewDatabaseRevocationList wraps a revoked token repository.
func NewDatabaseRevocationList(store RevokedTokenStore, now func() time.Time) *DatabaseRevocationList {
	if now == nil {
		now = time.Now
	}
	return &DatabaseRevocationList{store: store, now: now}
}

func (l *DatabaseRevocationList) Backend() string { return "database" }

func (l *DatabaseRevocationList) Revoke(ctx context.Context, token string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	now := l.now()
	row := &models.RevokedToken{
		TokenHash: HashToken(token),
		Subject:   unverifiedSubject(token),
		ExpiresAt: now.Add(remaining),
		RevokedAt: now,
		Reason:    revocationReason(ctx),
	}
	if err := l.store.Create(ctx, row); err != nil {
		return fmt.Errorf("database revoke: %w", err)
	}
	return nil
}

func (l *DatabaseRevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	revoked, err := l.store.IsRevoked(ctx, HashToken(token), l.now())
	if err != nil {
		return false, fmt.Errorf("database revocation lookup: %w", err)
	}
	return revoked, nil
}

// Sweep removes expired rows once.
func (l *DatabaseRevocationList) Sweep(ctx context.Context) (int64, error) {
	return l.store.DeleteExpired(ctx, l.now())
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (l *DatabaseRevocationList) RunSweeper(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.Sweep(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("revoked token sweep failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("deleted", n).Msg("swept expired revoked tokens")
			}
		}
	}
}
