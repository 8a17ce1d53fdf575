package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/campusapi/internal/db/models"
)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new user. A duplicate email or external ID yields ErrConflict.
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.NewInsert().
		Model(user).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.Email, ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *BunUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by their normalized email
func (r *BunUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// GetByExternalID retrieves a user by the identity provider's subject
func (r *BunUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.getOne(ctx, "external_id = ?", externalID)
}

func (r *BunUserRepository) getOne(ctx context.Context, where string, arg string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where(where, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateLastLogin records a successful sign-in
func (r *BunUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("last_login_at = ?", at)
	})
}

// SetRole changes a user's role. Callers validate the role.
func (r *BunUserRepository) SetRole(ctx context.Context, id string, role string) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("role = ?", role)
	})
}

// SetDisabled disables or re-enables an account
func (r *BunUserRepository) SetDisabled(ctx context.Context, id string, disabled bool) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		if disabled {
			return q.Set("disabled_at = ?", time.Now().UTC())
		}
		return q.Set("disabled_at = NULL")
	})
}

func (r *BunUserRepository) update(ctx context.Context, id string, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id)

	result, err := set(q).Exec(ctx)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns all users ordered by email
func (r *BunUserRepository) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("email ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
