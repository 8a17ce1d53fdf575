package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/campusapi/internal/db/bunx"
	"github.com/terraconstructs/campusapi/internal/db/models"
	"github.com/terraconstructs/campusapi/internal/migrations"
)

// setupTestDB opens an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := bunx.NewDB(ctx, ":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bunx.Close(db) })

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func strPtr(s string) *string { return &s }

func newUser(email string) *models.User {
	return &models.User{
		ID:       bunx.NewUUIDv7(),
		Email:    email,
		Name:     "Test User",
		Role:     "student",
		Provider: "local",
	}
}

func TestBunUserRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	user := newUser("jane@school.edu")
	user.PasswordHash = strPtr("$2a$10$hash")
	require.NoError(t, repo.Create(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	t.Run("by id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "jane@school.edu", got.Email)
		assert.True(t, got.HasPassword())
		assert.True(t, got.Active())
	})

	t.Run("by email", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "jane@school.edu")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, "nobody@school.edu")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repo.GetByExternalID(ctx, "google-123")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := repo.Create(ctx, newUser("jane@school.edu"))
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestBunUserRepository_ExternalID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	// Several local users without an external ID must coexist.
	require.NoError(t, repo.Create(ctx, newUser("a@school.edu")))
	require.NoError(t, repo.Create(ctx, newUser("b@school.edu")))

	google := newUser("c@staff.edu")
	google.ExternalID = strPtr("google-123")
	google.Provider = "google"
	google.Role = "staff"
	require.NoError(t, repo.Create(ctx, google))

	got, err := repo.GetByExternalID(ctx, "google-123")
	require.NoError(t, err)
	assert.Equal(t, google.ID, got.ID)
	assert.Equal(t, "staff", got.Role)
	assert.False(t, got.HasPassword())

	dup := newUser("d@staff.edu")
	dup.ExternalID = strPtr("google-123")
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrConflict)
}

func TestBunUserRepository_Updates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	user := newUser("jane@school.edu")
	require.NoError(t, repo.Create(ctx, user))

	at := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))
	require.NoError(t, repo.SetRole(ctx, user.ID, "admin"))
	require.NoError(t, repo.SetDisabled(ctx, user.ID, true))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))
	assert.Equal(t, "admin", got.Role)
	assert.False(t, got.Active())

	require.NoError(t, repo.SetDisabled(ctx, user.ID, false))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Active())

	assert.ErrorIs(t, repo.SetRole(ctx, "missing", "admin"), ErrNotFound)
}

func TestBunUserRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("zed@school.edu")))
	require.NoError(t, repo.Create(ctx, newUser("amy@school.edu")))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amy@school.edu", users[0].Email)
	assert.Equal(t, "zed@school.edu", users[1].Email)
}

func TestBunRevokedTokenRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBunRevokedTokenRepository(db)
	ctx := context.Background()

	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	live := &models.RevokedToken{TokenHash: "aaaa", Subject: "u1", ExpiresAt: now.Add(time.Hour), Reason: "logout"}
	stale := &models.RevokedToken{TokenHash: "bbbb", Subject: "u2", ExpiresAt: now.Add(-time.Minute), Reason: "logout"}

	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	again := &models.RevokedToken{TokenHash: "aaaa", Subject: "u1", ExpiresAt: now.Add(time.Hour), Reason: "admin"}
	require.NoError(t, repo.Create(ctx, again), "revoking twice is not an error")

	revoked, err := repo.IsRevoked(ctx, "aaaa", now)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.IsRevoked(ctx, "bbbb", now)
	require.NoError(t, err)
	assert.False(t, revoked, "expired rows are ignored before the sweep")

	revoked, err = repo.IsRevoked(ctx, "cccc", now)
	require.NoError(t, err)
	assert.False(t, revoked)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
