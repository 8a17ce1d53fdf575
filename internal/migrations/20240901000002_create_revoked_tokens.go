package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/campusapi/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20240901000002, down_20240901000002)
}

// up_20240901000002 creates revoked_tokens for the database revocation backend
func up_20240901000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating revoked_tokens table...")

	_, err := db.NewCreateTable().
		Model((*models.RevokedToken)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create revoked_tokens table: %w", err)
	}

	// Sweeper deletes by expiry
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens(expires_at)`)
	if err != nil {
		return fmt.Errorf("failed to create revoked_tokens expires_at index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20240901000002 drops revoked_tokens
func down_20240901000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping revoked_tokens table...")

	_, err := db.NewDropTable().
		Model((*models.RevokedToken)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop revoked_tokens table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
