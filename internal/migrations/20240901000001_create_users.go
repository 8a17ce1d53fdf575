package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/campusapi/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20240901000001, down_20240901000001)
}

// up_20240901000001 creates the users table
func up_20240901000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email)`)
	if err != nil {
		return fmt.Errorf("failed to create users email index: %w", err)
	}

	if IsPostgreSQL(db) {
		_, err = db.ExecContext(ctx, `ALTER TABLE users ADD CONSTRAINT chk_users_role CHECK (role IN ('admin', 'staff', 'student'))`)
		if err != nil {
			return fmt.Errorf("failed to add users role check: %w", err)
		}
	}
	fmt.Println(" OK")

	return nil
}

// down_20240901000001 drops the users table
func down_20240901000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping users table...")
	_, err := db.NewDropTable().
		Model((*models.User)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop users table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
