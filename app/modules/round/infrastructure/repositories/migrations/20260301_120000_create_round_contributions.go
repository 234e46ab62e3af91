package roundmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating round_contributions table...")
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS round_contributions (
				id BIGSERIAL PRIMARY KEY,
				round_id UUID NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
				user_id BIGINT NOT NULL,
				amount BIGINT NOT NULL CHECK (amount > 0),
				created_at TIMESTAMPTZ NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_round_contributions_user
			ON round_contributions (user_id, created_at DESC, id DESC);
		`); err != nil {
			return fmt.Errorf("failed to create round_contributions table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping round_contributions table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS round_contributions;`); err != nil {
			return fmt.Errorf("failed to drop round_contributions table: %w", err)
		}
		return nil
	})
}
