package roundmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating round tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS rounds (
					id UUID PRIMARY KEY,
					start_time TIMESTAMPTZ NOT NULL,
					status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'COMPLETED')),
					completed_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_rounds_start_time ON rounds (start_time DESC);
			`); err != nil {
				return fmt.Errorf("failed to create rounds table: %w", err)
			}

			// At most one ACTIVE round at any instant.
			if _, err := tx.ExecContext(ctx, `
				CREATE UNIQUE INDEX IF NOT EXISTS rounds_single_active
				ON rounds ((status))
				WHERE status = 'ACTIVE';
			`); err != nil {
				return fmt.Errorf("failed to create single active index: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS round_participants (
					round_id UUID NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL,
					display_name TEXT,
					total_contribution BIGINT NOT NULL CHECK (total_contribution >= 0),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (round_id, user_id)
				);
				CREATE INDEX IF NOT EXISTS idx_round_participants_total
				ON round_participants (round_id, total_contribution DESC);
			`); err != nil {
				return fmt.Errorf("failed to create round_participants table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS round_audit_entries (
					id BIGSERIAL PRIMARY KEY,
					round_id UUID NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL,
					message TEXT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_round_audit_entries_round
				ON round_audit_entries (round_id, created_at, id);
			`); err != nil {
				return fmt.Errorf("failed to create round_audit_entries table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping round tables...")
		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS round_audit_entries;
			DROP TABLE IF EXISTS round_participants;
			DROP TABLE IF EXISTS rounds;
		`); err != nil {
			return fmt.Errorf("failed to drop round tables: %w", err)
		}
		return nil
	})
}
