package usermigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating users and domain_users tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS users (
					uid BIGINT PRIMARY KEY,
					uname TEXT NOT NULL UNIQUE,
					uname_lower TEXT NOT NULL UNIQUE,
					mail TEXT,
					avatar TEXT,
					school TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create users table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS domain_users (
					domain_id TEXT NOT NULL,
					uid BIGINT NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
					display_name TEXT,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (domain_id, uid)
				);
			`); err != nil {
				return fmt.Errorf("failed to create domain_users table: %w", err)
			}

			fmt.Println("User tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping user tables...")

		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS domain_users; DROP TABLE IF EXISTS users;`); err != nil {
			return fmt.Errorf("failed to drop user tables: %w", err)
		}

		fmt.Println("User tables dropped successfully!")
		return nil
	})
}
