package documentmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating document and document_status tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS document (
					id TEXT PRIMARY KEY,
					domain_id TEXT NOT NULL,
					doc_type SMALLINT NOT NULL,
					doc_id TEXT NOT NULL,
					owner BIGINT NOT NULL DEFAULT 0,
					content TEXT NOT NULL DEFAULT '',
					parent_type SMALLINT,
					parent_id TEXT,
					data JSONB NOT NULL DEFAULT '{}'::jsonb,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT uq_document_key UNIQUE (domain_id, doc_type, doc_id),
					CONSTRAINT ck_document_parent CHECK ((parent_type IS NULL) = (parent_id IS NULL))
				);
			`); err != nil {
				return fmt.Errorf("failed to create document table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS document_status (
					domain_id TEXT NOT NULL,
					doc_type SMALLINT NOT NULL,
					doc_id TEXT NOT NULL,
					uid BIGINT NOT NULL,
					rev BIGINT NOT NULL DEFAULT 0,
					data JSONB NOT NULL DEFAULT '{}'::jsonb,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (domain_id, doc_type, doc_id, uid)
				);
			`); err != nil {
				return fmt.Errorf("failed to create document_status table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping document and document_status tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS document_status;`); err != nil {
				return fmt.Errorf("failed to drop document_status table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS document;`); err != nil {
				return fmt.Errorf("failed to drop document table: %w", err)
			}
			return nil
		})
	})
}
