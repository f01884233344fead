package documentmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Adding lookup and rank-order indexes for documents...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE INDEX IF NOT EXISTS idx_document_owner
					ON document (domain_id, doc_type, owner);
				CREATE INDEX IF NOT EXISTS idx_document_parent
					ON document (domain_id, doc_type, parent_type, parent_id)
					WHERE parent_type IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_document_rule
					ON document (domain_id, doc_type, (data->>'rule'))
					WHERE data->'rule' IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_document_begin_at
					ON document (domain_id, doc_type, (data->>'beginAt') DESC)
					WHERE data->'beginAt' IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_document_pids
					ON document USING GIN ((data->'pids'))
					WHERE data->'pids' IS NOT NULL;
			`); err != nil {
				return fmt.Errorf("failed to add document indexes: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE INDEX IF NOT EXISTS idx_document_status_uid
					ON document_status (domain_id, doc_type, uid);
				CREATE INDEX IF NOT EXISTS idx_document_status_score
					ON document_status (domain_id, doc_type, doc_id, (data->'score') DESC)
					WHERE data->'score' IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_document_status_accept_time
					ON document_status (domain_id, doc_type, doc_id, (data->'accept') DESC, (data->'time') ASC)
					WHERE data->'accept' IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_document_status_penalty_time
					ON document_status (domain_id, doc_type, doc_id, (data->'penaltyScore') DESC, (data->'time') ASC)
					WHERE data->'penaltyScore' IS NOT NULL;
			`); err != nil {
				return fmt.Errorf("failed to add document_status indexes: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping document indexes...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP INDEX IF EXISTS idx_document_owner;
				DROP INDEX IF EXISTS idx_document_parent;
				DROP INDEX IF EXISTS idx_document_rule;
				DROP INDEX IF EXISTS idx_document_begin_at;
				DROP INDEX IF EXISTS idx_document_pids;
				DROP INDEX IF EXISTS idx_document_status_uid;
				DROP INDEX IF EXISTS idx_document_status_score;
				DROP INDEX IF EXISTS idx_document_status_accept_time;
				DROP INDEX IF EXISTS idx_document_status_penalty_time;
			`); err != nil {
				return fmt.Errorf("failed to drop document indexes: %w", err)
			}
			return nil
		})
	})
}
