package documentdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/uptrace/bun"
)

func whereStatusKey(q bun.QueryBuilder, key documentdomain.StatusKey) bun.QueryBuilder {
	return whereDocKey(q, key.DocKey).Where("uid = ?", key.UID)
}

func applyStatusFilter(q bun.QueryBuilder, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) (bun.QueryBuilder, error) {
	q = q.Where("domain_id = ?", domainID).Where("doc_type = ?", int(docType))
	if len(filter.DocIDs) > 0 {
		ids := make([]string, len(filter.DocIDs))
		for i, id := range filter.DocIDs {
			ids[i] = string(id)
		}
		q = q.Where("doc_id IN (?)", bun.In(ids))
	}
	if len(filter.UIDs) > 0 {
		q = q.Where("uid IN (?)", bun.In(filter.UIDs))
	}
	return applyPayloadFilter(q, filter.Eq, nil)
}

// GetStatus loads one status.
func (r *Impl) GetStatus(ctx context.Context, key documentdomain.StatusKey) (*documentdomain.Status, error) {
	row := new(StatusRow)
	q := r.db.NewSelect().Model(row)
	whereStatusKey(q.QueryBuilder(), key)
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("documentdb.GetStatus: %w", err)
	}
	return row.toDomain()
}

// FindStatuses enumerates statuses matching filter.
func (r *Impl) FindStatuses(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter, opts documentdomain.FindOptions) ([]*documentdomain.Status, error) {
	var rows []StatusRow
	q := r.db.NewSelect().Model(&rows)
	if _, err := applyStatusFilter(q.QueryBuilder(), domainID, docType, filter); err != nil {
		return nil, fmt.Errorf("documentdb.FindStatuses: %w", err)
	}
	q = orderByPayload(q, opts.Sort).OrderExpr("created_at ASC, uid ASC")
	if err := paginateQuery(q, opts).Scan(ctx); err != nil {
		return nil, fmt.Errorf("documentdb.FindStatuses: %w", err)
	}
	out := make([]*documentdomain.Status, 0, len(rows))
	for i := range rows {
		st, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func insertStatusIfAbsent(ctx context.Context, db bun.IDB, key documentdomain.StatusKey) error {
	row := &StatusRow{
		DomainID: key.DomainID,
		DocType:  int(key.DocType),
		DocID:    string(key.DocID),
		UID:      key.UID,
		Data:     map[string]any{},
	}
	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (domain_id, doc_type, doc_id, uid) DO NOTHING").
		Exec(ctx)
	return err
}

// UpdateStatus upserts the status and applies update under a row lock.
func (r *Impl) UpdateStatus(ctx context.Context, key documentdomain.StatusKey, update documentdomain.Update) (*documentdomain.Status, error) {
	var out *documentdomain.Status
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := insertStatusIfAbsent(ctx, tx, key); err != nil {
			return err
		}
		row := new(StatusRow)
		q := tx.NewSelect().Model(row).For("UPDATE")
		whereStatusKey(q.QueryBuilder(), key)
		if err := q.Scan(ctx); err != nil {
			return err
		}
		st, err := row.toDomain()
		if err != nil {
			return err
		}
		fields, err := ApplyUpdate(st.Fields, update)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		uq := tx.NewUpdate().
			Model((*StatusRow)(nil)).
			Set("data = ?::jsonb", string(raw)).
			Set("updated_at = ?", time.Now().UTC())
		whereStatusKey(uq.QueryBuilder(), key)
		if _, err := uq.Exec(ctx); err != nil {
			return err
		}
		st.Fields = fields
		out = st
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidUpdate) {
			return nil, err
		}
		return nil, fmt.Errorf("documentdb.UpdateStatus: %w", err)
	}
	return out, nil
}

const cappedIncUpsertSQL = `
INSERT INTO document_status (domain_id, doc_type, doc_id, uid, rev, data)
VALUES (?, ?, ?, ?, 0, jsonb_build_object(?::text, ?::float8))
ON CONFLICT (domain_id, doc_type, doc_id, uid) DO UPDATE
SET data = jsonb_set(document_status.data, ARRAY[?::text], to_jsonb(COALESCE((document_status.data->>?)::float8, 0) + ?::float8)),
    updated_at = now()
WHERE COALESCE((document_status.data->>?)::float8, 0) + ?::float8 BETWEEN ?::float8 AND ?::float8
RETURNING *`

const cappedIncUpdateSQL = `
UPDATE document_status
SET data = jsonb_set(data, ARRAY[?::text], to_jsonb(COALESCE((data->>?)::float8, 0) + ?::float8)),
    updated_at = now()
WHERE domain_id = ? AND doc_type = ? AND doc_id = ? AND uid = ?
  AND COALESCE((data->>?)::float8, 0) + ?::float8 BETWEEN ?::float8 AND ?::float8
RETURNING *`

// CappedIncStatus performs the bounded increment in a single statement. When
// delta alone is out of range an absent row can never satisfy the bound, so
// only the conditional UPDATE is issued.
func (r *Impl) CappedIncStatus(ctx context.Context, key documentdomain.StatusKey, field string, delta, min, max float64) (*documentdomain.Status, error) {
	row := new(StatusRow)
	var err error
	if delta >= min && delta <= max {
		err = r.db.NewRaw(cappedIncUpsertSQL,
			key.DomainID, int(key.DocType), string(key.DocID), key.UID,
			field, delta,
			field, field, delta,
			field, delta, min, max,
		).Scan(ctx, row)
	} else {
		err = r.db.NewRaw(cappedIncUpdateSQL,
			field, field, delta,
			key.DomainID, int(key.DocType), string(key.DocID), key.UID,
			field, delta, min, max,
		).Scan(ctx, row)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCappedIncRejected
		}
		return nil, fmt.Errorf("documentdb.CappedIncStatus: %w", err)
	}
	return row.toDomain()
}

// RevInitStatus creates the status with rev 0 when absent.
func (r *Impl) RevInitStatus(ctx context.Context, key documentdomain.StatusKey) (*documentdomain.Status, error) {
	if err := insertStatusIfAbsent(ctx, r.db, key); err != nil {
		return nil, fmt.Errorf("documentdb.RevInitStatus: %w", err)
	}
	return r.GetStatus(ctx, key)
}

const revPushSQL = `
INSERT INTO document_status (domain_id, doc_type, doc_id, uid, rev, data)
VALUES (?, ?, ?, ?, 1, jsonb_build_object(?::text, jsonb_build_array(?::jsonb)))
ON CONFLICT (domain_id, doc_type, doc_id, uid) DO UPDATE
SET data = jsonb_set(document_status.data, ARRAY[?::text],
        COALESCE(document_status.data->?, '[]'::jsonb) || jsonb_build_array(?::jsonb)),
    rev = document_status.rev + 1,
    updated_at = now()
RETURNING *`

// RevPushStatus appends value and bumps rev in one upsert statement.
func (r *Impl) RevPushStatus(ctx context.Context, key documentdomain.StatusKey, field string, value any) (*documentdomain.Status, error) {
	norm, err := documentdomain.NormalizeValue(value)
	if err != nil {
		return nil, fmt.Errorf("documentdb.RevPushStatus: %w", err)
	}
	raw, err := json.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("documentdb.RevPushStatus: %w", err)
	}
	row := new(StatusRow)
	err = r.db.NewRaw(revPushSQL,
		key.DomainID, int(key.DocType), string(key.DocID), key.UID,
		field, string(raw),
		field, field, string(raw),
	).Scan(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("documentdb.RevPushStatus: %w", err)
	}
	return row.toDomain()
}

// RevSetStatus is a compare-and-swap on rev.
func (r *Impl) RevSetStatus(ctx context.Context, key documentdomain.StatusKey, expectedRev int64, set documentdomain.Fields) (*documentdomain.Status, bool, error) {
	norm, err := documentdomain.Normalize(set)
	if err != nil {
		return nil, false, fmt.Errorf("documentdb.RevSetStatus: %w", err)
	}
	raw, err := json.Marshal(norm)
	if err != nil {
		return nil, false, fmt.Errorf("documentdb.RevSetStatus: %w", err)
	}
	row := new(StatusRow)
	q := r.db.NewUpdate().
		Model(row).
		Set("data = data || ?::jsonb", string(raw)).
		Set("rev = rev + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("rev = ?", expectedRev).
		Returning("*")
	whereStatusKey(q.QueryBuilder(), key)
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("documentdb.RevSetStatus: %w", err)
	}
	st, err := row.toDomain()
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// DeleteStatuses removes every matching status.
func (r *Impl) DeleteStatuses(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) (int64, error) {
	q := r.db.NewDelete().Model((*StatusRow)(nil))
	if _, err := applyStatusFilter(q.QueryBuilder(), domainID, docType, filter); err != nil {
		return 0, fmt.Errorf("documentdb.DeleteStatuses: %w", err)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("documentdb.DeleteStatuses: %w", err)
	}
	return res.RowsAffected()
}
