package documentdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Impl implements Repository on Postgres using Bun.
type Impl struct {
	db bun.IDB
}

var _ Repository = (*Impl)(nil)

// NewRepository creates a Postgres-backed document repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == "23505"
	}
	return false
}

func whereDocKey(q bun.QueryBuilder, key documentdomain.DocKey) bun.QueryBuilder {
	return q.
		Where("domain_id = ?", key.DomainID).
		Where("doc_type = ?", int(key.DocType)).
		Where("doc_id = ?", string(key.DocID))
}

func applyDocumentFilter(q bun.QueryBuilder, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (bun.QueryBuilder, error) {
	q = q.Where("domain_id = ?", domainID).Where("doc_type = ?", int(docType))
	if len(filter.DocIDs) > 0 {
		ids := make([]string, len(filter.DocIDs))
		for i, id := range filter.DocIDs {
			ids[i] = string(id)
		}
		q = q.Where("doc_id IN (?)", bun.In(ids))
	}
	if filter.Owner != nil {
		q = q.Where("owner = ?", *filter.Owner)
	}
	if filter.ParentType != nil {
		q = q.Where("parent_type = ?", int(*filter.ParentType))
	}
	if filter.ParentID != nil {
		q = q.Where("parent_id = ?", string(*filter.ParentID))
	}
	return applyPayloadFilter(q, filter.Eq, filter.Contains)
}

func applyPayloadFilter(q bun.QueryBuilder, eq, contains map[string]any) (bun.QueryBuilder, error) {
	for field, v := range eq {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode filter %q: %w", field, err)
		}
		q = q.Where("data->? = ?::jsonb", field, string(raw))
	}
	for field, v := range contains {
		raw, err := json.Marshal([]any{v})
		if err != nil {
			return nil, fmt.Errorf("encode filter %q: %w", field, err)
		}
		q = q.Where("data->? @> ?::jsonb", field, string(raw))
	}
	return q, nil
}

func orderByPayload(q *bun.SelectQuery, sort []documentdomain.SortField) *bun.SelectQuery {
	for _, s := range sort {
		if s.Desc {
			q = q.OrderExpr("data->? DESC NULLS LAST", s.Field)
		} else {
			q = q.OrderExpr("data->? ASC NULLS LAST", s.Field)
		}
	}
	return q
}

func paginateQuery(q *bun.SelectQuery, opts documentdomain.FindOptions) *bun.SelectQuery {
	if opts.Skip > 0 {
		q = q.Offset(opts.Skip)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	return q
}

// InsertDocument stores a new document.
func (r *Impl) InsertDocument(ctx context.Context, doc *documentdomain.Document) error {
	data, err := documentdomain.Normalize(doc.Fields)
	if err != nil {
		return fmt.Errorf("documentdb.InsertDocument: %w", err)
	}
	row := documentRowFrom(doc, data)
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("documentdb.InsertDocument: %w", err)
	}
	return nil
}

// GetDocument loads one document.
func (r *Impl) GetDocument(ctx context.Context, key documentdomain.DocKey) (*documentdomain.Document, error) {
	row := new(DocumentRow)
	q := r.db.NewSelect().Model(row)
	whereDocKey(q.QueryBuilder(), key)
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("documentdb.GetDocument: %w", err)
	}
	return row.toDomain()
}

// FindDocuments enumerates documents matching filter.
func (r *Impl) FindDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter, opts documentdomain.FindOptions) ([]*documentdomain.Document, error) {
	var rows []DocumentRow
	q := r.db.NewSelect().Model(&rows)
	if _, err := applyDocumentFilter(q.QueryBuilder(), domainID, docType, filter); err != nil {
		return nil, fmt.Errorf("documentdb.FindDocuments: %w", err)
	}
	q = orderByPayload(q, opts.Sort).OrderExpr("created_at ASC, id ASC")
	if err := paginateQuery(q, opts).Scan(ctx); err != nil {
		return nil, fmt.Errorf("documentdb.FindDocuments: %w", err)
	}
	docs := make([]*documentdomain.Document, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// CountDocuments counts documents matching filter.
func (r *Impl) CountDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	q := r.db.NewSelect().Model((*DocumentRow)(nil))
	if _, err := applyDocumentFilter(q.QueryBuilder(), domainID, docType, filter); err != nil {
		return 0, fmt.Errorf("documentdb.CountDocuments: %w", err)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("documentdb.CountDocuments: %w", err)
	}
	return int64(n), nil
}

// mutateDocument locks the row, lets fn rewrite it, and stores the result.
func (r *Impl) mutateDocument(ctx context.Context, op string, key documentdomain.DocKey, fn func(*documentdomain.Document) error) (*documentdomain.Document, error) {
	var out *documentdomain.Document
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(DocumentRow)
		q := tx.NewSelect().Model(row).For("UPDATE")
		whereDocKey(q.QueryBuilder(), key)
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		doc, err := row.toDomain()
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		raw, err := json.Marshal(doc.Fields)
		if err != nil {
			return err
		}
		_, err = tx.NewUpdate().
			Model((*DocumentRow)(nil)).
			Set("content = ?", doc.Content).
			Set("owner = ?", doc.Owner).
			Set("data = ?::jsonb", string(raw)).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", row.ID).
			Exec(ctx)
		if err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidUpdate) {
			return nil, err
		}
		return nil, fmt.Errorf("documentdb.%s: %w", op, err)
	}
	return out, nil
}

// UpdateDocument applies update and returns the post-update document.
func (r *Impl) UpdateDocument(ctx context.Context, key documentdomain.DocKey, update documentdomain.Update) (*documentdomain.Document, error) {
	update, content, owner := splitColumns(update)
	return r.mutateDocument(ctx, "UpdateDocument", key, func(doc *documentdomain.Document) error {
		fields, err := ApplyUpdate(doc.Fields, update)
		if err != nil {
			return err
		}
		doc.Fields = fields
		if content != nil {
			doc.Content = *content
		}
		if owner != nil {
			doc.Owner = *owner
		}
		return nil
	})
}

// PushSub appends a sub-document.
func (r *Impl) PushSub(ctx context.Context, key documentdomain.DocKey, field string, sub documentdomain.Fields) (*documentdomain.Document, error) {
	return r.mutateDocument(ctx, "PushSub", key, func(doc *documentdomain.Document) error {
		fields, err := pushSub(doc.Fields, field, sub)
		if err != nil {
			return err
		}
		doc.Fields = fields
		return nil
	})
}

// SetSub merges fields into one sub-document.
func (r *Impl) SetSub(ctx context.Context, key documentdomain.DocKey, field, subID string, set documentdomain.Fields) (*documentdomain.Document, error) {
	return r.mutateDocument(ctx, "SetSub", key, func(doc *documentdomain.Document) error {
		fields, err := setSub(doc.Fields, field, subID, set)
		if err != nil {
			return err
		}
		doc.Fields = fields
		return nil
	})
}

// DeleteSub removes one sub-document.
func (r *Impl) DeleteSub(ctx context.Context, key documentdomain.DocKey, field, subID string) (*documentdomain.Document, error) {
	return r.mutateDocument(ctx, "DeleteSub", key, func(doc *documentdomain.Document) error {
		fields, err := deleteSub(doc.Fields, field, subID)
		if err != nil {
			return err
		}
		doc.Fields = fields
		return nil
	})
}

// DeleteDocument removes one document.
func (r *Impl) DeleteDocument(ctx context.Context, key documentdomain.DocKey) error {
	q := r.db.NewDelete().Model((*DocumentRow)(nil))
	whereDocKey(q.QueryBuilder(), key)
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("documentdb.DeleteDocument: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("documentdb.DeleteDocument: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocuments removes every matching document.
func (r *Impl) DeleteDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	q := r.db.NewDelete().Model((*DocumentRow)(nil))
	if _, err := applyDocumentFilter(q.QueryBuilder(), domainID, docType, filter); err != nil {
		return 0, fmt.Errorf("documentdb.DeleteDocuments: %w", err)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("documentdb.DeleteDocuments: %w", err)
	}
	return res.RowsAffected()
}
