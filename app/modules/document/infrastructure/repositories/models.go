package documentdb

import (
	"time"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/uptrace/bun"
)

// DocumentRow is the Postgres row of a document. Type specific fields live in Data.
type DocumentRow struct {
	bun.BaseModel `bun:"table:document,alias:d"`

	ID         string         `bun:"id,pk"`
	DomainID   string         `bun:"domain_id,notnull"`
	DocType    int            `bun:"doc_type,notnull"`
	DocID      string         `bun:"doc_id,notnull"`
	Owner      int64          `bun:"owner,notnull"`
	Content    string         `bun:"content,notnull"`
	ParentType *int           `bun:"parent_type"`
	ParentID   *string        `bun:"parent_id"`
	Data       map[string]any `bun:"data,type:jsonb,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// StatusRow is the Postgres row of a per-user status.
type StatusRow struct {
	bun.BaseModel `bun:"table:document_status,alias:ds"`

	DomainID  string         `bun:"domain_id,pk"`
	DocType   int            `bun:"doc_type,pk"`
	DocID     string         `bun:"doc_id,pk"`
	UID       int64          `bun:"uid,pk"`
	Rev       int64          `bun:"rev,notnull"`
	Data      map[string]any `bun:"data,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func documentRowFrom(doc *documentdomain.Document, data documentdomain.Fields) *DocumentRow {
	row := &DocumentRow{
		ID:       doc.ID,
		DomainID: doc.DomainID,
		DocType:  int(doc.DocType),
		DocID:    string(doc.DocID),
		Owner:    doc.Owner,
		Content:  doc.Content,
		Data:     map[string]any(data),
	}
	if doc.ParentType != nil {
		pt := int(*doc.ParentType)
		row.ParentType = &pt
	}
	if doc.ParentID != nil {
		pid := string(*doc.ParentID)
		row.ParentID = &pid
	}
	return row
}

func (r *DocumentRow) toDomain() (*documentdomain.Document, error) {
	data, err := documentdomain.Normalize(r.Data)
	if err != nil {
		return nil, err
	}
	doc := &documentdomain.Document{
		ID:       r.ID,
		DomainID: r.DomainID,
		DocType:  documentdomain.DocType(r.DocType),
		DocID:    documentdomain.DocID(r.DocID),
		Owner:    r.Owner,
		Content:  r.Content,
		Fields:   data,
	}
	if r.ParentType != nil {
		pt := documentdomain.DocType(*r.ParentType)
		doc.ParentType = &pt
	}
	if r.ParentID != nil {
		pid := documentdomain.DocID(*r.ParentID)
		doc.ParentID = &pid
	}
	return doc, nil
}

func (r *StatusRow) toDomain() (*documentdomain.Status, error) {
	data, err := documentdomain.Normalize(r.Data)
	if err != nil {
		return nil, err
	}
	return &documentdomain.Status{
		DomainID: r.DomainID,
		DocType:  documentdomain.DocType(r.DocType),
		DocID:    documentdomain.DocID(r.DocID),
		UID:      r.UID,
		Rev:      r.Rev,
		Fields:   data,
	}, nil
}
