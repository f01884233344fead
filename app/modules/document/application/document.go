package documentservice

import (
	"context"
	"errors"
	"fmt"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
)

// AddRequest describes a new document. DocID is generated when empty.
type AddRequest struct {
	DomainID   string
	DocType    documentdomain.DocType
	DocID      documentdomain.DocID
	Content    string
	Owner      int64
	ParentType *documentdomain.DocType
	ParentID   *documentdomain.DocID
	Fields     documentdomain.Fields
}

// Add stores a new document and returns its docId.
func (s *DocumentService) Add(ctx context.Context, req AddRequest) (documentdomain.DocID, error) {
	return withTelemetry(s, ctx, "Add", req.DomainID, func(ctx context.Context) (documentdomain.DocID, error) {
		if (req.ParentType == nil) != (req.ParentID == nil) {
			return "", ErrParentMismatch
		}
		fields, err := documentdomain.Normalize(req.Fields)
		if err != nil {
			return "", err
		}
		doc := &documentdomain.Document{
			DomainID:   req.DomainID,
			DocType:    req.DocType,
			DocID:      req.DocID,
			Owner:      req.Owner,
			Content:    req.Content,
			ParentType: req.ParentType,
			ParentID:   req.ParentID,
			Fields:     fields,
		}
		if doc.DocID == "" {
			doc.DocID = documentdomain.NewDocID()
			doc.ID = string(doc.DocID)
		} else {
			doc.ID = string(documentdomain.NewDocID())
		}
		if err := s.repo.InsertDocument(ctx, doc); err != nil {
			return "", err
		}
		return doc.DocID, nil
	})
}

// nilIfMissing maps ErrNotFound to a nil result.
func nilIfMissing[T any](v *T, err error) (*T, error) {
	if errors.Is(err, documentdb.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// Get returns the document or nil when it does not exist.
func (s *DocumentService) Get(ctx context.Context, k documentdomain.DocKey) (*documentdomain.Document, error) {
	return withTelemetry(s, ctx, "Get", k.String(), func(ctx context.Context) (*documentdomain.Document, error) {
		return nilIfMissing(s.repo.GetDocument(ctx, k))
	})
}

// Update applies an arbitrary update; nil when the document does not exist.
func (s *DocumentService) Update(ctx context.Context, k documentdomain.DocKey, update documentdomain.Update) (*documentdomain.Document, error) {
	return withTelemetry(s, ctx, "Update", k.String(), func(ctx context.Context) (*documentdomain.Document, error) {
		if update.Set != nil {
			set, err := documentdomain.Normalize(update.Set)
			if err != nil {
				return nil, err
			}
			update.Set = set
		}
		return nilIfMissing(s.repo.UpdateDocument(ctx, k, update))
	})
}

// Set merges fields and returns the post-update document, nil if not found.
func (s *DocumentService) Set(ctx context.Context, k documentdomain.DocKey, set documentdomain.Fields) (*documentdomain.Document, error) {
	return s.Update(ctx, k, documentdomain.Update{Set: set})
}

// Inc adds n to a numeric field.
func (s *DocumentService) Inc(ctx context.Context, k documentdomain.DocKey, field string, n float64) (*documentdomain.Document, error) {
	return s.Update(ctx, k, documentdomain.Update{Inc: map[string]float64{field: n}})
}

// IncAndSet adds n to field and merges set in the same update.
func (s *DocumentService) IncAndSet(ctx context.Context, k documentdomain.DocKey, field string, n float64, set documentdomain.Fields) (*documentdomain.Document, error) {
	return s.Update(ctx, k, documentdomain.Update{Inc: map[string]float64{field: n}, Set: set})
}

// Pull removes every element equal to one of values from the array at field.
func (s *DocumentService) Pull(ctx context.Context, k documentdomain.DocKey, field string, values ...any) (*documentdomain.Document, error) {
	return s.Update(ctx, k, documentdomain.Update{Pull: map[string][]any{field: normalizeAll(values)}})
}

// AddToSet appends the values not already present in the array at field.
func (s *DocumentService) AddToSet(ctx context.Context, k documentdomain.DocKey, field string, values ...any) (*documentdomain.Document, error) {
	return s.Update(ctx, k, documentdomain.Update{AddToSet: map[string][]any{field: normalizeAll(values)}})
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		nv, err := documentdomain.NormalizeValue(v)
		if err != nil {
			nv = v
		}
		out[i] = nv
	}
	return out
}

// Push appends a sub-document {_id, content, owner, fields...} to the array at
// field and returns the document and the new sub-document id.
func (s *DocumentService) Push(ctx context.Context, k documentdomain.DocKey, field, content string, owner int64, fields documentdomain.Fields) (*documentdomain.Document, string, error) {
	type pushed struct {
		doc   *documentdomain.Document
		subID string
	}
	res, err := withTelemetry(s, ctx, "Push", k.String(), func(ctx context.Context) (pushed, error) {
		sub, err := documentdomain.Normalize(fields)
		if err != nil {
			return pushed{}, err
		}
		subID := string(documentdomain.NewDocID())
		sub[documentdomain.SubIDField] = subID
		sub["content"] = content
		sub["owner"] = float64(owner)
		doc, err := s.repo.PushSub(ctx, k, field, sub)
		if err != nil {
			if errors.Is(err, documentdb.ErrNotFound) {
				return pushed{}, &DocumentNotFoundError{Key: k}
			}
			return pushed{}, err
		}
		return pushed{doc: doc, subID: subID}, nil
	})
	return res.doc, res.subID, err
}

// GetSub returns the document and the sub-document with subID, both nil when
// either is missing.
func (s *DocumentService) GetSub(ctx context.Context, k documentdomain.DocKey, field, subID string) (*documentdomain.Document, documentdomain.Fields, error) {
	doc, err := s.Get(ctx, k)
	if err != nil || doc == nil {
		return nil, nil, err
	}
	for _, el := range doc.Fields.Array(field) {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := m[documentdomain.SubIDField].(string); id == subID {
			return doc, documentdomain.Fields(m), nil
		}
	}
	return nil, nil, nil
}

// SetSub merges set into one sub-document; nil when it does not exist.
func (s *DocumentService) SetSub(ctx context.Context, k documentdomain.DocKey, field, subID string, set documentdomain.Fields) (*documentdomain.Document, error) {
	return withTelemetry(s, ctx, "SetSub", k.String(), func(ctx context.Context) (*documentdomain.Document, error) {
		norm, err := documentdomain.Normalize(set)
		if err != nil {
			return nil, err
		}
		return nilIfMissing(s.repo.SetSub(ctx, k, field, subID, norm))
	})
}

// DeleteSub removes one sub-document; nil when the document does not exist.
func (s *DocumentService) DeleteSub(ctx context.Context, k documentdomain.DocKey, field, subID string) (*documentdomain.Document, error) {
	return withTelemetry(s, ctx, "DeleteSub", k.String(), func(ctx context.Context) (*documentdomain.Document, error) {
		return nilIfMissing(s.repo.DeleteSub(ctx, k, field, subID))
	})
}

// DeleteOne removes a document. Removing a missing document is not an error.
func (s *DocumentService) DeleteOne(ctx context.Context, k documentdomain.DocKey) error {
	_, err := withTelemetry(s, ctx, "DeleteOne", k.String(), func(ctx context.Context) (struct{}, error) {
		err := s.repo.DeleteDocument(ctx, k)
		if err != nil && !errors.Is(err, documentdb.ErrNotFound) {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}

// DeleteMulti removes every matching document and returns how many were removed.
func (s *DocumentService) DeleteMulti(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	return withTelemetry(s, ctx, "DeleteMulti", domainID, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteDocuments(ctx, domainID, docType, filter)
	})
}

// Count counts matching documents.
func (s *DocumentService) Count(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	return withTelemetry(s, ctx, "Count", domainID, func(ctx context.Context) (int64, error) {
		return s.repo.CountDocuments(ctx, domainID, docType, filter)
	})
}

// GetMulti enumerates matching documents.
func (s *DocumentService) GetMulti(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter, opts documentdomain.FindOptions) ([]*documentdomain.Document, error) {
	return withTelemetry(s, ctx, "GetMulti", domainID, func(ctx context.Context) ([]*documentdomain.Document, error) {
		docs, err := s.repo.FindDocuments(ctx, domainID, docType, filter, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to find documents: %w", err)
		}
		return docs, nil
	})
}
