package documentdb

import (
	"context"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// Repository defines the contract for document and status persistence.
// Every method is scoped by (domainId, docType) and is a single atomic
// operation against one record unless noted.
//
// Error semantics:
//   - ErrNotFound: the addressed record does not exist
//   - ErrDuplicate: insert collided with an existing (domainId, docType, docId)
//   - ErrCappedIncRejected: CappedIncStatus would leave [min, max]
//   - Other errors: infrastructure failures
type Repository interface {
	// InsertDocument stores a new document.
	InsertDocument(ctx context.Context, doc *documentdomain.Document) error

	// GetDocument loads one document.
	GetDocument(ctx context.Context, key documentdomain.DocKey) (*documentdomain.Document, error)

	// FindDocuments enumerates documents matching filter.
	FindDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter, opts documentdomain.FindOptions) ([]*documentdomain.Document, error)

	// CountDocuments counts documents matching filter.
	CountDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error)

	// UpdateDocument applies update and returns the post-update document.
	// The keys "content" and "owner" in update.Set address the document columns.
	UpdateDocument(ctx context.Context, key documentdomain.DocKey, update documentdomain.Update) (*documentdomain.Document, error)

	// PushSub appends sub (which must carry an "_id") to the array at field.
	PushSub(ctx context.Context, key documentdomain.DocKey, field string, sub documentdomain.Fields) (*documentdomain.Document, error)

	// SetSub merges set into the element of field whose "_id" is subID.
	// Returns ErrNotFound if the document or element is missing.
	SetSub(ctx context.Context, key documentdomain.DocKey, field, subID string, set documentdomain.Fields) (*documentdomain.Document, error)

	// DeleteSub removes the element of field whose "_id" is subID.
	DeleteSub(ctx context.Context, key documentdomain.DocKey, field, subID string) (*documentdomain.Document, error)

	// DeleteDocument removes one document. Statuses are left to the caller.
	DeleteDocument(ctx context.Context, key documentdomain.DocKey) error

	// DeleteDocuments removes every document matching filter.
	DeleteDocuments(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error)

	// GetStatus loads one status.
	GetStatus(ctx context.Context, key documentdomain.StatusKey) (*documentdomain.Status, error)

	// FindStatuses enumerates statuses matching filter.
	FindStatuses(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter, opts documentdomain.FindOptions) ([]*documentdomain.Status, error)

	// UpdateStatus upserts the status and applies update.
	UpdateStatus(ctx context.Context, key documentdomain.StatusKey, update documentdomain.Update) (*documentdomain.Status, error)

	// CappedIncStatus upserts the status and adds delta to field, provided the
	// result stays inside [min, max]. A missing field counts as zero.
	CappedIncStatus(ctx context.Context, key documentdomain.StatusKey, field string, delta, min, max float64) (*documentdomain.Status, error)

	// RevInitStatus creates the status with rev 0 when absent and returns it.
	RevInitStatus(ctx context.Context, key documentdomain.StatusKey) (*documentdomain.Status, error)

	// RevPushStatus upserts the status, appends value to the array at field
	// and increments rev, in one update.
	RevPushStatus(ctx context.Context, key documentdomain.StatusKey, field string, value any) (*documentdomain.Status, error)

	// RevSetStatus merges set and increments rev only when the stored rev equals
	// expectedRev. ok is false on a mismatch or a missing status; that is not an error.
	RevSetStatus(ctx context.Context, key documentdomain.StatusKey, expectedRev int64, set documentdomain.Fields) (status *documentdomain.Status, ok bool, err error)

	// DeleteStatuses removes every status matching filter.
	DeleteStatuses(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) (int64, error)
}
