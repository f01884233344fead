package problemservice

import (
	"context"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
)

// DocumentStore is the slice of the document service problems need.
type DocumentStore interface {
	Add(ctx context.Context, req documentservice.AddRequest) (documentdomain.DocID, error)
	Get(ctx context.Context, k documentdomain.DocKey) (*documentdomain.Document, error)
	GetMulti(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter, opts documentdomain.FindOptions) ([]*documentdomain.Document, error)
	Update(ctx context.Context, k documentdomain.DocKey, update documentdomain.Update) (*documentdomain.Document, error)
}
