package contestservice

import (
	"context"

	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	problemdomain "github.com/Black-And-White-Club/hydro/app/modules/problem/domain"
	userdomain "github.com/Black-And-White-Club/hydro/app/modules/user/domain"
)

// DocumentStore is the part of the document service contests use.
type DocumentStore interface {
	Add(ctx context.Context, req documentservice.AddRequest) (documentdomain.DocID, error)
	Get(ctx context.Context, k documentdomain.DocKey) (*documentdomain.Document, error)
	Set(ctx context.Context, k documentdomain.DocKey, set documentdomain.Fields) (*documentdomain.Document, error)
	Inc(ctx context.Context, k documentdomain.DocKey, field string, n float64) (*documentdomain.Document, error)
	DeleteOne(ctx context.Context, k documentdomain.DocKey) error
	Count(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error)
	GetMulti(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter, opts documentdomain.FindOptions) ([]*documentdomain.Document, error)

	GetStatus(ctx context.Context, k documentdomain.StatusKey) (*documentdomain.Status, error)
	GetMultiStatus(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter, opts documentdomain.FindOptions) ([]*documentdomain.Status, error)
	CappedIncStatus(ctx context.Context, k documentdomain.StatusKey, field string, delta, min, max float64) (*documentdomain.Status, error)
	RevPushStatus(ctx context.Context, k documentdomain.StatusKey, field string, value any) (*documentdomain.Status, error)
	RevSetStatus(ctx context.Context, k documentdomain.StatusKey, rev int64, set documentdomain.Fields) (*documentdomain.Status, bool, error)
	DeleteMultiStatus(ctx context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) (int64, error)
}

// ProblemDirectory resolves problem references.
type ProblemDirectory interface {
	VerifyProblems(ctx context.Context, domainID string, refs []string) ([]int64, error)
	GetList(ctx context.Context, domainID string, pids []int64, strict bool) (map[int64]*problemdomain.Problem, error)
	RecordSubmission(ctx context.Context, domainID string, pid int64, accepted bool) error
}

// UserDirectory resolves uids for display.
type UserDirectory interface {
	GetList(ctx context.Context, domainID string, uids []int64) (map[int64]*userdomain.User, error)
}

// EventPublisher publishes contest lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// ScoreboardCache stores rendered scoreboards. Invalidate bumps the contest's
// generation; Set stores a table only while gen is still the current one, so a
// render that overlapped an invalidation is dropped instead of cached.
type ScoreboardCache interface {
	Get(ctx context.Context, ref contestdomain.ContestRef, isExport bool) (*contestdomain.Table, bool, error)
	Generation(ctx context.Context, ref contestdomain.ContestRef) (int64, error)
	Set(ctx context.Context, ref contestdomain.ContestRef, isExport bool, gen int64, table *contestdomain.Table) (bool, error)
	Invalidate(ctx context.Context, ref contestdomain.ContestRef) error
}

// RecalcQueue schedules background recalculation.
type RecalcQueue interface {
	EnqueueRecalc(ctx context.Context, ref contestdomain.ContestRef) error
}
