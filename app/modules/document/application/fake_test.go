package documentservice

import (
	"context"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
)

// ------------------------
// Fake Document Repo
// ------------------------

// FakeDocumentRepo delegates to an in-memory repository unless a Func is set.
type FakeDocumentRepo struct {
	*documentdb.MemoryRepository
	trace []string

	InsertDocumentFunc  func(ctx context.Context, doc *documentdomain.Document) error
	GetDocumentFunc     func(ctx context.Context, key documentdomain.DocKey) (*documentdomain.Document, error)
	UpdateDocumentFunc  func(ctx context.Context, key documentdomain.DocKey, update documentdomain.Update) (*documentdomain.Document, error)
	CappedIncStatusFunc func(ctx context.Context, key documentdomain.StatusKey, field string, delta, min, max float64) (*documentdomain.Status, error)
	RevSetStatusFunc    func(ctx context.Context, key documentdomain.StatusKey, expectedRev int64, set documentdomain.Fields) (*documentdomain.Status, bool, error)
}

func NewFakeDocumentRepo() *FakeDocumentRepo {
	return &FakeDocumentRepo{
		MemoryRepository: documentdb.NewMemoryRepository(),
		trace:            []string{},
	}
}

func (f *FakeDocumentRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeDocumentRepo) InsertDocument(ctx context.Context, doc *documentdomain.Document) error {
	f.record("InsertDocument")
	if f.InsertDocumentFunc != nil {
		return f.InsertDocumentFunc(ctx, doc)
	}
	return f.MemoryRepository.InsertDocument(ctx, doc)
}

func (f *FakeDocumentRepo) GetDocument(ctx context.Context, key documentdomain.DocKey) (*documentdomain.Document, error) {
	f.record("GetDocument")
	if f.GetDocumentFunc != nil {
		return f.GetDocumentFunc(ctx, key)
	}
	return f.MemoryRepository.GetDocument(ctx, key)
}

func (f *FakeDocumentRepo) UpdateDocument(ctx context.Context, key documentdomain.DocKey, update documentdomain.Update) (*documentdomain.Document, error) {
	f.record("UpdateDocument")
	if f.UpdateDocumentFunc != nil {
		return f.UpdateDocumentFunc(ctx, key, update)
	}
	return f.MemoryRepository.UpdateDocument(ctx, key, update)
}

func (f *FakeDocumentRepo) CappedIncStatus(ctx context.Context, key documentdomain.StatusKey, field string, delta, min, max float64) (*documentdomain.Status, error) {
	f.record("CappedIncStatus")
	if f.CappedIncStatusFunc != nil {
		return f.CappedIncStatusFunc(ctx, key, field, delta, min, max)
	}
	return f.MemoryRepository.CappedIncStatus(ctx, key, field, delta, min, max)
}

func (f *FakeDocumentRepo) RevSetStatus(ctx context.Context, key documentdomain.StatusKey, expectedRev int64, set documentdomain.Fields) (*documentdomain.Status, bool, error) {
	f.record("RevSetStatus")
	if f.RevSetStatusFunc != nil {
		return f.RevSetStatusFunc(ctx, key, expectedRev, set)
	}
	return f.MemoryRepository.RevSetStatus(ctx, key, expectedRev, set)
}

// --- Accessors for assertions ---

func (f *FakeDocumentRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ documentdb.Repository = (*FakeDocumentRepo)(nil)
