package documentdb

import (
	"cmp"
	"context"
	"slices"
	"sync"

	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// MemoryRepository is a process-local Repository. Every operation holds a
// single mutex, which gives it the same per-record atomicity as the database
// backends. It backs unit tests and the "memory" storage driver.
type MemoryRepository struct {
	mu       sync.Mutex
	seq      int64
	docs     map[documentdomain.DocKey]*memDoc
	statuses map[documentdomain.StatusKey]*memStatus
}

type memDoc struct {
	seq int64
	doc *documentdomain.Document
}

type memStatus struct {
	seq    int64
	status *documentdomain.Status
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		docs:     map[documentdomain.DocKey]*memDoc{},
		statuses: map[documentdomain.StatusKey]*memStatus{},
	}
}

func cloneDoc(d *documentdomain.Document) *documentdomain.Document {
	c := *d
	c.Fields = d.Fields.Clone()
	if d.ParentType != nil {
		pt := *d.ParentType
		c.ParentType = &pt
	}
	if d.ParentID != nil {
		pid := *d.ParentID
		c.ParentID = &pid
	}
	return &c
}

func cloneStatus(s *documentdomain.Status) *documentdomain.Status {
	c := *s
	c.Fields = s.Fields.Clone()
	return &c
}

func (m *MemoryRepository) InsertDocument(_ context.Context, doc *documentdomain.Document) error {
	fields, err := documentdomain.Normalize(doc.Fields)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := doc.Key()
	if _, ok := m.docs[key]; ok {
		return ErrDuplicate
	}
	stored := cloneDoc(doc)
	stored.Fields = fields
	m.seq++
	m.docs[key] = &memDoc{seq: m.seq, doc: stored}
	return nil
}

func (m *MemoryRepository) GetDocument(_ context.Context, key documentdomain.DocKey) (*documentdomain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDoc(d.doc), nil
}

func (m *MemoryRepository) selectDocs(domainID string, docType documentdomain.DocType, filter documentdomain.Filter) []*memDoc {
	var out []*memDoc
	for k, d := range m.docs {
		if k.DomainID != domainID || k.DocType != docType || !matchDocument(d.doc, filter) {
			continue
		}
		out = append(out, d)
	}
	sortBySeq(out, func(d *memDoc) int64 { return d.seq })
	return out
}

func (m *MemoryRepository) FindDocuments(_ context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter, opts documentdomain.FindOptions) ([]*documentdomain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.selectDocs(domainID, docType, filter)
	docs := make([]*documentdomain.Document, 0, len(matched))
	for _, d := range matched {
		docs = append(docs, cloneDoc(d.doc))
	}
	sortByFields(docs, func(d *documentdomain.Document) documentdomain.Fields { return d.Fields }, opts.Sort)
	return paginate(docs, opts), nil
}

func (m *MemoryRepository) CountDocuments(_ context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.selectDocs(domainID, docType, filter))), nil
}

func (m *MemoryRepository) mutateDoc(key documentdomain.DocKey, fn func(*documentdomain.Document) error) (*documentdomain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	next := cloneDoc(d.doc)
	if err := fn(next); err != nil {
		return nil, err
	}
	d.doc = next
	return cloneDoc(next), nil
}

func (m *MemoryRepository) UpdateDocument(_ context.Context, key documentdomain.DocKey, update documentdomain.Update) (*documentdomain.Document, error) {
	update, content, owner := splitColumns(update)
	return m.mutateDoc(key, func(doc *documentdomain.Document) error {
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

func (m *MemoryRepository) PushSub(_ context.Context, key documentdomain.DocKey, field string, sub documentdomain.Fields) (*documentdomain.Document, error) {
	return m.mutateDoc(key, func(doc *documentdomain.Document) error {
		fields, err := pushSub(doc.Fields, field, sub)
		if err != nil {
			return err
		}
		doc.Fields = fields
		return nil
	})
}

func (m *MemoryRepository) SetSub(_ context.Context, key documentdomain.DocKey, field, subID string, set documentdomain.Fields) (*documentdomain.Document, error) {
	return m.mutateDoc(key, func(doc *documentdomain.Document) error {
		fields, err := setSub(doc.Fields, field, subID, set)
		if err != nil {
			return err
		}
		doc.Fields = fields
		return nil
	})
}

func (m *MemoryRepository) DeleteSub(_ context.Context, key documentdomain.DocKey, field, subID string) (*documentdomain.Document, error) {
	return m.mutateDoc(key, func(doc *documentdomain.Document) error {
		fields, err := deleteSub(doc.Fields, field, subID)
		if err != nil {
			return err
		}
		doc.Fields = fields
		return nil
	})
}

func (m *MemoryRepository) DeleteDocument(_ context.Context, key documentdomain.DocKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[key]; !ok {
		return ErrNotFound
	}
	delete(m.docs, key)
	return nil
}

func (m *MemoryRepository) DeleteDocuments(_ context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.selectDocs(domainID, docType, filter)
	for _, d := range matched {
		delete(m.docs, d.doc.Key())
	}
	return int64(len(matched)), nil
}

func (m *MemoryRepository) GetStatus(_ context.Context, key documentdomain.StatusKey) (*documentdomain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStatus(s.status), nil
}

func (m *MemoryRepository) selectStatuses(domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) []*memStatus {
	var out []*memStatus
	for k, s := range m.statuses {
		if k.DomainID != domainID || k.DocType != docType || !matchStatus(s.status, filter) {
			continue
		}
		out = append(out, s)
	}
	sortBySeq(out, func(s *memStatus) int64 { return s.seq })
	return out
}

func (m *MemoryRepository) FindStatuses(_ context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter, opts documentdomain.FindOptions) ([]*documentdomain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.selectStatuses(domainID, docType, filter)
	out := make([]*documentdomain.Status, 0, len(matched))
	for _, s := range matched {
		out = append(out, cloneStatus(s.status))
	}
	sortByFields(out, func(s *documentdomain.Status) documentdomain.Fields { return s.Fields }, opts.Sort)
	return paginate(out, opts), nil
}

// upsertStatusLocked returns the live status record, creating it when absent.
func (m *MemoryRepository) upsertStatusLocked(key documentdomain.StatusKey) *memStatus {
	s, ok := m.statuses[key]
	if !ok {
		m.seq++
		s = &memStatus{seq: m.seq, status: &documentdomain.Status{
			DomainID: key.DomainID,
			DocType:  key.DocType,
			DocID:    key.DocID,
			UID:      key.UID,
			Fields:   documentdomain.Fields{},
		}}
		m.statuses[key] = s
	}
	return s
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, key documentdomain.StatusKey, update documentdomain.Update) (*documentdomain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.statuses[key]
	s := m.upsertStatusLocked(key)
	fields, err := ApplyUpdate(s.status.Fields, update)
	if err != nil {
		if !existed {
			delete(m.statuses, key)
		}
		return nil, err
	}
	s.status.Fields = fields
	return cloneStatus(s.status), nil
}

func (m *MemoryRepository) CappedIncStatus(_ context.Context, key documentdomain.StatusKey, field string, delta, min, max float64) (*documentdomain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current float64
	if s, ok := m.statuses[key]; ok {
		current = s.status.Fields.Float(field)
	}
	next := current + delta
	if next > max || next < min {
		return nil, ErrCappedIncRejected
	}
	s := m.upsertStatusLocked(key)
	s.status.Fields[field] = next
	return cloneStatus(s.status), nil
}

func (m *MemoryRepository) RevInitStatus(_ context.Context, key documentdomain.StatusKey) (*documentdomain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneStatus(m.upsertStatusLocked(key).status), nil
}

func (m *MemoryRepository) RevPushStatus(_ context.Context, key documentdomain.StatusKey, field string, value any) (*documentdomain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.statuses[key]
	s := m.upsertStatusLocked(key)
	fields, err := ApplyUpdate(s.status.Fields, documentdomain.Update{Push: map[string][]any{field: {value}}})
	if err != nil {
		if !existed {
			delete(m.statuses, key)
		}
		return nil, err
	}
	s.status.Fields = fields
	s.status.Rev++
	return cloneStatus(s.status), nil
}

func (m *MemoryRepository) RevSetStatus(_ context.Context, key documentdomain.StatusKey, expectedRev int64, set documentdomain.Fields) (*documentdomain.Status, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[key]
	if !ok || s.status.Rev != expectedRev {
		return nil, false, nil
	}
	fields, err := ApplyUpdate(s.status.Fields, documentdomain.Update{Set: set})
	if err != nil {
		return nil, false, err
	}
	s.status.Fields = fields
	s.status.Rev++
	return cloneStatus(s.status), true, nil
}

func (m *MemoryRepository) DeleteStatuses(_ context.Context, domainID string, docType documentdomain.DocType, filter documentdomain.StatusFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.selectStatuses(domainID, docType, filter)
	for _, s := range matched {
		delete(m.statuses, s.status.Key())
	}
	return int64(len(matched)), nil
}

func sortBySeq[T any](items []T, seq func(T) int64) {
	slices.SortFunc(items, func(a, b T) int { return cmp.Compare(seq(a), seq(b)) })
}
