package contestservice

import (
	"context"
	"sync"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
)

// FakePublisher records published events.
type FakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent

	PublishFunc func(ctx context.Context, topic string, payload any) error
}

type publishedEvent struct {
	Topic   string
	Payload any
}

func (f *FakePublisher) Publish(ctx context.Context, topic string, payload any) error {
	f.mu.Lock()
	f.events = append(f.events, publishedEvent{Topic: topic, Payload: payload})
	f.mu.Unlock()
	if f.PublishFunc != nil {
		return f.PublishFunc(ctx, topic, payload)
	}
	return nil
}

func (f *FakePublisher) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Topic)
	}
	return out
}

func (f *FakePublisher) Last(topic string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Topic == topic {
			return f.events[i].Payload, true
		}
	}
	return nil, false
}

// FakeCache is an in-memory ScoreboardCache.
type FakeCache struct {
	mu          sync.Mutex
	tables      map[cacheKey]*contestdomain.Table
	gens        map[contestdomain.ContestRef]int64
	trace       []string
	invalidated int

	// BeforeSet runs outside the lock before Set compares generations.
	BeforeSet func(ref contestdomain.ContestRef)
}

type cacheKey struct {
	ref      contestdomain.ContestRef
	isExport bool
}

func NewFakeCache() *FakeCache {
	return &FakeCache{
		tables: map[cacheKey]*contestdomain.Table{},
		gens:   map[contestdomain.ContestRef]int64{},
	}
}

func (f *FakeCache) Get(_ context.Context, ref contestdomain.ContestRef, isExport bool) (*contestdomain.Table, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Get")
	t, ok := f.tables[cacheKey{ref, isExport}]
	return t, ok, nil
}

func (f *FakeCache) Generation(_ context.Context, ref contestdomain.ContestRef) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Generation")
	return f.gens[ref], nil
}

func (f *FakeCache) Set(_ context.Context, ref contestdomain.ContestRef, isExport bool, gen int64, table *contestdomain.Table) (bool, error) {
	if f.BeforeSet != nil {
		f.BeforeSet(ref)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Set")
	if f.gens[ref] != gen {
		return false, nil
	}
	f.tables[cacheKey{ref, isExport}] = table
	return true, nil
}

func (f *FakeCache) Invalidate(_ context.Context, ref contestdomain.ContestRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, "Invalidate")
	f.invalidated++
	f.gens[ref]++
	delete(f.tables, cacheKey{ref, false})
	delete(f.tables, cacheKey{ref, true})
	return nil
}

func (f *FakeCache) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

// FakeQueue records enqueued recalculations.
type FakeQueue struct {
	mu   sync.Mutex
	refs []contestdomain.ContestRef

	EnqueueRecalcFunc func(ctx context.Context, ref contestdomain.ContestRef) error
}

func (f *FakeQueue) EnqueueRecalc(ctx context.Context, ref contestdomain.ContestRef) error {
	f.mu.Lock()
	f.refs = append(f.refs, ref)
	f.mu.Unlock()
	if f.EnqueueRecalcFunc != nil {
		return f.EnqueueRecalcFunc(ctx, ref)
	}
	return nil
}

// racingStore lets a test run code between a status read and the revisioned
// write that follows it.
type racingStore struct {
	*documentservice.DocumentService

	BeforeRevSet func(ctx context.Context, k documentdomain.StatusKey, rev int64)
}

func (r *racingStore) RevSetStatus(ctx context.Context, k documentdomain.StatusKey, rev int64, set documentdomain.Fields) (*documentdomain.Status, bool, error) {
	if r.BeforeRevSet != nil {
		r.BeforeRevSet(ctx, k, rev)
	}
	return r.DocumentService.RevSetStatus(ctx, k, rev, set)
}
