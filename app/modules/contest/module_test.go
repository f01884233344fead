package contest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	contestqueue "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	started atomic.Int32
	stopped atomic.Int32
}

func (f *fakeQueue) EnqueueRecalc(context.Context, contestdomain.ContestRef) error { return nil }
func (f *fakeQueue) Bind(contestqueue.Recalculator) {}
func (f *fakeQueue) PendingJobs(context.Context, contestdomain.ContestRef) ([]contestqueue.JobInfo, error) {
	return nil, nil
}
func (f *fakeQueue) HealthCheck(context.Context) error { return nil }
func (f *fakeQueue) Start(context.Context) error {
	f.started.Add(1)
	return nil
}

func (f *fakeQueue) Stop(context.Context) error {
	f.stopped.Add(1)
	return nil
}

func newTestModule(q contestqueue.QueueService) *Module {
	return &Module{
		Queue:  q,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		stop:   make(chan struct{}),
	}
}

func TestModuleCloseStopsRun(t *testing.T) {
	q := &fakeQueue{}
	m := newTestModule(q)

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), &wg) }()

	require.Eventually(t, func() bool { return q.started.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Close(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
	wg.Wait()
	assert.Equal(t, int32(1), q.stopped.Load())
}

func TestModuleCloseBeforeRun(t *testing.T) {
	m := newTestModule(nil)

	require.NoError(t, m.Close(context.Background()))
	require.NoError(t, m.Close(context.Background()), "Close is idempotent")

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), nil) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run blocked on a closed module")
	}
}

func TestModuleRunReturnsOnContextCancel(t *testing.T) {
	m := newTestModule(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, nil) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run ignored context cancellation")
	}
}
