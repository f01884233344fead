package problemservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
	"github.com/Black-And-White-Club/hydro/internal/observability/metrics"
	"github.com/Black-And-White-Club/hydro/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *ProblemService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	docs := documentservice.NewDocumentService(documentdb.NewMemoryRepository(), logger, metrics.NewNoop(), nil)
	return NewProblemService(docs, logger)
}

func TestAddAllocatesSequentialIDs(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	for want := int64(1); want <= 12; want++ {
		id, err := svc.Add(ctx, AddRequest{DomainID: "system", Title: "A+B", Owner: 1})
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	other, err := svc.Add(ctx, AddRequest{DomainID: "other", Title: "first"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), other, "ids are allocated per domain")
}

func TestAddValidatesAlias(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.Add(ctx, AddRequest{DomainID: "system", PID: "P1000", Title: "A"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		req   AddRequest
		field string
	}{
		{name: "numeric alias", req: AddRequest{DomainID: "system", PID: "42", Title: "B"}, field: "pid"},
		{name: "taken alias", req: AddRequest{DomainID: "system", PID: "P1000", Title: "B"}, field: "pid"},
		{name: "missing title", req: AddRequest{DomainID: "system"}, field: "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tt.req)
			var verr *validation.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestVerifyProblems(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	a, err := svc.Add(ctx, AddRequest{DomainID: "system", Title: "A"})
	require.NoError(t, err)
	b, err := svc.Add(ctx, AddRequest{DomainID: "system", PID: "B", Title: "B"})
	require.NoError(t, err)

	ids, err := svc.VerifyProblems(ctx, "system", []string{"B", "1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, ids)

	_, err = svc.VerifyProblems(ctx, "system", []string{"1", "Z"})
	var nf *ProblemNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Z", nf.PID)
}

func TestGetList(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	id, err := svc.Add(ctx, AddRequest{DomainID: "system", Title: "A"})
	require.NoError(t, err)

	list, err := svc.GetList(ctx, "system", []int64{id, 77}, false)
	require.NoError(t, err)
	assert.Equal(t, "A", list[id].Title)
	assert.True(t, list[77].Hidden)

	_, err = svc.GetList(ctx, "system", []int64{id, 77}, true)
	var nf *ProblemNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRecordSubmission(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	id, err := svc.Add(ctx, AddRequest{DomainID: "system", Title: "A"})
	require.NoError(t, err)

	require.NoError(t, svc.RecordSubmission(ctx, "system", id, false))
	require.NoError(t, svc.RecordSubmission(ctx, "system", id, true))

	p, err := svc.Get(ctx, "system", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.NSubmit)
	assert.Equal(t, int64(1), p.NAccept)

	var nf *ProblemNotFoundError
	require.ErrorAs(t, svc.RecordSubmission(ctx, "system", 99, true), &nf)
}
