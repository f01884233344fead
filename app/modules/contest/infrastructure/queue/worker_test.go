package contestqueue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecalculator struct {
	calls []documentdomain.DocKey
	res   contestservice.RecalcResult
	err   error
}

func (f *fakeRecalculator) RecalcStatus(_ context.Context, k documentdomain.DocKey) (contestservice.RecalcResult, error) {
	f.calls = append(f.calls, k)
	return f.res, f.err
}

func newJob(args RecalcContestArgs) *river.Job[RecalcContestArgs] {
	return &river.Job[RecalcContestArgs]{JobRow: &rivertype.JobRow{ID: 7}, Args: args}
}

func TestRecalcWorker(t *testing.T) {
	ref := contestdomain.ContestRef{DomainID: "system", DocType: documentdomain.TypeContest, ContestID: "65f0c0ffee"}
	args := argsFor(ref)

	tests := []struct {
		name       string
		bind       bool
		recalcErr  error
		wantErr    error
		wantCalls  int
		wantCancel bool
	}{
		{name: "unbound worker fails", wantErr: ErrNotBound},
		{name: "runs recalculation", bind: true, wantCalls: 1},
		{name: "infrastructure error is retried", bind: true, recalcErr: errors.New("mongo down"), wantCalls: 1},
		{
			name:       "deleted contest cancels the job",
			bind:       true,
			recalcErr:  &contestservice.ContestNotFoundError{Key: ref.Key()},
			wantCalls:  1,
			wantCancel: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewRecalcWorker(slog.New(slog.NewTextHandler(io.Discard, nil)))
			fake := &fakeRecalculator{err: tt.recalcErr, res: contestservice.RecalcResult{Applied: 3}}
			if tt.bind {
				w.Bind(fake)
			}

			err := w.Work(context.Background(), newJob(args))

			assert.Len(t, fake.calls, tt.wantCalls)
			if tt.wantCalls > 0 {
				assert.Equal(t, ref.Key(), fake.calls[0])
			}
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantCancel:
				var notFound *contestservice.ContestNotFoundError
				require.ErrorAs(t, err, &notFound)
			case tt.recalcErr != nil:
				require.ErrorIs(t, err, tt.recalcErr)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestArgsRoundTrip(t *testing.T) {
	ref := contestdomain.ContestRef{DomainID: "d", DocType: documentdomain.TypeHomework, ContestID: "abc"}
	args := argsFor(ref)
	assert.Equal(t, "contest_recalc", args.Kind())
	assert.Equal(t, ref, args.Ref())
}
