package contestservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
	problemservice "github.com/Black-And-White-Club/hydro/app/modules/problem/application"
	userservice "github.com/Black-And-White-Club/hydro/app/modules/user/application"
	userdb "github.com/Black-And-White-Club/hydro/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/hydro/internal/observability/metrics"
	"github.com/Black-And-White-Club/hydro/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

const domain = "system"

var begin = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	docs     *documentservice.DocumentService
	problems *problemservice.ProblemService
	users    *userservice.UserService
	now      time.Time
	pids     []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	docs := documentservice.NewDocumentService(documentdb.NewMemoryRepository(), logger, metrics.NewNoop(), nil)
	f := &fixture{
		docs:     docs,
		problems: problemservice.NewProblemService(docs, logger),
		users:    userservice.NewUserService(userdb.NewMemoryRepository(), logger, metrics.NewNoop(), nil),
		now:      begin.Add(time.Hour),
	}
	for _, title := range []string{"A+B", "Sorting", "Paths"} {
		id, err := f.problems.Add(context.Background(), problemservice.AddRequest{DomainID: domain, Title: title, Owner: 1})
		require.NoError(t, err)
		f.pids = append(f.pids, strconv.FormatInt(id, 10))
	}
	return f
}

func (f *fixture) service(store DocumentStore, opts ...Option) *ContestService {
	if store == nil {
		store = f.docs
	}
	opts = append([]Option{WithClock(func() time.Time { return f.now })}, opts...)
	return NewContestService(
		store,
		f.problems,
		f.users,
		contestdomain.DefaultRegistry(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		opts...,
	)
}

func (f *fixture) addContest(t *testing.T, svc *ContestService, rule string) documentdomain.DocKey {
	t.Helper()
	tid, err := svc.Add(context.Background(), AddRequest{
		DomainID: domain,
		Owner:    1,
		Title:    "Weekly " + rule,
		Rule:     rule,
		BeginAt:  begin,
		EndAt:    begin.Add(5 * time.Hour),
		PIDs:     f.pids,
	})
	require.NoError(t, err)
	return documentdomain.DocKey{DomainID: domain, DocType: documentdomain.TypeContest, DocID: tid}
}

func submit(t *testing.T, svc *ContestService, k documentdomain.DocKey, uid, pid int64, at time.Duration, accept bool, score float64) *contestdomain.Status {
	t.Helper()
	st, err := svc.UpdateStatus(context.Background(), k, UpdateStatusRequest{
		UID:    uid,
		RID:    contestdomain.NewRecordID(begin.Add(at)),
		PID:    pid,
		Accept: accept,
		Score:  score,
	})
	require.NoError(t, err)
	return st
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	since := begin.Add(2 * time.Hour)
	before := begin.Add(-time.Hour)

	valid := func() AddRequest {
		return AddRequest{
			DomainID: domain,
			Title:    "Round 1",
			Rule:     "acm",
			BeginAt:  begin,
			EndAt:    begin.Add(time.Hour),
			PIDs:     f.pids,
		}
	}

	tests := []struct {
		name         string
		mutate       func(*AddRequest)
		wantField    string
		wantNotFound bool
	}{
		{name: "missing title", mutate: func(r *AddRequest) { r.Title = "" }, wantField: "title"},
		{name: "title too long", mutate: func(r *AddRequest) { r.Title = string(make([]rune, 65)) }, wantField: "title"},
		{name: "no problems", mutate: func(r *AddRequest) { r.PIDs = nil }, wantField: "pids"},
		{name: "unknown rule", mutate: func(r *AddRequest) { r.Rule = "ioi" }, wantField: "rule"},
		{name: "end before begin", mutate: func(r *AddRequest) { r.EndAt = r.BeginAt }, wantField: "endAt"},
		{
			name: "homework document with acm rule",
			mutate: func(r *AddRequest) {
				r.DocType = documentdomain.TypeHomework
			},
			wantField: "rule",
		},
		{
			name: "homework penalty before begin",
			mutate: func(r *AddRequest) {
				r.DocType = documentdomain.TypeHomework
				r.Rule = "homework"
				r.EndAt = begin.Add(3 * time.Hour)
				r.PenaltySince = &before
			},
			wantField: "penaltySince",
		},
		{
			name:         "unknown problem",
			mutate:       func(r *AddRequest) { r.PIDs = []string{f.pids[0], "9999"} },
			wantNotFound: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			_, err := svc.Add(context.Background(), req)
			require.Error(t, err)
			if tt.wantField != "" {
				var verr *validation.ValidationError
				require.True(t, errors.As(err, &verr), "got %v", err)
				assert.Contains(t, verr.Fields, tt.wantField)
			}
			if tt.wantNotFound {
				var nf *problemservice.ProblemNotFoundError
				assert.ErrorAs(t, err, &nf)
			}
		})
	}

	t.Run("valid homework", func(t *testing.T) {
		req := valid()
		req.DocType = documentdomain.TypeHomework
		req.Rule = "homework"
		req.EndAt = begin.Add(3 * time.Hour)
		req.PenaltySince = &since
		req.PenaltyRules = contestdomain.PenaltyRules{"0": 1, "24": 0.5}
		_, err := svc.Add(context.Background(), req)
		require.NoError(t, err)
	})

	count, err := svc.Count(context.Background(), domain, documentdomain.TypeContest, documentdomain.Filter{})
	require.NoError(t, err)
	assert.Zero(t, count, "failed validation must not write")
}

func TestAddAndGet(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	ctx := context.Background()

	tid, err := svc.Add(ctx, AddRequest{
		DomainID: domain,
		Owner:    7,
		Title:    "Monthly",
		Content:  "Good luck",
		Rule:     "oi",
		BeginAt:  begin.Add(1500 * time.Millisecond).In(time.FixedZone("UTC+8", 8*3600)),
		EndAt:    begin.Add(2 * time.Hour),
		PIDs:     []string{f.pids[2], f.pids[0], f.pids[2]},
	})
	require.NoError(t, err)

	c, err := svc.Get(ctx, documentdomain.DocKey{DomainID: domain, DocType: documentdomain.TypeContest, DocID: tid})
	require.NoError(t, err)
	assert.Equal(t, "Monthly", c.Title)
	assert.Equal(t, "Good luck", c.Content)
	assert.Equal(t, int64(7), c.Owner)
	assert.True(t, begin.Add(time.Second).Equal(c.BeginAt), "got %s", c.BeginAt)
	assert.Equal(t, time.UTC, c.BeginAt.Location())
	assert.Equal(t, []int64{3, 1}, c.PIDs)
	assert.Zero(t, c.Attend)

	_, err = svc.Get(ctx, documentdomain.DocKey{DomainID: domain, DocType: documentdomain.TypeContest, DocID: "missing"})
	var nf *ContestNotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = svc.Get(ctx, documentdomain.DocKey{DomainID: domain, DocType: documentdomain.TypeProblem, DocID: "1"})
	require.ErrorAs(t, err, &nf, "non-contest doc types are not contests")
}

func TestAttendIsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	pub := &FakePublisher{}
	svc := f.service(nil, WithEvents(pub))
	k := f.addContest(t, svc, "acm")

	const callers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Attend(context.Background(), k, 42)
			mu.Lock()
			defer mu.Unlock()
			var already *ContestAlreadyAttendedError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &already):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, rejected)

	c, err := svc.Get(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Attend)

	st, err := svc.GetStatus(context.Background(), k, 42)
	require.NoError(t, err)
	assert.True(t, st.Attend)
	assert.Equal(t, []string{contestdomain.ContestAttendedV1}, pub.Topics())
}

func TestAttendMissingContest(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	err := svc.Attend(context.Background(), documentdomain.DocKey{DomainID: domain, DocType: documentdomain.TypeContest, DocID: "nope"}, 2)
	var nf *ContestNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestUpdateStatusRequiresAttend(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	k := f.addContest(t, svc, "acm")

	_, err := svc.UpdateStatus(context.Background(), k, UpdateStatusRequest{UID: 3, RID: contestdomain.NewRecordID(begin), PID: 1})
	var notAttended *ContestNotAttendedError
	require.ErrorAs(t, err, &notAttended)
	assert.Equal(t, int64(3), notAttended.UID)

	st, err := svc.GetStatus(context.Background(), k, 3)
	require.NoError(t, err)
	assert.Nil(t, st, "a rejected update must not create a status")
}

func TestUpdateStatusRejectsMalformedRecordID(t *testing.T) {
	tests := []struct {
		name string
		rid  string
	}{
		{name: "empty", rid: ""},
		{name: "not hex", rid: "not-an-objectid"},
		{name: "short", rid: "65e1a2b3c4d5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := f.service(nil)
			k := f.addContest(t, svc, "acm")
			require.NoError(t, svc.Attend(context.Background(), k, 5))

			_, err := svc.UpdateStatus(context.Background(), k, UpdateStatusRequest{UID: 5, RID: tt.rid, PID: 1, Accept: true, Score: 100})
			var verr *validation.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, "rid")

			st, err := svc.GetStatus(context.Background(), k, 5)
			require.NoError(t, err)
			require.NotNil(t, st)
			assert.Empty(t, st.Journal, "a rejected update must not append")
			assert.Zero(t, st.Stat.Accept)
		})
	}
}

func TestUpdateStatusACM(t *testing.T) {
	f := newFixture(t)
	pub := &FakePublisher{}
	cache := NewFakeCache()
	svc := f.service(nil, WithEvents(pub), WithCache(cache))
	k := f.addContest(t, svc, "acm")
	require.NoError(t, svc.Attend(context.Background(), k, 5))

	submit(t, svc, k, 5, 1, 10*time.Minute, false, 0)
	submit(t, svc, k, 5, 1, 30*time.Minute, true, 100)
	st := submit(t, svc, k, 5, 2, 40*time.Minute, true, 100)

	assert.Equal(t, int64(2), st.Stat.Accept)
	assert.Equal(t, int64(5400), st.Stat.Time)
	assert.Len(t, st.Journal, 3)

	payload, ok := pub.Last(contestdomain.ContestStatusUpdatedV1)
	require.True(t, ok)
	updated := payload.(contestdomain.ContestStatusUpdatedPayload)
	assert.True(t, updated.Applied)
	assert.Equal(t, int64(2), updated.PID)
	assert.Equal(t, st.Rev, updated.Rev)
	assert.Contains(t, cache.Trace(), "Invalidate")
}

func TestUpdateStatusRejudge(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	k := f.addContest(t, svc, "acm")
	require.NoError(t, svc.Attend(context.Background(), k, 5))

	rid := contestdomain.NewRecordID(begin.Add(20 * time.Minute))
	_, err := svc.UpdateStatus(context.Background(), k, UpdateStatusRequest{UID: 5, RID: rid, PID: 1, Accept: true, Score: 100})
	require.NoError(t, err)
	st, err := svc.UpdateStatus(context.Background(), k, UpdateStatusRequest{UID: 5, RID: rid, PID: 1, Accept: false})
	require.NoError(t, err)

	assert.Zero(t, st.Stat.Accept, "the rejudged verdict replaces the first one")
	assert.Len(t, st.Journal, 2)
}

func TestUpdateStatusCountsProblemSubmissions(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	k := f.addContest(t, svc, "acm")
	require.NoError(t, svc.Attend(context.Background(), k, 5))

	rejected := contestdomain.NewRecordID(begin.Add(10 * time.Minute))
	_, err := svc.UpdateStatus(context.Background(), k, UpdateStatusRequest{UID: 5, RID: rejected, PID: 1})
	require.NoError(t, err)
	submit(t, svc, k, 5, 1, 20*time.Minute, true, 100)
	_, err = svc.UpdateStatus(context.Background(), k, UpdateStatusRequest{UID: 5, RID: rejected, PID: 1, Accept: true, Score: 100})
	require.NoError(t, err)

	p, err := f.problems.Get(context.Background(), domain, f.pids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.NSubmit, "a rejudge is not a new submission")
	assert.Equal(t, int64(1), p.NAccept)

	// A verdict for a problem that no longer exists still lands in the journal.
	st, err := svc.UpdateStatus(context.Background(), k, UpdateStatusRequest{UID: 5, RID: contestdomain.NewRecordID(begin.Add(30 * time.Minute)), PID: 99})
	require.NoError(t, err)
	assert.Len(t, st.Journal, 4)
}

func TestRecalcStatusKeepsConcurrentAppend(t *testing.T) {
	f := newFixture(t)
	store := &racingStore{DocumentService: f.docs}
	pub := &FakePublisher{}
	svc := f.service(store, WithEvents(pub))
	k := f.addContest(t, svc, "acm")
	require.NoError(t, svc.Attend(context.Background(), k, 9))
	submit(t, svc, k, 9, 1, 10*time.Minute, true, 100)

	raced := contestdomain.JournalEntry{RID: contestdomain.NewRecordID(begin.Add(20 * time.Minute)), PID: 2, Accept: true, Score: 100}
	store.BeforeRevSet = func(ctx context.Context, sk documentdomain.StatusKey, _ int64) {
		store.BeforeRevSet = nil
		_, err := f.docs.RevPushStatus(ctx, sk, contestdomain.JournalField, raced)
		require.NoError(t, err)
	}

	res, err := svc.RecalcStatus(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, RecalcResult{Applied: 0, Skipped: 1}, res)

	st, err := svc.GetStatus(context.Background(), k, 9)
	require.NoError(t, err)
	require.Len(t, st.Journal, 2)
	assert.Equal(t, raced, st.Journal[1], "the concurrent append survives the recalculation")
	assert.Equal(t, int64(1), st.Stat.Accept, "the stale aggregate waits for the next pass")

	res, err = svc.RecalcStatus(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, RecalcResult{Applied: 1}, res)

	st, err = svc.GetStatus(context.Background(), k, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Stat.Accept)

	payload, ok := pub.Last(contestdomain.ContestRecalculatedV1)
	require.True(t, ok)
	assert.Equal(t, 1, payload.(contestdomain.ContestRecalculatedPayload).Applied)
}

func TestRecalcStatusIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	k := f.addContest(t, svc, "oi")
	for uid := int64(2); uid < 6; uid++ {
		require.NoError(t, svc.Attend(context.Background(), k, uid))
		submit(t, svc, k, uid, 1, time.Duration(uid)*time.Minute, true, float64(uid*10))
	}

	before, err := svc.GetMultiStatus(context.Background(), k, documentdomain.StatusFilter{}, documentdomain.FindOptions{})
	require.NoError(t, err)
	_, err = svc.RecalcStatus(context.Background(), k)
	require.NoError(t, err)
	after, err := svc.GetMultiStatus(context.Background(), k, documentdomain.StatusFilter{}, documentdomain.FindOptions{})
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Stat, after[i].Stat)
		assert.Equal(t, before[i].Journal, after[i].Journal)
	}
}

func TestEditRecalculatesInline(t *testing.T) {
	f := newFixture(t)
	pub := &FakePublisher{}
	cache := NewFakeCache()
	svc := f.service(nil, WithEvents(pub), WithCache(cache))
	k := f.addContest(t, svc, "acm")
	require.NoError(t, svc.Attend(context.Background(), k, 5))
	submit(t, svc, k, 5, 1, 30*time.Minute, true, 100)

	newBegin := begin.Add(10 * time.Minute)
	c, err := svc.Edit(context.Background(), k, EditRequest{BeginAt: &newBegin})
	require.NoError(t, err)
	assert.True(t, newBegin.Equal(c.BeginAt))

	st, err := svc.GetStatus(context.Background(), k, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20*60), st.Stat.Time, "times are measured from the new beginAt")

	payload, ok := pub.Last(contestdomain.ContestEditedV1)
	require.True(t, ok)
	edited := payload.(contestdomain.ContestEditedPayload)
	assert.Equal(t, []string{"beginAt"}, edited.Changed)
	assert.True(t, edited.Recalc)
	assert.Contains(t, cache.Trace(), "Invalidate")

	stored, err := svc.Get(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Attend, "edit keeps the attendance counter")
}

func TestEditQueuesRecalc(t *testing.T) {
	f := newFixture(t)
	queue := &FakeQueue{}
	svc := f.service(nil, WithQueue(queue))
	k := f.addContest(t, svc, "acm")
	require.NoError(t, svc.Attend(context.Background(), k, 5))
	submit(t, svc, k, 5, 1, 30*time.Minute, true, 100)

	title := "Renamed"
	_, err := svc.Edit(context.Background(), k, EditRequest{Title: &title})
	require.NoError(t, err)
	assert.Empty(t, queue.refs, "a title change does not touch scores")

	rule := "oi"
	_, err = svc.Edit(context.Background(), k, EditRequest{Rule: &rule, PIDs: []string{f.pids[0]}})
	require.NoError(t, err)
	assert.Equal(t, []contestdomain.ContestRef{contestdomain.RefOf(k)}, queue.refs)

	st, err := svc.GetStatus(context.Background(), k, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Stat.Accept, "queued recalculation leaves the aggregate for the worker")

	c, err := svc.Get(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, "oi", c.Rule)
	assert.Equal(t, []int64{1}, c.PIDs)
}

func TestEditRecalculatesInlineWhenEnqueueFails(t *testing.T) {
	f := newFixture(t)
	pub := &FakePublisher{}
	cache := NewFakeCache()
	queue := &FakeQueue{EnqueueRecalcFunc: func(context.Context, contestdomain.ContestRef) error {
		return errors.New("queue unavailable")
	}}
	svc := f.service(nil, WithEvents(pub), WithCache(cache), WithQueue(queue))
	k := f.addContest(t, svc, "acm")
	require.NoError(t, svc.Attend(context.Background(), k, 5))
	submit(t, svc, k, 5, 1, 30*time.Minute, true, 100)

	newBegin := begin.Add(10 * time.Minute)
	_, err := svc.Edit(context.Background(), k, EditRequest{BeginAt: &newBegin})
	require.NoError(t, err, "a stored edit is not reported as failed")
	assert.Len(t, queue.refs, 1)

	st, err := svc.GetStatus(context.Background(), k, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20*60), st.Stat.Time, "the inline pass applied the new beginAt")
	assert.Contains(t, cache.Trace(), "Invalidate")

	payload, ok := pub.Last(contestdomain.ContestEditedV1)
	require.True(t, ok)
	assert.True(t, payload.(contestdomain.ContestEditedPayload).Recalc)
}

func TestEditValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	k := f.addContest(t, svc, "acm")

	end := begin.Add(-time.Minute)
	_, err := svc.Edit(context.Background(), k, EditRequest{EndAt: &end})
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)

	c, err := svc.Get(context.Background(), k)
	require.NoError(t, err)
	assert.Equal(t, begin.Add(5*time.Hour), c.EndAt, "rejected edit leaves the contest alone")
}

func TestDeleteCascadesStatuses(t *testing.T) {
	f := newFixture(t)
	cache := NewFakeCache()
	svc := f.service(nil, WithCache(cache))
	k := f.addContest(t, svc, "acm")
	other := f.addContest(t, svc, "oi")
	require.NoError(t, svc.Attend(context.Background(), k, 5))
	require.NoError(t, svc.Attend(context.Background(), other, 5))

	require.NoError(t, svc.Delete(context.Background(), k))

	_, err := svc.Get(context.Background(), k)
	var nf *ContestNotFoundError
	require.ErrorAs(t, err, &nf)
	st, err := svc.GetStatus(context.Background(), k, 5)
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = svc.GetStatus(context.Background(), other, 5)
	require.NoError(t, err)
	assert.NotNil(t, st)
	assert.Equal(t, []string{"Invalidate"}, cache.Trace())
}

func TestGetRelatedAndListStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	ctx := context.Background()
	a := f.addContest(t, svc, "acm")
	tid, err := svc.Add(ctx, AddRequest{
		DomainID: domain, Title: "Only C", Rule: "acm",
		BeginAt: begin.Add(24 * time.Hour), EndAt: begin.Add(25 * time.Hour),
		PIDs: []string{f.pids[2]},
	})
	require.NoError(t, err)
	b := documentdomain.DocKey{DomainID: domain, DocType: documentdomain.TypeContest, DocID: tid}

	related, err := svc.GetRelated(ctx, domain, documentdomain.TypeContest, 1)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, a.DocID, related[0].DocID)

	related, err = svc.GetRelated(ctx, domain, documentdomain.TypeContest, 3)
	require.NoError(t, err)
	require.Len(t, related, 2)
	assert.Equal(t, b.DocID, related[0].DocID, "newest contest first")

	require.NoError(t, svc.Attend(ctx, b, 8))
	list, err := svc.GetListStatus(ctx, domain, documentdomain.TypeContest, 8, []documentdomain.DocID{a.DocID, b.DocID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, list[b.DocID].Attend)
}

func TestGetScoreboard(t *testing.T) {
	f := newFixture(t)
	cache := NewFakeCache()
	svc := f.service(nil, WithCache(cache))
	k := f.addContest(t, svc, "acm")

	for _, uid := range []int64{2, 3, 4} {
		require.NoError(t, svc.Attend(context.Background(), k, uid))
	}
	submit(t, svc, k, 2, 1, 10*time.Minute, true, 100)
	submit(t, svc, k, 3, 1, 5*time.Minute, true, 100)
	submit(t, svc, k, 3, 2, 15*time.Minute, true, 100)

	table, err := svc.GetScoreboard(context.Background(), k, ScoreboardOptions{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "1", table.Rows[0][0].Value)
	assert.Equal(t, int64(3), table.Rows[0][1].Raw)
	assert.Equal(t, int64(2), table.Rows[1][1].Raw)
	assert.Equal(t, "Unknown User 4", table.Rows[2][1].Value, "unknown users get a placeholder")
	assert.Equal(t, []string{"Get", "Generation", "Set"}, cache.Trace()[len(cache.Trace())-3:])

	cached, err := svc.GetScoreboard(context.Background(), k, ScoreboardOptions{})
	require.NoError(t, err)
	assert.Same(t, table, cached)

	translated, err := svc.GetScoreboard(context.Background(), k, ScoreboardOptions{Translate: func(s string) string { return "[" + s + "]" }})
	require.NoError(t, err)
	assert.Equal(t, "[Rank]", translated.Header[0].Value)
	assert.NotSame(t, table, translated)
}

func TestGetScoreboardDropsRenderOverlappingInvalidation(t *testing.T) {
	f := newFixture(t)
	cache := NewFakeCache()
	svc := f.service(nil, WithCache(cache))
	k := f.addContest(t, svc, "acm")
	require.NoError(t, svc.Attend(context.Background(), k, 2))

	// A verdict lands after the render read the statuses but before it is cached.
	var once sync.Once
	cache.BeforeSet = func(contestdomain.ContestRef) {
		once.Do(func() { submit(t, svc, k, 2, 1, 10*time.Minute, true, 100) })
	}

	stale, err := svc.GetScoreboard(context.Background(), k, ScoreboardOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stale.Rows[0][2].Raw)

	fresh, err := svc.GetScoreboard(context.Background(), k, ScoreboardOptions{})
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh, "the overlapping render must not be served from cache")
	assert.Equal(t, int64(1), fresh.Rows[0][2].Raw)

	cached, err := svc.GetScoreboard(context.Background(), k, ScoreboardOptions{})
	require.NoError(t, err)
	assert.Same(t, fresh, cached)
}

func TestGetScoreboardHidden(t *testing.T) {
	f := newFixture(t)
	svc := f.service(nil)
	k := f.addContest(t, svc, "oi")

	c, err := svc.Get(context.Background(), k)
	require.NoError(t, err)
	assert.False(t, svc.CanShowScoreboard(c))
	assert.False(t, svc.CanShowRecord(c))
	assert.Equal(t, contestdomain.PhaseOngoing, svc.StatusText(c))

	_, err = svc.GetScoreboard(context.Background(), k, ScoreboardOptions{})
	var hidden *ContestScoreboardHiddenError
	require.ErrorAs(t, err, &hidden)

	table, err := svc.GetScoreboard(context.Background(), k, ScoreboardOptions{Override: true})
	require.NoError(t, err)
	assert.Empty(t, table.Rows)

	f.now = begin.Add(5 * time.Hour)
	assert.True(t, svc.CanShowScoreboard(c))
	assert.True(t, svc.IsDone(c))
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	pub := &FakePublisher{PublishFunc: func(context.Context, string, any) error { return errors.New("nats down") }}
	svc := f.service(nil, WithEvents(pub))
	k := f.addContest(t, svc, "acm")

	require.NoError(t, svc.Attend(context.Background(), k, 11))
	assert.Equal(t, []string{contestdomain.ContestAttendedV1}, pub.Topics())
}
