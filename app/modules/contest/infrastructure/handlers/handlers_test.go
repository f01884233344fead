package contesthandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	GetFunc           func(ctx context.Context, k documentdomain.DocKey) (*contestdomain.Contest, error)
	GetScoreboardFunc func(ctx context.Context, k documentdomain.DocKey, opts contestservice.ScoreboardOptions) (*contestdomain.Table, error)

	keys []documentdomain.DocKey
	opts []contestservice.ScoreboardOptions
}

func (f *fakeReader) Get(ctx context.Context, k documentdomain.DocKey) (*contestdomain.Contest, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, k)
	}
	return &contestdomain.Contest{Title: "Weekly", Rule: "acm"}, nil
}

func (f *fakeReader) StatusText(*contestdomain.Contest) contestdomain.Phase {
	return contestdomain.PhaseOngoing
}

func (f *fakeReader) GetScoreboard(ctx context.Context, k documentdomain.DocKey, opts contestservice.ScoreboardOptions) (*contestdomain.Table, error) {
	f.keys = append(f.keys, k)
	f.opts = append(f.opts, opts)
	if f.GetScoreboardFunc != nil {
		return f.GetScoreboardFunc(ctx, k, opts)
	}
	return &contestdomain.Table{
		Header: contestdomain.Row{{Type: contestdomain.CellRank, Value: "Rank"}, {Type: contestdomain.CellUser, Value: "User"}},
		Rows:   []contestdomain.Row{{{Type: contestdomain.CellString, Value: "1"}, {Type: contestdomain.CellUser, Value: "alice"}}},
	}, nil
}

func newServer(reader ContestReader) http.Handler {
	r := chi.NewRouter()
	NewHandlers(reader, slog.New(slog.NewTextHandler(io.Discard, nil))).Routes(r)
	return r
}

func TestGetScoreboard(t *testing.T) {
	reader := &fakeReader{}
	rec := httptest.NewRecorder()
	newServer(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/d/system/contest/65f0/scoreboard?docType=homework", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body ScoreboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Weekly", body.Title)
	assert.Equal(t, contestdomain.PhaseOngoing, body.Phase)
	require.Len(t, body.Table.Rows, 1)

	require.Len(t, reader.keys, 1)
	assert.Equal(t, documentdomain.DocKey{DomainID: "system", DocType: documentdomain.TypeHomework, DocID: "65f0"}, reader.keys[0])
	assert.False(t, reader.opts[0].Override, "override is never granted over HTTP")
}

func TestGetScoreboardErrors(t *testing.T) {
	k := documentdomain.DocKey{DomainID: "system", DocType: documentdomain.TypeContest, DocID: "65f0"}
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "hidden", err: &contestservice.ContestScoreboardHiddenError{Key: k}, wantCode: http.StatusForbidden},
		{name: "missing", err: &contestservice.ContestNotFoundError{Key: k}, wantCode: http.StatusNotFound},
		{name: "infrastructure", err: errors.New("connection reset"), wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{
				GetScoreboardFunc: func(context.Context, documentdomain.DocKey, contestservice.ScoreboardOptions) (*contestdomain.Table, error) {
					return nil, tt.err
				},
			}
			rec := httptest.NewRecorder()
			newServer(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/d/system/contest/65f0/scoreboard", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.NotContains(t, rec.Body.String(), "connection reset", "internal errors are not leaked")
		})
	}
}

func TestExportScoreboard(t *testing.T) {
	reader := &fakeReader{}
	rec := httptest.NewRecorder()
	newServer(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/d/system/contest/65f0/scoreboard/export/csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "scoreboard-65f0.csv")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("Rank,User\n")))
	require.Len(t, reader.opts, 1)
	assert.True(t, reader.opts[0].IsExport)

	rec = httptest.NewRecorder()
	newServer(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/d/system/contest/65f0/scoreboard/export/pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
