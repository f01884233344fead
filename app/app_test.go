package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	problemservice "github.com/Black-And-White-Club/hydro/app/modules/problem/application"
	"github.com/Black-And-White-Club/hydro/config"
	"github.com/Black-And-White-Club/hydro/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		HTTP:    config.HTTPConfig{Addr: ":0"},
		Contest: config.ContestConfig{
			UpcomingLead: time.Hour,
			Rules:        []string{"acm", "oi", "homework"},
		},
	}
	obs := observability.Init(observability.Config{ServiceName: "hydro-test", Output: &bytes.Buffer{}})

	a, err := Initialize(context.Background(), cfg, obs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestInitializeMemory(t *testing.T) {
	a := memoryApp(t)

	assert.NotNil(t, a.Documents)
	assert.NotNil(t, a.Problems)
	assert.NotNil(t, a.Discussions)
	assert.Nil(t, a.Contest.Queue)
	assert.Equal(t, []string{"acm", "homework", "oi"}, a.Contest.ContestService.Rules().Names())
}

func TestInitializeRejectsUnknownRule(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		Contest: config.ContestConfig{Rules: []string{"acm", "ioi"}},
	}
	obs := observability.Init(observability.Config{Output: &bytes.Buffer{}})

	_, err := Initialize(context.Background(), cfg, obs)
	assert.Error(t, err)
}

func TestRouterHealthz(t *testing.T) {
	a := memoryApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestRouterMetrics(t *testing.T) {
	a := memoryApp(t)

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouterScoreboard(t *testing.T) {
	a := memoryApp(t)
	ctx := context.Background()

	_, err := a.Problems.Add(ctx, problemservice.AddRequest{DomainID: "system", Title: "A+B", Owner: 1})
	require.NoError(t, err)

	begin := time.Now().Add(-time.Hour)
	tid, err := a.Contest.ContestService.Add(ctx, contestservice.AddRequest{
		DomainID: "system",
		Title:    "Weekly",
		Rule:     "acm",
		BeginAt:  begin,
		EndAt:    begin.Add(5 * time.Hour),
		PIDs:     []string{"1"},
	})
	require.NoError(t, err)

	k := documentdomain.DocKey{DomainID: "system", DocType: documentdomain.TypeContest, DocID: tid}
	require.NoError(t, a.Contest.ContestService.Attend(ctx, k, 7))

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/d/system/contest/"+string(tid)+"/scoreboard", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/d/system/contest/missing/scoreboard", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
