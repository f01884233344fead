package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg, "hydro")
	ctx := context.Background()

	m.RecordOperationAttempt(ctx, "Attend", "ContestService")
	m.RecordOperationAttempt(ctx, "Attend", "ContestService")
	m.RecordOperationFailure(ctx, "Attend", "ContestService")
	m.RecordOperationDuration(ctx, "Attend", "ContestService", 15*time.Millisecond)
	m.RecordAttendRejected(ctx, "system")
	m.RecordRecalcApplied(ctx, "system", 3)
	m.RecordScoreboardCache(ctx, true)
	m.RecordScoreboardCache(ctx, false)
	m.RecordScoreboardCache(ctx, false)

	if got := testutil.ToFloat64(m.attempts.WithLabelValues("ContestService", "Attend")); got != 2 {
		t.Errorf("attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("ContestService", "Attend")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.recalcApplied.WithLabelValues("system")); got != 3 {
		t.Errorf("recalc applied = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.scoreboardHits.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.durations); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}
