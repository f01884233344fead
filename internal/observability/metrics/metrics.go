// Package metrics holds the Prometheus-backed operation metrics used by the
// application services, plus no-op variants for tests and tools.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics records the lifecycle of a service operation.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// ContestMetrics extends OperationMetrics with contest specific signals.
type ContestMetrics interface {
	OperationMetrics
	RecordAttendRejected(ctx context.Context, domainID string)
	RecordRecalcSkipped(ctx context.Context, domainID string)
	RecordRecalcApplied(ctx context.Context, domainID string, count int)
	RecordScoreboardCache(ctx context.Context, hit bool)
}

// PrometheusMetrics implements ContestMetrics on a Prometheus registerer.
type PrometheusMetrics struct {
	attempts       *prometheus.CounterVec
	successes      *prometheus.CounterVec
	failures       *prometheus.CounterVec
	durations      *prometheus.HistogramVec
	attendRejected *prometheus.CounterVec
	recalcSkipped  *prometheus.CounterVec
	recalcApplied  *prometheus.CounterVec
	scoreboardHits *prometheus.CounterVec
}

var _ ContestMetrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the hydro collectors on reg.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"service", "operation"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Service operations that completed without error.",
		}, []string{"service", "operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failure_total",
			Help:      "Service operations that returned an error or panicked.",
		}, []string{"service", "operation"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		attendRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contest_attend_rejected_total",
			Help:      "Attend calls rejected because the user already attended.",
		}, []string{"domain"}),
		recalcSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contest_recalc_skipped_total",
			Help:      "Status recalculations dropped on a revision mismatch.",
		}, []string{"domain"}),
		recalcApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contest_recalc_applied_total",
			Help:      "Status recalculations written back.",
		}, []string{"domain"}),
		scoreboardHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoreboard_cache_requests_total",
			Help:      "Scoreboard cache lookups by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.attempts, m.successes, m.failures, m.durations,
		m.attendRejected, m.recalcSkipped, m.recalcApplied, m.scoreboardHits,
	)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordAttendRejected(_ context.Context, domainID string) {
	m.attendRejected.WithLabelValues(domainID).Inc()
}

func (m *PrometheusMetrics) RecordRecalcSkipped(_ context.Context, domainID string) {
	m.recalcSkipped.WithLabelValues(domainID).Inc()
}

func (m *PrometheusMetrics) RecordRecalcApplied(_ context.Context, domainID string, count int) {
	m.recalcApplied.WithLabelValues(domainID).Add(float64(count))
}

func (m *PrometheusMetrics) RecordScoreboardCache(_ context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.scoreboardHits.WithLabelValues(result).Inc()
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

var _ ContestMetrics = NoOpMetrics{}

func NewNoop() NoOpMetrics { return NoOpMetrics{} }

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordAttendRejected(context.Context, string)                           {}
func (NoOpMetrics) RecordRecalcSkipped(context.Context, string)                            {}
func (NoOpMetrics) RecordRecalcApplied(context.Context, string, int)                       {}
func (NoOpMetrics) RecordScoreboardCache(context.Context, bool)                            {}
