// Package contestservice implements the contest lifecycle: creation, editing,
// attendance, journal updates, recalculation and scoreboards.
package contestservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	documentdomain "github.com/Black-And-White-Club/hydro/app/modules/document/domain"
	problemservice "github.com/Black-And-White-Club/hydro/app/modules/problem/application"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/observability/metrics"
	"github.com/Black-And-White-Club/hydro/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	serviceName = "ContestService"

	// DefaultUpcomingLead separates "new" from "upcoming" contests.
	DefaultUpcomingLead = 24 * time.Hour

	recalcPageSize = 200
)

// ContestService implements contest operations.
type ContestService struct {
	docs     DocumentStore
	problems ProblemDirectory
	users    UserDirectory
	rules    *contestdomain.Registry
	logger   *slog.Logger
	metrics  metrics.ContestMetrics
	tracer   trace.Tracer

	events EventPublisher
	cache  ScoreboardCache
	queue  RecalcQueue

	now          func() time.Time
	upcomingLead time.Duration
	recalcRate   rate.Limit
}

// Option configures optional collaborators.
type Option func(*ContestService)

// WithEvents publishes lifecycle events through p.
func WithEvents(p EventPublisher) Option { return func(s *ContestService) { s.events = p } }

// WithCache caches rendered scoreboards in c.
func WithCache(c ScoreboardCache) Option { return func(s *ContestService) { s.cache = c } }

// WithQueue runs recalculations triggered by Edit in the background.
func WithQueue(q RecalcQueue) Option { return func(s *ContestService) { s.queue = q } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *ContestService) { s.now = now } }

// WithUpcomingLead sets how long before beginAt a contest counts as upcoming.
func WithUpcomingLead(d time.Duration) Option { return func(s *ContestService) { s.upcomingLead = d } }

// WithRecalcRate limits status writes per second during recalculation. Zero
// or less means unlimited.
func WithRecalcRate(perSecond float64) Option {
	return func(s *ContestService) {
		if perSecond > 0 {
			s.recalcRate = rate.Limit(perSecond)
		}
	}
}

// NewContestService creates a new ContestService.
func NewContestService(
	docs DocumentStore,
	problems ProblemDirectory,
	users UserDirectory,
	rules *contestdomain.Registry,
	logger *slog.Logger,
	metrics metrics.ContestMetrics,
	tracer trace.Tracer,
	opts ...Option,
) *ContestService {
	if logger == nil {
		logger = slog.Default()
	}
	if rules == nil {
		rules = contestdomain.DefaultRegistry()
	}
	s := &ContestService{
		docs:         docs,
		problems:     problems,
		users:        users,
		rules:        rules,
		logger:       logger,
		metrics:      metrics,
		tracer:       tracer,
		now:          time.Now,
		upcomingLead: DefaultUpcomingLead,
		recalcRate:   rate.Inf,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules exposes the rule registry.
func (s *ContestService) Rules() *contestdomain.Registry { return s.rules }

func (s *ContestService) rule(c *contestdomain.Contest) (contestdomain.ContestRule, error) {
	rule, ok := s.rules.Get(c.Rule)
	if !ok {
		return nil, validation.NewError("rule", "unknown rule "+c.Rule)
	}
	return rule, nil
}

func (s *ContestService) load(ctx context.Context, k documentdomain.DocKey) (*contestdomain.Contest, error) {
	if k.DocType != documentdomain.TypeContest && k.DocType != documentdomain.TypeHomework {
		return nil, &ContestNotFoundError{Key: k}
	}
	doc, err := s.docs.Get(ctx, k)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &ContestNotFoundError{Key: k}
	}
	return contestdomain.FromDocument(doc)
}

func (s *ContestService) publish(ctx context.Context, topic string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish contest event",
			attr.ExtractCorrelationID(ctx),
			attr.String("topic", topic),
			attr.Error(err),
		)
	}
}

func (s *ContestService) invalidate(ctx context.Context, k documentdomain.DocKey) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, contestdomain.RefOf(k)); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate scoreboard cache",
			attr.ExtractCorrelationID(ctx),
			attr.DomainID(k.DomainID),
			attr.DocID("tid", string(k.DocID)),
			attr.Error(err),
		)
	}
}

// isExpected reports caller-visible outcomes that are not infrastructure failures.
func isExpected(err error) bool {
	var (
		verr     *validation.ValidationError
		notFound *ContestNotFoundError
		attended *ContestAlreadyAttendedError
		notAtt   *ContestNotAttendedError
		hidden   *ContestScoreboardHiddenError
		noProb   *problemservice.ProblemNotFoundError
		noDoc    *documentservice.DocumentNotFoundError
	)
	return errors.As(err, &verr) || errors.As(err, &notFound) || errors.As(err, &attended) ||
		errors.As(err, &notAtt) || errors.As(err, &hidden) || errors.As(err, &noProb) || errors.As(err, &noDoc)
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *ContestService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			}
			span.RecordError(err)
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)

	if err != nil && isExpected(err) {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
		}
		return result, err
	}

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	s.logger.InfoContext(ctx, "Operation completed successfully",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
		attr.String("identifier", identifier),
	)
	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}
	return result, nil
}
