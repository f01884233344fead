// Package documentservice is the domain-scoped entry point to the document and
// status store. Content modules build on it instead of the repository.
package documentservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/observability/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "DocumentService"

// DocumentService implements document and status operations on top of a Repository.
type DocumentService struct {
	repo    documentdb.Repository
	logger  *slog.Logger
	metrics metrics.OperationMetrics
	tracer  trace.Tracer
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(
	repo documentdb.Repository,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// isExpected separates caller-visible outcomes from infrastructure failures.
func isExpected(err error) bool {
	var nf *DocumentNotFoundError
	return errors.Is(err, documentdb.ErrCappedIncRejected) ||
		errors.Is(err, documentdb.ErrDuplicate) ||
		errors.Is(err, ErrParentMismatch) ||
		errors.As(err, &nf)
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *DocumentService,
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
	if err != nil {
		if isExpected(err) {
			s.logger.DebugContext(ctx, "Operation returned failure result",
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

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	}
	return result, nil
}
