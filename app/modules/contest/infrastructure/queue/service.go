// Package contestqueue runs contest recalculations in the background on River.
package contestqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	"github.com/Black-And-White-Club/hydro/internal/observability/attr"
	"github.com/Black-And-White-Club/hydro/internal/observability/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
)

// QueueService schedules and runs contest recalculations.
type QueueService interface {
	contestservice.RecalcQueue
	// Bind attaches the service that executes recalculations.
	Bind(r Recalculator)
	// PendingJobs lists recalculations of a contest that have not finished.
	PendingJobs(ctx context.Context, ref contestdomain.ContestRef) ([]JobInfo, error)
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service handles contest job scheduling using River
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	worker  *RecalcWorker
	logger  *slog.Logger
	db      *bun.DB
	metrics metrics.OperationMetrics
}

// Config tunes the River client.
type Config struct {
	MaxWorkers int
}

// NewService creates a new River-based queue service for contest recalculation
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, metrics metrics.OperationMetrics, cfg Config) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_contest_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing contest queue service")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	worker := NewRecalcWorker(ctxLogger)
	workers := river.NewWorkers()
	river.AddWorker(workers, worker)

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			QueueName:          {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Contest queue service initialized")
	return &Service{
		client:  riverClient,
		pool:    pool,
		worker:  worker,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
	}, nil
}

// Bind attaches the recalculator used by the worker.
func (s *Service) Bind(r Recalculator) { s.worker.Bind(r) }

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")
	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.logger.Info("Contest queue service started")
	return nil
}

// Stop stops the River client and closes its pool.
func (s *Service) Stop(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.logger.Info("Contest queue service stopped")
	return nil
}

// EnqueueRecalc schedules a recalculation. Jobs are not deduplicated: a job
// running while another edit lands would otherwise swallow it.
func (s *Service) EnqueueRecalc(ctx context.Context, ref contestdomain.ContestRef) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_recalc", "river")

	res, err := s.client.Insert(ctx, argsFor(ref), &river.InsertOpts{Queue: QueueName})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue contest recalculation",
			attr.DomainID(ref.DomainID),
			attr.DocID("tid", string(ref.ContestID)),
			attr.Error(err),
		)
		s.metrics.RecordOperationFailure(ctx, "enqueue_recalc", "river")
		return fmt.Errorf("failed to enqueue contest recalculation: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_recalc", "river")
	s.metrics.RecordOperationDuration(ctx, "enqueue_recalc", "river", time.Since(start))
	s.logger.InfoContext(ctx, "Contest recalculation enqueued",
		attr.DomainID(ref.DomainID),
		attr.DocID("tid", string(ref.ContestID)),
		attr.Int64("job_id", res.Job.ID),
	)
	return nil
}

// PendingJobs returns recalculation jobs for a contest that have not completed.
func (s *Service) PendingJobs(ctx context.Context, ref contestdomain.ContestRef) ([]JobInfo, error) {
	type riverJobRow struct {
		ID          int64          `bun:"id"`
		Kind        string         `bun:"kind"`
		State       string         `bun:"state"`
		Args        map[string]any `bun:"args"`
		ScheduledAt *time.Time     `bun:"scheduled_at"`
		CreatedAt   time.Time      `bun:"created_at"`
		Attempt     int16          `bun:"attempt"`
		MaxAttempts int16          `bun:"max_attempts"`
	}

	var jobs []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "args", "scheduled_at", "created_at", "attempt", "max_attempts").
		Where("kind = ?", RecalcContestArgs{}.Kind()).
		Where("state NOT IN (?, ?, ?)", "completed", "cancelled", "discarded").
		Where("args->>'domain_id' = ?", ref.DomainID).
		Where("(args->>'doc_type')::int = ?", int(ref.DocType)).
		Where("args->>'contest_id' = ?", string(ref.ContestID)).
		Order("created_at ASC").
		Scan(ctx, &jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}

	out := make([]JobInfo, len(jobs))
	for i, job := range jobs {
		scheduledAt := ""
		if job.ScheduledAt != nil {
			scheduledAt = job.ScheduledAt.Format(time.RFC3339)
		}
		out[i] = JobInfo{
			ID:          job.ID,
			Kind:        job.Kind,
			ContestID:   string(ref.ContestID),
			State:       job.State,
			ScheduledAt: scheduledAt,
			CreatedAt:   job.CreatedAt.Format(time.RFC3339),
			Attempt:     int(job.Attempt),
			MaxAttempts: int(job.MaxAttempts),
		}
	}
	return out, nil
}

// HealthCheck verifies the queue database is reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("river client is nil")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}

// Migrate brings the River job tables up to date.
func Migrate(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}
