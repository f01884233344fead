package contest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	contestservice "github.com/Black-And-White-Club/hydro/app/modules/contest/application"
	contestdomain "github.com/Black-And-White-Club/hydro/app/modules/contest/domain"
	contestevents "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/events"
	contesthandlers "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/handlers"
	contestqueue "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/queue"
	"github.com/Black-And-White-Club/hydro/config"
	"github.com/Black-And-White-Club/hydro/internal/observability"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Dependencies are the collaborators the contest module is built from.
// Publisher, Cache and Queue are optional.
type Dependencies struct {
	Docs      contestservice.DocumentStore
	Problems  contestservice.ProblemDirectory
	Users     contestservice.UserDirectory
	Publisher message.Publisher
	Cache     contestservice.ScoreboardCache
	Queue     contestqueue.QueueService
}

// Module represents the contest module.
type Module struct {
	ContestService *contestservice.ContestService
	Handlers       *contesthandlers.Handlers
	Queue          contestqueue.QueueService
	events         *contestevents.Publisher
	logger         *slog.Logger

	// stop is closed once by Close; Run returns when it is.
	stop      chan struct{}
	closeOnce sync.Once
}

// NewContestModule creates and initializes the contest module.
func NewContestModule(ctx context.Context, cfg *config.Config, obs *observability.Provider, deps Dependencies) (*Module, error) {
	logger := obs.Logger.With("module", "contest")
	logger.InfoContext(ctx, "contest.NewContestModule initializing")

	rules, err := contestdomain.DefaultRegistry().Restrict(cfg.Contest.Rules)
	if err != nil {
		return nil, fmt.Errorf("failed to configure contest rules: %w", err)
	}

	opts := []contestservice.Option{
		contestservice.WithUpcomingLead(cfg.Contest.UpcomingLead),
		contestservice.WithRecalcRate(cfg.Contest.RecalcRate),
	}

	var events *contestevents.Publisher
	if deps.Publisher != nil {
		events = contestevents.NewPublisher(deps.Publisher, logger)
		opts = append(opts, contestservice.WithEvents(events))
	}
	if deps.Cache != nil {
		opts = append(opts, contestservice.WithCache(deps.Cache))
	}
	if deps.Queue != nil {
		opts = append(opts, contestservice.WithQueue(deps.Queue))
	}

	service := contestservice.NewContestService(
		deps.Docs,
		deps.Problems,
		deps.Users,
		rules,
		logger,
		obs.Metrics,
		obs.Tracer("contest"),
		opts...,
	)
	if deps.Queue != nil {
		deps.Queue.Bind(service)
	}

	return &Module{
		ContestService: service,
		Handlers:       contesthandlers.NewHandlers(service, logger),
		Queue:          deps.Queue,
		events:         events,
		logger:         logger,
		stop:           make(chan struct{}),
	}, nil
}

// Run starts the recalculation workers and blocks until ctx is done or the
// module is closed.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) error {
	m.logger.Info("Starting contest module")

	if wg != nil {
		defer wg.Done()
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start contest queue: %w", err)
		}
	}

	select {
	case <-ctx.Done():
	case <-m.stop:
	}
	m.logger.Info("Contest module goroutine stopped")
	return nil
}

// Close stops the workers and the event publisher.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping contest module")

	m.closeOnce.Do(func() { close(m.stop) })

	var firstErr error
	if m.Queue != nil {
		if err := m.Queue.Stop(ctx); err != nil {
			m.logger.Error("Error stopping contest queue", "error", err)
			firstErr = err
		}
	}
	if m.events != nil {
		if err := m.events.Close(); err != nil {
			m.logger.Error("Error closing contest event publisher", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	m.logger.Info("Contest module stopped")
	return firstErr
}
