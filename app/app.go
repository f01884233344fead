package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/hydro/app/modules/contest"
	contestcache "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/cache"
	contestevents "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/events"
	contestqueue "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/queue"
	discussionservice "github.com/Black-And-White-Club/hydro/app/modules/discussion/application"
	documentservice "github.com/Black-And-White-Club/hydro/app/modules/document/application"
	documentmongo "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/mongostore"
	documentdb "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories"
	documentmigrations "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories/migrations"
	problemservice "github.com/Black-And-White-Club/hydro/app/modules/problem/application"
	userservice "github.com/Black-And-White-Club/hydro/app/modules/user/application"
	userdb "github.com/Black-And-White-Club/hydro/app/modules/user/infrastructure/repositories"
	usermigrations "github.com/Black-And-White-Club/hydro/app/modules/user/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/hydro/config"
	"github.com/Black-And-White-Club/hydro/internal/observability"
	watermillutil "github.com/Black-And-White-Club/hydro/internal/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shutdownTimeout = 15 * time.Second

// App holds every module of the hydro process.
type App struct {
	Config        *config.Config
	Observability *observability.Provider

	Documents   *documentservice.DocumentService
	Users       *userservice.UserService
	Problems    *problemservice.ProblemService
	Discussions *discussionservice.DiscussionService
	Contest     *contest.Module

	logger *slog.Logger
	bunDB  *bun.DB
	mongo  *mongo.Client
	redis  *redis.Client
	wg     sync.WaitGroup
}

// storage is the backend-specific half of the wiring.
type storage struct {
	docs  documentdb.Repository
	users userdb.Repository
}

// Initialize builds the application from cfg. The returned App owns every
// connection it opened; call Close to release them.
func Initialize(ctx context.Context, cfg *config.Config, obs *observability.Provider) (*App, error) {
	app := &App{
		Config:        cfg,
		Observability: obs,
		logger:        obs.Logger,
	}

	store, err := app.openStorage(ctx)
	if err != nil {
		app.closeConnections(ctx)
		return nil, err
	}

	app.Documents = documentservice.NewDocumentService(store.docs, obs.Logger, obs.Metrics, obs.Tracer("document"))
	app.Users = userservice.NewUserService(store.users, obs.Logger, obs.Metrics, obs.Tracer("user"))
	app.Problems = problemservice.NewProblemService(app.Documents, obs.Logger)
	app.Discussions = discussionservice.NewDiscussionService(app.Documents, obs.Logger)

	deps := contest.Dependencies{
		Docs:     app.Documents,
		Problems: app.Problems,
		Users:    app.Users,
	}

	if cfg.Redis.Addr != "" {
		rdb, err := contestcache.NewClient(ctx, contestcache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			app.closeConnections(ctx)
			return nil, err
		}
		app.redis = rdb
		deps.Cache = contestcache.NewRedisCache(rdb, cfg.Redis.TTL)
	}

	deps.Publisher, err = app.openPublisher(ctx)
	if err != nil {
		app.closeConnections(ctx)
		return nil, err
	}

	if app.bunDB != nil {
		if err := contestqueue.Migrate(ctx, cfg.Postgres.DSN); err != nil {
			app.closeConnections(ctx)
			return nil, err
		}
		queue, err := contestqueue.NewService(ctx, app.bunDB, obs.Logger, cfg.Postgres.DSN, obs.Metrics, contestqueue.Config{
			MaxWorkers: cfg.Contest.Queue.MaxWorkers,
		})
		if err != nil {
			app.closeConnections(ctx)
			return nil, err
		}
		deps.Queue = queue
	}

	app.Contest, err = contest.NewContestModule(ctx, cfg, obs, deps)
	if err != nil {
		if deps.Queue != nil {
			_ = deps.Queue.Stop(ctx)
		}
		_ = deps.Publisher.Close()
		app.closeConnections(ctx)
		return nil, err
	}

	return app, nil
}

func (app *App) openStorage(ctx context.Context) (storage, error) {
	cfg := app.Config
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
		db := bun.NewDB(pgdb, pgdialect.New())
		app.bunDB = db
		if err := db.PingContext(ctx); err != nil {
			return storage{}, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		for name, migrations := range map[string]*migrate.Migrations{
			"document": documentmigrations.Migrations,
			"user":     usermigrations.Migrations,
		} {
			if err := runModuleMigrations(ctx, db, migrations, name, app.logger); err != nil {
				return storage{}, err
			}
		}
		return storage{docs: documentdb.NewRepository(db), users: userdb.NewRepository(db)}, nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return storage{}, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		app.mongo = client
		if err := client.Ping(ctx, nil); err != nil {
			return storage{}, fmt.Errorf("failed to ping mongo: %w", err)
		}
		db := client.Database(cfg.Mongo.Database)
		docs := documentmongo.NewStore(db)
		if err := docs.EnsureIndexes(ctx); err != nil {
			return storage{}, err
		}
		users := userdb.NewMongoRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return storage{}, err
		}
		return storage{docs: docs, users: users}, nil

	default:
		app.logger.Warn("Using in-memory storage; data is lost on restart")
		return storage{docs: documentdb.NewMemoryRepository(), users: userdb.NewMemoryRepository()}, nil
	}
}

func (app *App) openPublisher(ctx context.Context) (message.Publisher, error) {
	url := app.Config.NATS.URL
	if url == "" {
		app.logger.Info("NATS URL not set, contest events stay in process")
		return watermillutil.NewGoChannel(app.logger), nil
	}
	if err := watermillutil.EnsureStream(ctx, url, contestevents.StreamName, contestevents.StreamSubjects); err != nil {
		return nil, err
	}
	return watermillutil.NewPublisher(url, app.logger)
}

// runModuleMigrations runs migrations for a specific module
func runModuleMigrations(ctx context.Context, db *bun.DB, migrations *migrate.Migrations, name string, logger *slog.Logger) error {
	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init %s migrations: %w", name, err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run %s migrations: %w", name, err)
	}
	if group.IsZero() {
		logger.Info("No new migrations to run", "module", name)
	} else {
		logger.Info("Migrated module", "module", name, "group", group.String())
	}
	return nil
}

// Run serves HTTP and runs the module workers until ctx is canceled, then
// shuts everything down.
func (app *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              app.Config.HTTP.Addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers := []*http.Server{srv}
	if addr := app.Config.Observability.MetricsAddress; addr != "" {
		servers = append(servers, &http.Server{
			Addr:              addr,
			Handler:           app.Observability.MetricsHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers)+1)
	for _, s := range servers {
		go func(s *http.Server) {
			app.logger.Info("Starting HTTP server", "addr", s.Addr)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server %s: %w", s.Addr, err)
			}
		}(s)
	}

	app.wg.Add(1)
	go func() {
		if err := app.Contest.Run(ctx, &app.wg); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("Shutdown signal received")
	case runErr = <-errCh:
		app.logger.Error("Component failed, shutting down", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("HTTP server shutdown failed", "addr", s.Addr, "error", err)
		}
	}
	if err := app.Close(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close stops the modules and releases every connection.
func (app *App) Close(ctx context.Context) error {
	var err error
	if app.Contest != nil {
		err = app.Contest.Close(ctx)
	}
	app.wg.Wait()
	app.closeConnections(ctx)
	app.logger.Info("Application shut down gracefully")
	return err
}

func (app *App) closeConnections(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis client", "error", err)
		}
	}
	if app.mongo != nil {
		if err := app.mongo.Disconnect(ctx); err != nil {
			app.logger.Error("Error disconnecting mongo client", "error", err)
		}
	}
	if app.bunDB != nil {
		if err := app.bunDB.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
}
