package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Black-And-White-Club/hydro/integration_tests/containers"
)

// Components selects the containers an environment starts.
type Components struct {
	Postgres bool
	Mongo    bool
	NATS     bool
	Redis    bool
}

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	Logger        *slog.Logger

	PgConnStr string
	DB        *bun.DB

	MongoClient *mongo.Client
	MongoDB     *mongo.Database

	NatsURL   string
	NatsConn  *nats.Conn
	JetStream jetstream.JetStream

	RedisAddr string
	Redis     *redis.Client

	containers []testcontainers.Container
}

// NewTestEnvironment starts the requested containers and connects to them.
func NewTestEnvironment(c Components) (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	if err := env.setup(ctx, c); err != nil {
		env.Cleanup()
		return nil, err
	}
	return env, nil
}

func (env *TestEnvironment) setup(ctx context.Context, c Components) error {
	if c.Postgres {
		pgContainer, connStr, err := containers.SetupPostgresContainer(ctx)
		if err != nil {
			return fmt.Errorf("failed to setup postgres container: %w", err)
		}
		env.containers = append(env.containers, pgContainer)
		env.PgConnStr = connStr

		sqlDB, err := sql.Open("pgx", connStr)
		if err != nil {
			return fmt.Errorf("failed to open sql DB connection: %w", err)
		}
		env.DB = bun.NewDB(sqlDB, pgdialect.New())

		if err := RunMigrations(ctx, env.DB, connStr); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if c.Mongo {
		mongoContainer, uri, err := containers.SetupMongoContainer(ctx)
		if err != nil {
			return fmt.Errorf("failed to setup mongo container: %w", err)
		}
		env.containers = append(env.containers, mongoContainer)

		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		env.MongoClient = client
		env.MongoDB = client.Database("hydro_test")
	}

	if c.NATS {
		natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
		if err != nil {
			return fmt.Errorf("failed to setup nats container: %w", err)
		}
		env.containers = append(env.containers, natsContainer)
		env.NatsURL = natsURL

		natsConn, err := nats.Connect(natsURL, nats.Timeout(10*time.Second))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		env.NatsConn = natsConn

		js, err := jetstream.New(natsConn)
		if err != nil {
			return fmt.Errorf("failed to create JetStream context: %w", err)
		}
		env.JetStream = js
	}

	if c.Redis {
		redisContainer, addr, err := containers.SetupRedisContainer(ctx)
		if err != nil {
			return fmt.Errorf("failed to setup redis container: %w", err)
		}
		env.containers = append(env.containers, redisContainer)
		env.RedisAddr = addr
		env.Redis = redis.NewClient(&redis.Options{Addr: addr})
	}
	return nil
}

// Reset clears all stored state so the next test starts empty.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	if env.DB != nil {
		if err := CleanupDatabase(ctx, env.DB); err != nil {
			return err
		}
	}
	if env.MongoDB != nil {
		if err := env.MongoDB.Drop(ctx); err != nil {
			return fmt.Errorf("failed to drop mongo database: %w", err)
		}
	}
	if env.Redis != nil {
		if err := env.Redis.FlushDB(ctx).Err(); err != nil {
			return fmt.Errorf("failed to flush redis: %w", err)
		}
	}
	return nil
}

// Cleanup closes connections and terminates every container.
func (env *TestEnvironment) Cleanup() {
	ctx := context.Background()
	if env.Redis != nil {
		_ = env.Redis.Close()
	}
	if env.NatsConn != nil {
		env.NatsConn.Close()
	}
	if env.MongoClient != nil {
		_ = env.MongoClient.Disconnect(ctx)
	}
	if env.DB != nil {
		_ = env.DB.Close()
	}
	for i := len(env.containers) - 1; i >= 0; i-- {
		if err := env.containers[i].Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}
	env.CancelContext()
}
