package containers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgImage    = "postgres:16-alpine"
	pgDatabase = "hydro"
	pgUser     = "hydro"
	pgPassword = "hydro"
)

func pgDSN(host string, port nat.Port) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", pgUser, pgPassword, host, port.Port(), pgDatabase)
}

// SetupPostgresContainer starts Postgres and returns the container with a
// DSN usable by both pgdriver and pgx.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	pg, err := postgres.Run(ctx, pgImage,
		postgres.WithDatabase(pgDatabase),
		postgres.WithUsername(pgUser),
		postgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx", pgDSN).WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		if pg != nil {
			_ = pg.Terminate(ctx)
		}
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := disableSSL(ctx, pg)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, "", err
	}
	log.Printf("Postgres container ready: %s", dsn)
	return pg, dsn, nil
}

// disableSSL rewrites the module's connection string; the container serves
// plain connections only.
func disableSSL(ctx context.Context, pg *postgres.PostgresContainer) (string, error) {
	connStr, err := pg.ConnectionString(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}
	u, err := url.Parse(connStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection string: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
