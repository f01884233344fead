package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	documentmigrations "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories/migrations"
	usermigrations "github.com/Black-And-White-Club/hydro/app/modules/user/infrastructure/repositories/migrations"
)

// RunMigrations runs the River and module migrations against db.
func RunMigrations(ctx context.Context, db *bun.DB, pgConnStr string) error {
	// Initialize migration tables only once - use any migrations to create the table
	migrator := migrate.NewMigrator(db, documentmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	if err := runRiverMigrations(ctx, pgConnStr); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}

	orderedModules := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"document", documentmigrations.Migrations},
		{"user", usermigrations.Migrations},
	}
	for _, mod := range orderedModules {
		if err := runModuleMigrations(ctx, db, mod.migrations, mod.name); err != nil {
			return err
		}
	}
	log.Println("All migrations ran successfully")
	return nil
}

// runRiverMigrations runs River queue system migrations
func runRiverMigrations(ctx context.Context, pgConnStr string) error {
	config, err := pgxpool.ParseConfig(pgConnStr)
	if err != nil {
		return fmt.Errorf("failed to parse DSN for River migrations: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
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

	log.Println("River queue migrations completed successfully")
	return nil
}

// runModuleMigrations runs migrations for a specific module
func runModuleMigrations(ctx context.Context, db *bun.DB, migrations *migrate.Migrations, name string) error {
	migrator := migrate.NewMigrator(db, migrations)
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run %s migrations: %w", name, err)
	}
	if group.ID == 0 {
		log.Printf("No %s migrations to run", name)
	} else {
		log.Printf("Ran %s migrations group #%d", name, group.ID)
	}
	return nil
}

// appTables are truncated between tests.
var appTables = []string{"document", "document_status", "users", "domain_users"}

// CleanupRiverJobs deletes all jobs from the River queue
func CleanupRiverJobs(ctx context.Context, db *bun.DB) error {
	_, err := db.ExecContext(ctx, "DELETE FROM river_job")
	return err
}

// CleanupDatabase truncates all tables in the database to ensure a clean state
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(appTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	if err := CleanupRiverJobs(ctx, db); err != nil {
		// Don't fail if table doesn't exist yet
		if !strings.Contains(err.Error(), "does not exist") {
			return fmt.Errorf("failed to cleanup river jobs: %w", err)
		}
	}
	return nil
}
