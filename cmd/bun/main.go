package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/Black-And-White-Club/hydro/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	contestqueue "github.com/Black-And-White-Club/hydro/app/modules/contest/infrastructure/queue"
	documentmigrations "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/repositories/migrations"
	usermigrations "github.com/Black-And-White-Club/hydro/app/modules/user/infrastructure/repositories/migrations"
)

func main() {
	cliApp := &cli.App{
		Name:     "bun",
		Usage:    "hydro database migrations",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Path to the configuration file"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("postgres.dsn is required for migrations")
			}
			c.App.Metadata["dsn"] = cfg.Postgres.DSN
			return nil
		},
		Commands: []*cli.Command{
			newMultiModuleDBCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withMigrators opens the database named by the loaded config and hands the
// per-module migrators to fn.
func withMigrators(c *cli.Context, fn func(dsn string, migrators map[string]*migrate.Migrator) error) error {
	dsn, _ := c.App.Metadata["dsn"].(string)
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	return fn(dsn, map[string]*migrate.Migrator{
		"document": migrate.NewMigrator(db, documentmigrations.Migrations),
		"user":     migrate.NewMigrator(db, usermigrations.Migrations),
	})
}

func moduleNames(migrators map[string]*migrate.Migrator) []string {
	names := make([]string, 0, len(migrators))
	for name := range migrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newMultiModuleDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ string, migrators map[string]*migrate.Migrator) error {
						for _, moduleName := range moduleNames(migrators) {
							fmt.Printf("Initializing migrations for module: %s\n", moduleName)
							if err := migrators[moduleName].Init(c.Context); err != nil {
								return fmt.Errorf("init %s: %w", moduleName, err)
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database, including the River job tables",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(dsn string, migrators map[string]*migrate.Migrator) error {
						for _, moduleName := range moduleNames(migrators) {
							fmt.Printf("Running migrations for module: %s\n", moduleName)
							group, err := migrators[moduleName].Migrate(c.Context)
							if err != nil {
								return err
							}
							if group.IsZero() {
								fmt.Printf("No new migrations to run for module: %s\n", moduleName)
							} else {
								fmt.Printf("Migrated module: %s to %s\n", moduleName, group)
							}
						}
						return migrateRiver(c.Context, dsn)
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ string, migrators map[string]*migrate.Migrator) error {
						for _, moduleName := range moduleNames(migrators) {
							fmt.Printf("Rolling back migrations for module: %s\n", moduleName)
							group, err := migrators[moduleName].Rollback(c.Context)
							if err != nil {
								return err
							}
							if group.IsZero() {
								fmt.Printf("No groups to roll back for module: %s\n", moduleName)
							} else {
								fmt.Printf("Rolled back module: %s to %s\n", moduleName, group)
							}
						}
						return nil
					})
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "MODULE NAME...",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ string, migrators map[string]*migrate.Migrator) error {
						moduleName := c.Args().First()
						migrator, ok := migrators[moduleName]
						if !ok {
							return fmt.Errorf("invalid module name: %s", moduleName)
						}

						name := strings.Join(c.Args().Tail(), "_")
						mf, err := migrator.CreateGoMigration(c.Context, name)
						if err != nil {
							return err
						}
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ string, migrators map[string]*migrate.Migrator) error {
						for _, moduleName := range moduleNames(migrators) {
							ms, err := migrators[moduleName].MigrationsWithStatus(c.Context)
							if err != nil {
								return err
							}
							fmt.Printf("Migrations for module: %s\n", moduleName)
							fmt.Printf("  %s\n", ms)
							fmt.Printf("  Applied: %s\n", ms.Applied())
							fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
						}
						return nil
					})
				},
			},
		},
	}
}

func migrateRiver(ctx context.Context, dsn string) error {
	fmt.Println("Running River queue migrations")
	if err := contestqueue.Migrate(ctx, dsn); err != nil {
		return err
	}
	fmt.Println("River queue migrations completed")
	return nil
}
