package main

import (
	"fmt"

	documentmongo "github.com/Black-And-White-Club/hydro/app/modules/document/infrastructure/mongostore"
	userdb "github.com/Black-And-White-Club/hydro/app/modules/user/infrastructure/repositories"
	"github.com/urfave/cli/v2"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func mongoCommand() *cli.Command {
	return &cli.Command{
		Name:  "mongo",
		Usage: "MongoDB maintenance",
		Subcommands: []*cli.Command{
			{
				Name:   "ensure-indexes",
				Usage:  "create the document, status and user indexes",
				Action: ensureIndexes,
			},
		},
	}
}

func ensureIndexes(c *cli.Context) error {
	cfg, obs, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is not configured")
	}

	ctx := c.Context
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			obs.Logger.Error("Error disconnecting mongo client", "error", err)
		}
	}()

	db := client.Database(cfg.Mongo.Database)
	if err := documentmongo.NewStore(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := userdb.NewMongoRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	obs.Logger.Info("Indexes ensured", "database", cfg.Mongo.Database)
	return nil
}
