// Command hydroctl is the operator CLI for contests: creating them,
// recalculating statuses and exporting scoreboards.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/Black-And-White-Club/hydro/app"
	"github.com/Black-And-White-Club/hydro/config"
	"github.com/Black-And-White-Club/hydro/internal/observability"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "hydroctl",
		Usage: "administer hydro contests",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Path to the configuration file", EnvVars: []string{"HYDRO_CONFIG"}},
		},
		Commands: []*cli.Command{
			contestCommand(),
			mongoCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (*config.Config, *observability.Provider, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	obsCfg := config.ToObsConfig(cfg)
	obsCfg.Output = os.Stderr
	return cfg, observability.Init(obsCfg), nil
}

// withApp builds the application for one command and tears it down after.
// Workers are never started, so recalculation requested here runs inline.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, obs, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	a, err := app.Initialize(ctx, cfg, obs)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			obs.Logger.Error("Failed to close application", "error", err)
		}
	}()
	return fn(ctx, a)
}
