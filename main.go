package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Black-And-White-Club/hydro/app"
	"github.com/Black-And-White-Club/hydro/config"
	"github.com/Black-And-White-Club/hydro/internal/observability"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	obs := observability.Init(config.ToObsConfig(cfg))
	logger := obs.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Initialize(ctx, cfg, obs)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}

	logger.Info("Application initialized",
		"storage", cfg.Storage.Driver,
		"http_addr", cfg.HTTP.Addr,
		"rules", cfg.Contest.Rules,
	)

	if err := application.Run(ctx); err != nil {
		logger.Error("Application stopped with error", "error", err)
		os.Exit(1)
	}
}
