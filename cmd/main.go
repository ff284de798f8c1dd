package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"datapub/config"
	"datapub/hub"
	"datapub/logger"
	"datapub/publish"
	"datapub/telemetry"
	"datapub/update"
	"datapub/version"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)

	if latest, _, newer, err := update.CheckForUpdate(version.Version); err == nil && newer {
		logger.Infof("Update available: %s -> %s", version.Version, latest)
	}

	tel, err := telemetry.New(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	}
	defer tel.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	creds := hub.NewEnvCredentials(cfg.TokenEnv)
	client := hub.New(cfg, creds)
	coordinator := publish.New(cfg, client, creds, tel)

	summary, err := coordinator.Run(ctx)
	if err != nil {
		reportFatal(err)
		tel.Shutdown()
		os.Exit(1)
	}

	fmt.Print(summary.Render())
	if !summary.Complete() {
		logger.Warnf("Publication finished with %d failed uploads", len(summary.Failed))
	}
}

func reportFatal(err error) {
	var invalid *publish.InvalidInputError
	var auth *hub.AuthError
	switch {
	case errors.As(err, &invalid):
		logger.Errorf("Nothing to publish: %v", invalid)
	case errors.As(err, &auth):
		logger.Errorf("%v", auth)
		logger.Error("Configure a valid access token and retry.")
	default:
		logger.Errorf("Publication failed: %v", err)
	}
}

func handleSignals(cancelFunc context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Interrupt signal received. Shutting down...")
	cancelFunc()
}
