package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resumebuilder/internal/cli"
	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is not an error
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("Starting resumebuilder",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"ai_provider", cfg.AI.Provider)

	if err := cli.Execute(ctx, cfg, logger); err != nil {
		logger.LogError(err, "Command failed")
		stop()
		os.Exit(1)
	}
}
