package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/setup"
	"github.com/evalgate/evalgate/internal/stream"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logger := log.Logger

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Wire Components
	deps, err := setup.Wire(ctx, cfg, setup.LoadProviders(), logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	consumer, err := stream.NewConsumer(ctx, setup.StreamConfig(cfg), deps.Runner, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create stream consumer")
	}

	// Setup consumer
	if err := consumer.Setup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup consumer")
	}

	// Start consumer
	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Consumer stopped with error")
		}
	}()

	// Wait for context to be done
	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	log.Info().Msg("Evalgate worker stopped")
}
