// Producer re-enqueues a run onto the worker stream. Useful when a
// trigger was accepted but its stream message was lost.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/setup"
	"github.com/evalgate/evalgate/internal/stream"
)

func main() {
	runID := flag.String("run", "", "Run UUID to enqueue")
	flag.Parse()

	if *runID == "" {
		fmt.Fprintln(os.Stderr, "Usage: producer -run <uuid>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(*runID); err != nil {
		log.Error().Err(err).Msg("producer failed")
		os.Exit(1)
	}
}

func run(rawID string) error {
	_ = godotenv.Load()

	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", rawID, err)
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	ctx := context.Background()
	publisher, err := stream.NewPublisher(ctx, setup.StreamConfig(cfg), log.Logger)
	if err != nil {
		return err
	}

	msgID, err := publisher.Publish(ctx, id)
	if err != nil {
		return err
	}

	log.Info().Str("stream", cfg.Stream.Stream).Str("id", msgID).Str("run_id", rawID).Msg("Published successfully!")
	return nil
}
