package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evalgate/evalgate/internal/api"
	"github.com/evalgate/evalgate/internal/api/middleware"
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

	ctx := context.Background()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger = logger.Level(parseLevel(cfg.LogLevel))

	// Wire Components
	deps, err := setup.Wire(ctx, cfg, setup.LoadProviders(), logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	publisher, err := stream.NewPublisher(ctx, setup.StreamConfig(cfg), logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect run stream")
	}

	// API
	handler := api.NewHandler(deps.Store, publisher, deps.Decider, deps.Differ, cfg, logger)
	container := restful.NewContainer()
	container.Filter(middleware.Logger)
	container.Filter(middleware.RecoverPanic)
	api.RegisterRoutes(container, handler)

	// CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("address", addr).Msg("Starting evalgate API")

	server := http.Server{
		Addr:    addr,
		Handler: corsHandler.Handler(container),
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
