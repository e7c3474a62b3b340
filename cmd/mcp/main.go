package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/mcpadapter"
	"github.com/evalgate/evalgate/internal/setup"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logger := log.Logger

	// Load env
	_ = godotenv.Load()

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("")
	if err != nil {
		logger.Error().Err(err).Msg("Unable to load config")
		os.Exit(1)
	}

	// Wire dependencies
	deps, err := setup.Wire(ctx, cfg, setup.LoadProviders(), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Unable to load dependencies")
		os.Exit(1)
	}

	// Create MCP Server
	server := createMCPServer(deps)

	// Run over stdio
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		// EOF / "server is closing" is expected when stdin closes (e.g. echo | ./bin/evalgate-mcp)
		if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "server is closing") {
			logger.Debug().Err(err).Msg("MCP server stopped")
			return
		}
		logger.Error().Err(err).Msg("Failed to run mcp server")
		os.Exit(1)
	}
}

func createMCPServer(deps *setup.Dependencies) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "evalgate",
			Version: "1.0.0",
		}, nil,
	)

	// Add Tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "evaluate_case",
		Description: "Score one query/answer pair with the metric family for its system type, plus an optional must_contain rule",
	}, mcpadapter.NewEvaluateHandler(deps.Scorer))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "inspect_gate",
		Description: "Explain the release-gate decision of a finished evaluation run: threshold breaches and rule failures",
	}, mcpadapter.NewGateHandler(deps.Store, deps.Decider))
	return server
}
