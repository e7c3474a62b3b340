// Package setup wires the engine's component graph for the cmd mains.
package setup

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/adapter"
	"github.com/evalgate/evalgate/internal/aggregator"
	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/gate"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/llm/bedrock"
	"github.com/evalgate/evalgate/internal/llm/gpt"
	"github.com/evalgate/evalgate/internal/metrics"
	"github.com/evalgate/evalgate/internal/rules"
	"github.com/evalgate/evalgate/internal/runner"
	"github.com/evalgate/evalgate/internal/scorer"
	"github.com/evalgate/evalgate/internal/semantic"
	"github.com/evalgate/evalgate/internal/store"
	"github.com/evalgate/evalgate/internal/stream"
	streamredis "github.com/evalgate/evalgate/internal/stream/redis"
)

// Providers selects the optional model-backed metric providers. All of
// them default to off so the engine runs fully deterministic.
type Providers struct {
	// Embeddings is "openai", "bedrock", or "" (semantic similarity
	// metric disabled).
	Embeddings string
	// QualityJudge is "openai", "bedrock", or "" (translation quality
	// estimate disabled).
	QualityJudge string

	AWSRegion     string
	TitanModelID  string
	OpenAIKey     string
	OpenAIEmbedID string
	ClaudeModelID string
	GPTModelID    string
}

// LoadProviders reads the provider selection from the environment.
func LoadProviders() *Providers {
	return &Providers{
		Embeddings:    getEnv("EVALGATE_EMBEDDINGS", ""),
		QualityJudge:  getEnv("EVALGATE_QUALITY_JUDGE", ""),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		TitanModelID:  getEnv("TITAN_MODEL_ID", ""),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIEmbedID: getEnv("OPENAI_EMBED_MODEL_ID", ""),
		ClaudeModelID: getEnv("CLAUDE_MODEL_ID", ""),
		GPTModelID:    getEnv("OPENAI_MODEL_ID", ""),
	}
}

// Dependencies is the wired engine core shared by the api, worker,
// batch, and mcp mains.
type Dependencies struct {
	Store      store.Store
	Registry   *adapter.Registry
	Scorer     *scorer.Scorer
	Aggregator *aggregator.Aggregator
	Decider    *gate.Decider
	Differ     *gate.Differ
	Runner     *runner.Runner
	Logger     zerolog.Logger
}

func Wire(ctx context.Context, cfg *config.Config, providers *Providers, logger zerolog.Logger) (*Dependencies, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	similarity, err := createSimilarity(ctx, providers)
	if err != nil {
		return nil, err
	}
	translation, err := createTranslation(ctx, providers, logger)
	if err != nil {
		return nil, err
	}

	sc := scorer.New(
		rules.NewEngine(logger),
		similarity,
		translation,
		scorer.Config{
			PipelineTimeout: cfg.Scorer.PipelineTimeout,
			RankingK:        cfg.Scorer.RankingK,
		},
		logger,
	)

	agg := aggregator.New(logger)
	decider := gate.NewDecider(logger)
	registry := adapter.NewDemoRegistry()

	return &Dependencies{
		Store:      st,
		Registry:   registry,
		Scorer:     sc,
		Aggregator: agg,
		Decider:    decider,
		Differ:     gate.NewDiffer(st, logger),
		Runner:     runner.New(st, sc, agg, decider, registry, logger),
		Logger:     logger,
	}, nil
}

// StreamConfig builds the stream factory config from the engine config.
func StreamConfig(cfg *config.Config) *stream.Config {
	return &stream.Config{
		Provider: cfg.Stream.Provider,
		RedisConfig: streamredis.NewStreamConfig(
			cfg.Stream.RedisAddr,
			getEnv("REDIS_PASSWORD", ""),
			cfg.Stream.Stream,
			cfg.Stream.Group,
			cfg.Stream.ConsumerName,
		),
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "sqlite":
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store %s failed: %w", cfg.Store.Path, err)
		}
		return st, nil
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func createSimilarity(ctx context.Context, p *Providers) (*metrics.Similarity, error) {
	switch p.Embeddings {
	case "":
		return metrics.NewSimilarity(nil), nil
	case "openai":
		embedder, err := semantic.NewOpenAIEmbedder(p.OpenAIKey, p.OpenAIEmbedID)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI embedder: %w", err)
		}
		return metrics.NewSimilarity(embedder), nil
	case "bedrock":
		embedder, err := semantic.NewTitanEmbedder(ctx, p.AWSRegion, p.TitanModelID)
		if err != nil {
			return nil, fmt.Errorf("failed to create Titan embedder: %w", err)
		}
		return metrics.NewSimilarity(embedder), nil
	default:
		return nil, fmt.Errorf("unsupported embeddings provider: %s", p.Embeddings)
	}
}

func createTranslation(ctx context.Context, p *Providers, logger zerolog.Logger) (*metrics.Translation, error) {
	if p.QualityJudge == "" {
		return metrics.NewTranslation(nil), nil
	}
	client, err := createLLMClient(ctx, p)
	if err != nil {
		return nil, err
	}
	return metrics.NewTranslation(semantic.NewQualityScorer(client, logger)), nil
}

func createLLMClient(ctx context.Context, p *Providers) (llm.Client, error) {
	switch p.QualityJudge {
	case "openai":
		return gpt.NewClient(p.OpenAIKey, p.GPTModelID)
	case "bedrock":
		return bedrock.NewClient(ctx, p.AWSRegion, p.ClaudeModelID)
	default:
		return nil, fmt.Errorf("unsupported quality judge provider: %s", p.QualityJudge)
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}
