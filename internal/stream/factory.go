package stream

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/stream/redis"
)

type Config struct {
	Provider    string // redis, kafka, sqs, etc
	RedisConfig *redis.StreamConfig
}

func NewConsumer(
	ctx context.Context,
	cfg *Config,
	processor RunProcessor,
	logger zerolog.Logger,
) (Consumer, error) {

	// If provider is empty, fallback to the default configuration.
	provider := cfg.Provider
	if provider == "" {
		provider = "redis"
	}

	switch provider {
	case "redis":
		if cfg.RedisConfig == nil {
			return nil, fmt.Errorf("redis config required")
		}

		client, err := redis.Connect(ctx, cfg.RedisConfig.Addr, cfg.RedisConfig.Password, 5, logger)
		if err != nil {
			return nil, err
		}

		return redis.NewConsumer(client, cfg.RedisConfig, processor, logger), nil

	// Future providers:
	// case "kafka":
	//     return kafka.NewConsumer(...)

	default:
		return nil, fmt.Errorf("unsupported stream provider: %s", cfg.Provider)
	}
}

func NewPublisher(ctx context.Context, cfg *Config, logger zerolog.Logger) (Publisher, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "redis"
	}

	switch provider {
	case "redis":
		if cfg.RedisConfig == nil {
			return nil, fmt.Errorf("redis config required")
		}

		client, err := redis.Connect(ctx, cfg.RedisConfig.Addr, cfg.RedisConfig.Password, 5, logger)
		if err != nil {
			return nil, err
		}

		return redis.NewPublisher(client, cfg.RedisConfig.Stream, logger), nil

	default:
		return nil, fmt.Errorf("unsupported stream provider: %s", cfg.Provider)
	}
}
