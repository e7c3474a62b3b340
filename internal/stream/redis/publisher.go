package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Publisher appends run triggers to the stream the worker group reads.
type Publisher struct {
	client *redis.Client
	stream string
	logger zerolog.Logger
}

func NewPublisher(client *redis.Client, stream string, logger zerolog.Logger) *Publisher {
	return &Publisher{client: client, stream: stream, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, runID uuid.UUID) (string, error) {
	payload, err := json.Marshal(runMessage{RunID: runID})
	if err != nil {
		return "", fmt.Errorf("encoding run trigger failed: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"payload": string(payload)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publishing run trigger failed: %w", err)
	}

	p.logger.Info().
		Str("stream", p.stream).
		Str("id", id).
		Str("run_id", runID.String()).
		Msg("Run trigger published")
	return id, nil
}
