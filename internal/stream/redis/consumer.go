package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RunProcessor executes one evaluation run identified by a trigger
// message.
type RunProcessor interface {
	Process(ctx context.Context, runID uuid.UUID) error
}

// runMessage is the wire shape of one run trigger on the stream.
type runMessage struct {
	RunID uuid.UUID `json:"run_id"`
}

// Consumer reads run triggers from a Redis stream through a consumer
// group and hands them to the processor. Messages are always ACKed:
// undecodable payloads are skipped, and a failed run records its own
// FAILED status rather than being redelivered forever.
type Consumer struct {
	client       *redis.Client
	stream       string
	groupID      string
	consumerName string
	processor    RunProcessor
	logger       zerolog.Logger
}

func NewConsumer(client *redis.Client, cfg *StreamConfig, processor RunProcessor, logger zerolog.Logger) *Consumer {
	return &Consumer{
		client:       client,
		stream:       cfg.Stream,
		groupID:      cfg.Group,
		consumerName: cfg.ConsumerName,
		processor:    processor,
		logger:       logger,
	}
}

func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.groupID, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("stream", c.stream).
		Str("group", c.groupID).
		Str("consumer", c.consumerName).
		Msg("Consumer started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupID,
			Consumer: c.consumerName,
			Streams:  []string{c.stream, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				// timeout, no message -> loop again
				continue
			}

			if ctx.Err() != nil {
				return ctx.Err() // context cancelled during block
			}

			c.logger.Error().Err(err).Msg("Failed to read from stream")
			continue
		}

		for _, msg := range msgs[0].Messages {
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) Stop() error {
	return nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	c.logger.Info().Str("id", msg.ID).Msg("Message received")

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		c.logger.Error().Str("id", msg.ID).Msg("Missing payload field")
		c.ack(ctx, msg.ID)
		return
	}

	var trigger runMessage
	if err := json.Unmarshal([]byte(payload), &trigger); err != nil || trigger.RunID == uuid.Nil {
		c.logger.Error().Err(err).Str("id", msg.ID).Msg("Failed to decode message")
		c.ack(ctx, msg.ID) // bad message, ACK to skip it
		return
	}

	if err := c.processor.Process(ctx, trigger.RunID); err != nil {
		c.logger.Error().
			Err(err).
			Str("id", msg.ID).
			Str("run_id", trigger.RunID.String()).
			Msg("Run processing failed")
	}

	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, msgID string) {
	if err := c.client.XAck(ctx, c.stream, c.groupID, msgID).Err(); err != nil {
		c.logger.Error().Err(err).Str("id", msgID).Msg("Failed to ACK message")
	}
}
