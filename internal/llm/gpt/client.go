package gpt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/evalgate/evalgate/internal/llm"
)

type Client struct {
	Client       openai.Client
	ModelID      string
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func NewClient(apiKey string, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("OpenAI model ID is required")
	}

	openaiClient := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(3),
	)

	return &Client{
		Client:       openaiClient,
		ModelID:      model,
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     12 * time.Second,
	}, nil
}

func (c *Client) Invoke(ctx context.Context, request llm.Request) (*llm.Response, error) {
	message := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(request.Prompt),
		},
		MaxCompletionTokens: openai.Int(int64(request.MaxTokens)),
		Temperature:         openai.Float(request.Temperature),
		Model:               openai.ChatModel(c.ModelID),
	}

	output, err := c.Client.Chat.Completions.New(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("unable to invoke gpt model. Error: %w", err)
	}

	if len(output.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	response := output.Choices[0]
	return &llm.Response{
		Content:    response.Message.Content,
		StopReason: fmt.Sprint(response.FinishReason),
	}, nil
}

func (c *Client) InvokeWithRetry(ctx context.Context, request llm.Request) (*llm.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.MaxRetries; attempt++ {
		response, err := c.Invoke(ctx, request)
		if err == nil {
			return response, nil
		}
		lastErr = err

		delay := backoff(attempt, c.InitialDelay, c.MaxDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			continue
		}
	}

	return nil, fmt.Errorf("max retries %d exceeded: %w", c.MaxRetries, lastErr)
}

func backoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	d := float64(initialDelay) * math.Pow(2, float64(attempt))
	if d > float64(maxDelay) {
		d = float64(maxDelay)
	}
	d += d * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(d)
}
