package semantic

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultOpenAIEmbeddingModel = "text-embedding-3-small"

// OpenAIEmbedder produces text embeddings through the OpenAI embeddings
// API. It satisfies metrics.Embedder.
type OpenAIEmbedder struct {
	client  openai.Client
	modelID string
}

func NewOpenAIEmbedder(apiKey string, modelID string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if modelID == "" {
		modelID = DefaultOpenAIEmbeddingModel
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(3),
	)

	return &OpenAIEmbedder{
		client:  client,
		modelID: modelID,
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	output, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: openai.EmbeddingModel(e.modelID),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to invoke embedding model. Error: %w", err)
	}

	if len(output.Data) == 0 {
		return nil, fmt.Errorf("no embeddings in response")
	}
	return output.Data[0].Embedding, nil
}
