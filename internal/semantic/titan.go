package semantic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const DefaultTitanModelID = "amazon.titan-embed-text-v2:0"

// TitanEmbedder produces text embeddings through Amazon Bedrock's Titan
// embedding models. It satisfies metrics.Embedder.
type TitanEmbedder struct {
	client  *bedrockruntime.Client
	modelID string
}

func NewTitanEmbedder(ctx context.Context, region string, modelID string) (*TitanEmbedder, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("Unable to load AWS config: %w", err)
	}

	if modelID == "" {
		modelID = DefaultTitanModelID
	}

	return &TitanEmbedder{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

func (e *TitanEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	payload, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("Unable to serialize titan request. Error: %w", err)
	}

	output, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &e.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("Unable to invoke titan model. Error: %w", err)
	}

	var response titanEmbedResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("Failed to unmarshal bedrock response. Error: %w", err)
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("Empty embedding in bedrock response")
	}

	return response.Embedding, nil
}
