package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/llm"
)

const qualityPrompt = `You are a translation quality rater. Score the translation below
on adequacy and fluency against the source and reference.

Source text:
{{.Source}}

Candidate translation:
{{.Hypothesis}}

Reference translation:
{{.Reference}}

Respond with JSON only, in the form {"score": <float 0.0-1.0>, "reason": "<one sentence>"}.`

var qualityTemplate = template.Must(template.New("quality").Parse(qualityPrompt))

// QualityScorer rates translation quality with an LLM judge. It
// satisfies metrics.QualityScorer.
type QualityScorer struct {
	client      llm.Client
	maxTokens   int
	temperature float64
	logger      zerolog.Logger
}

func NewQualityScorer(client llm.Client, logger zerolog.Logger) *QualityScorer {
	return &QualityScorer{
		client:      client,
		maxTokens:   256,
		temperature: 0.0,
		logger:      logger,
	}
}

type qualityResponse struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

func (q *QualityScorer) Score(ctx context.Context, source, hypothesis, reference string) (float64, error) {
	var buf bytes.Buffer
	err := qualityTemplate.Execute(&buf, map[string]string{
		"Source":     source,
		"Hypothesis": hypothesis,
		"Reference":  reference,
	})
	if err != nil {
		return 0, fmt.Errorf("template execution failed: %w", err)
	}

	resp, err := q.client.InvokeWithRetry(ctx, llm.Request{
		Prompt:      buf.String(),
		MaxTokens:   q.maxTokens,
		Temperature: q.temperature,
	})
	if err != nil {
		return 0, fmt.Errorf("quality judge call failed: %w", err)
	}

	content := stripMarkdownCodeBlock(resp.Content)
	var parsed qualityResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		q.logger.Error().
			Err(err).
			Str("content", resp.Content).
			Msg("failed to deserialize quality judge response")
		return 0, fmt.Errorf("failed to deserialize judge response: %w", err)
	}

	if parsed.Score < 0.0 || parsed.Score > 1.0 {
		return 0, fmt.Errorf("judge score %f out of range [0.0, 1.0]", parsed.Score)
	}

	return parsed.Score, nil
}

// stripMarkdownCodeBlock removes markdown code block formatting if present
func stripMarkdownCodeBlock(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		firstNewline := strings.Index(content, "\n")
		if firstNewline == -1 {
			return content
		}

		closingBackticks := strings.LastIndex(content, "```")
		if closingBackticks == -1 || closingBackticks <= firstNewline {
			return content
		}

		content = content[firstNewline+1 : closingBackticks]
		content = strings.TrimSpace(content)
	}

	return content
}
