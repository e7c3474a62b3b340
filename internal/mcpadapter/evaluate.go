// Package mcpadapter exposes the engine as MCP tools: ad-hoc case
// scoring and gate inspection over stdio.
package mcpadapter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/scorer"
)

// EvaluateInput is the MCP tool input schema (matches HTTP API field names).
type EvaluateInput struct {
	Query       string   `json:"query" jsonschema:"user's original query"`
	Answer      string   `json:"answer" jsonschema:"system response to evaluate"`
	Context     []string `json:"context,omitempty" jsonschema:"optional retrieved documents"`
	GroundTruth string   `json:"ground_truth,omitempty" jsonschema:"optional reference answer"`
	SystemType  string   `json:"system_type,omitempty" jsonschema:"system type: rag, agent, chatbot, search, classification, summarization, translation, code_gen, or custom (default: rag)"`
	MustContain string   `json:"must_contain,omitempty" jsonschema:"optional substring the answer must contain"`
}

// NewEvaluateHandler returns a tool handler that scores one ad-hoc case
// with the given scorer. Pass the returned function to mcp.AddTool.
func NewEvaluateHandler(sc *scorer.Scorer) func(context.Context, *mcp.CallToolRequest, EvaluateInput) (*mcp.CallToolResult, models.EvaluationResult, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input EvaluateInput) (*mcp.CallToolResult, models.EvaluationResult, error) {
		return EvaluateCase(ctx, sc, req, input)
	}
}

// EvaluateCase scores the supplied answer as a transient test case. The
// scorer's stored-text path carries the answer, so no adapter runs.
func EvaluateCase(
	ctx context.Context,
	sc *scorer.Scorer,
	req *mcp.CallToolRequest,
	input EvaluateInput,
) (*mcp.CallToolResult, models.EvaluationResult, error) {
	systemType := models.SystemTypeRAG
	if input.SystemType != "" {
		parsed, err := models.ParseSystemType(input.SystemType)
		if err != nil {
			return nil, models.EvaluationResult{}, err
		}
		systemType = parsed
	}

	tc := models.TestCase{
		ID:             uuid.New(),
		Query:          input.Query,
		ExpectedOutput: input.Answer,
		GroundTruth:    input.GroundTruth,
		Context:        input.Context,
		CreatedAt:      time.Now().UTC(),
	}
	if input.MustContain != "" {
		tc.FailureRules = []models.Rule{{Type: models.RuleMustContain, Value: input.MustContain}}
	}

	run := &models.EvaluationRun{
		ID:        uuid.New(),
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	result := sc.Score(ctx, run, systemType, tc, nil)
	return nil, result, nil
}
