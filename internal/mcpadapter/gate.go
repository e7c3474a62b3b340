package mcpadapter

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/evalgate/evalgate/internal/gate"
	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/store"
)

// GateInput is the MCP tool input schema for gate inspection.
type GateInput struct {
	RunID string `json:"run_id" jsonschema:"UUID of a finished evaluation run"`
}

// NewGateHandler returns a tool handler that explains a finished run's
// release-gate decision. Pass the returned function to mcp.AddTool.
func NewGateHandler(s store.Store, decider *gate.Decider) func(context.Context, *mcp.CallToolRequest, GateInput) (*mcp.CallToolResult, models.GateDecision, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GateInput) (*mcp.CallToolResult, models.GateDecision, error) {
		return InspectGate(ctx, s, decider, req, input)
	}
}

// InspectGate recomputes the gate decision for a terminal run from its
// stored results and threshold snapshot.
func InspectGate(
	ctx context.Context,
	s store.Store,
	decider *gate.Decider,
	req *mcp.CallToolRequest,
	input GateInput,
) (*mcp.CallToolResult, models.GateDecision, error) {
	id, err := uuid.Parse(input.RunID)
	if err != nil {
		return nil, models.GateDecision{}, fmt.Errorf("invalid run_id %q: %w", input.RunID, err)
	}

	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, models.GateDecision{}, err
	}
	if !run.Status.Terminal() {
		return nil, models.GateDecision{}, fmt.Errorf("run %s is %s, gate undecided", run.ID, run.Status)
	}

	results, err := s.ListResults(ctx, run.ID)
	if err != nil {
		return nil, models.GateDecision{}, err
	}

	return nil, decider.Decide(run, results), nil
}
