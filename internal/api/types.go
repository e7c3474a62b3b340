package api

import (
	"github.com/google/uuid"

	"github.com/evalgate/evalgate/internal/models"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// CreateTestSetRequest registers a test set with its cases in one call.
type CreateTestSetRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	SystemType  models.SystemType `json:"system_type"`
	Cases       []CreateCase      `json:"cases,omitempty"`
}

type CreateCase struct {
	Query             string            `json:"query"`
	ExpectedOutput    string            `json:"expected_output,omitempty"`
	GroundTruth       string            `json:"ground_truth,omitempty"`
	Context           []string          `json:"context,omitempty"`
	FailureRules      []models.Rule     `json:"failure_rules,omitempty"`
	Tags              []string          `json:"tags,omitempty"`
	ExpectedLabels    []string          `json:"expected_labels,omitempty"`
	ExpectedRanking   []string          `json:"expected_ranking,omitempty"`
	ConversationTurns []models.Turn     `json:"conversation_turns,omitempty"`
	ExpectedToolCalls []models.ToolCall `json:"expected_tool_calls,omitempty"`
	MinSteps          *int              `json:"min_steps,omitempty"`
	EntitiesToRetain  []string          `json:"entities_to_retain,omitempty"`
}

// TriggerRunRequest starts an evaluation run. Thresholds override the
// configured per-system-type defaults metric by metric; the merged map
// becomes the run's immutable snapshot.
type TriggerRunRequest struct {
	TestSetID       uuid.UUID          `json:"test_set_id"`
	PipelineVersion string             `json:"pipeline_version,omitempty"`
	GitCommitSHA    string             `json:"git_commit_sha,omitempty"`
	GitBranch       string             `json:"git_branch,omitempty"`
	TriggeredBy     string             `json:"triggered_by,omitempty"`
	PipelineConfig  map[string]any     `json:"pipeline_config,omitempty"`
	Thresholds      map[string]float64 `json:"thresholds,omitempty"`
	Notes           string             `json:"notes,omitempty"`
}
