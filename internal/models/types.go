package models

import (
	"time"

	"github.com/google/uuid"
)

// ToolCall is one recorded tool invocation from a pipeline trace.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result any            `json:"result,omitempty"`
}

// Turn is a single message in a multi-turn conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PipelineOutput is what a pipeline adapter hands back for one query.
type PipelineOutput struct {
	Answer            string         `json:"answer"`
	RetrievedContexts []string       `json:"retrieved_contexts,omitempty"`
	ToolCalls         []ToolCall     `json:"tool_calls,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	TurnHistory       []Turn         `json:"turn_history,omitempty"`
}

// TestSet groups test cases for one system under evaluation.
type TestSet struct {
	ID          uuid.UUID  `json:"id" gorm:"type:text;primaryKey"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	SystemType  SystemType `json:"system_type" gorm:"type:text"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TestCase is one immutable evaluation specification. The engine only
// reads test cases; authoring is an external concern.
type TestCase struct {
	ID                uuid.UUID  `json:"id" gorm:"type:text;primaryKey"`
	TestSetID         uuid.UUID  `json:"test_set_id" gorm:"type:text;index"`
	Query             string     `json:"query"`
	ExpectedOutput    string     `json:"expected_output,omitempty"`
	GroundTruth       string     `json:"ground_truth,omitempty"`
	Context           []string   `json:"context,omitempty" gorm:"serializer:json"`
	FailureRules      []Rule     `json:"failure_rules,omitempty" gorm:"serializer:json"`
	Tags              []string   `json:"tags,omitempty" gorm:"serializer:json"`
	ExpectedLabels    []string   `json:"expected_labels,omitempty" gorm:"serializer:json"`
	ExpectedRanking   []string   `json:"expected_ranking,omitempty" gorm:"serializer:json"`
	ConversationTurns []Turn     `json:"conversation_turns,omitempty" gorm:"serializer:json"`
	ExpectedToolCalls []ToolCall `json:"expected_tool_calls,omitempty" gorm:"serializer:json"`
	MinSteps          *int       `json:"min_steps,omitempty"`
	EntitiesToRetain  []string   `json:"entities_to_retain,omitempty" gorm:"serializer:json"`
	CreatedAt         time.Time  `json:"created_at"`
}

// EvaluationRun is one evaluation attempt against a test set.
//
// GateThresholdSnapshot is captured when the run is created and never
// mutated afterward; the gate decision is a pure function of that
// snapshot and the run's summary metrics.
type EvaluationRun struct {
	ID                    uuid.UUID          `json:"id" gorm:"type:text;primaryKey"`
	TestSetID             uuid.UUID          `json:"test_set_id" gorm:"type:text;index"`
	PipelineVersion       string             `json:"pipeline_version,omitempty"`
	GitCommitSHA          string             `json:"git_commit_sha,omitempty"`
	GitBranch             string             `json:"git_branch,omitempty"`
	TriggeredBy           string             `json:"triggered_by,omitempty"`
	Status                RunStatus          `json:"status" gorm:"type:text;index"`
	StartedAt             time.Time          `json:"started_at"`
	CompletedAt           *time.Time         `json:"completed_at,omitempty"`
	OverallPassed         *bool              `json:"overall_passed,omitempty"`
	GateThresholdSnapshot map[string]float64 `json:"gate_threshold_snapshot,omitempty" gorm:"serializer:json"`
	SummaryMetrics        Summary            `json:"summary_metrics,omitempty" gorm:"serializer:json"`
	Notes                 string             `json:"notes,omitempty"`
	PipelineConfig        map[string]any     `json:"pipeline_config,omitempty" gorm:"serializer:json"`
}

// Summary maps a summary-metric name to its run-level value. A nil value
// means the metric had no finite observations in the run.
type Summary map[string]*float64

// EvaluationResult is one scored outcome for a (run, test case) pair.
// The four named metric columns are the RAG family; every other family
// reports through ExtendedMetrics, where a missing key means the metric
// was not computed.
type EvaluationResult struct {
	ID               uuid.UUID          `json:"id" gorm:"type:text;primaryKey"`
	RunID            uuid.UUID          `json:"run_id" gorm:"type:text;uniqueIndex:idx_results_run_case"`
	TestCaseID       uuid.UUID          `json:"test_case_id" gorm:"type:text;uniqueIndex:idx_results_run_case"`
	Faithfulness     *float64           `json:"faithfulness,omitempty"`
	AnswerRelevancy  *float64           `json:"answer_relevancy,omitempty"`
	ContextPrecision *float64           `json:"context_precision,omitempty"`
	ContextRecall    *float64           `json:"context_recall,omitempty"`
	RulesPassed      *bool              `json:"rules_passed,omitempty"`
	RulesDetail      []RuleDetail       `json:"rules_detail,omitempty" gorm:"serializer:json"`
	Passed           bool               `json:"passed"`
	FailureReason    string             `json:"failure_reason,omitempty"`
	RawOutput        string             `json:"raw_output,omitempty"`
	RawContexts      []string           `json:"raw_contexts,omitempty" gorm:"serializer:json"`
	ToolCalls        []ToolCall         `json:"tool_calls,omitempty" gorm:"serializer:json"`
	ExtendedMetrics  map[string]float64 `json:"extended_metrics,omitempty" gorm:"serializer:json"`
	DurationMs       int64              `json:"duration_ms"`
	EvaluatedAt      time.Time          `json:"evaluated_at"`
}

// MetricsHistory is one recorded summary-metric observation, kept per
// run for trend queries across a test set's history.
type MetricsHistory struct {
	ID              uuid.UUID `json:"id" gorm:"type:text;primaryKey"`
	TestSetID       uuid.UUID `json:"test_set_id" gorm:"type:text;index"`
	RunID           uuid.UUID `json:"run_id" gorm:"type:text;index"`
	MetricName      string    `json:"metric_name"`
	MetricValue     float64   `json:"metric_value"`
	PipelineVersion string    `json:"pipeline_version,omitempty"`
	GitCommitSHA    string    `json:"git_commit_sha,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}
