package models

import "github.com/google/uuid"

// MetricFailure is one breached gate threshold.
type MetricFailure struct {
	Metric    string  `json:"metric"`
	Actual    float64 `json:"actual"`
	Threshold float64 `json:"threshold"`
	Delta     float64 `json:"delta"`
}

// RuleFailure points at a result whose failure rules did not all pass.
type RuleFailure struct {
	ResultID    uuid.UUID    `json:"result_id"`
	TestCaseID  uuid.UUID    `json:"test_case_id"`
	RulesDetail []RuleDetail `json:"rules_detail,omitempty"`
}

// GateDecision is the release verdict for a run. It is derived on
// demand and never persisted.
type GateDecision struct {
	Passed         bool            `json:"passed"`
	RunID          uuid.UUID       `json:"run_id"`
	MetricFailures []MetricFailure `json:"metric_failures"`
	RuleFailures   []RuleFailure   `json:"rule_failures"`
}

// RegressionItem is one test case whose verdict flipped between the
// baseline run and the current run.
type RegressionItem struct {
	TestCaseID     uuid.UUID           `json:"test_case_id"`
	Query          string              `json:"query"`
	FailureReason  string              `json:"failure_reason,omitempty"`
	CurrentScores  map[string]*float64 `json:"current_scores"`
	BaselineScores map[string]*float64 `json:"baseline_scores"`
}

// RegressionDiff compares a run against its most recent passing
// baseline. BaselineRunID is nil when no baseline exists.
type RegressionDiff struct {
	RunID         uuid.UUID           `json:"run_id"`
	BaselineRunID *uuid.UUID          `json:"baseline_run_id"`
	Regressions   []RegressionItem    `json:"regressions"`
	Improvements  []RegressionItem    `json:"improvements"`
	MetricDeltas  map[string]*float64 `json:"metric_deltas"`
	GateBlocked   bool                `json:"gate_blocked"`
}
