package models

// RuleType names one check in the failure-rule DSL. The set is open on
// the wire: a rule with an unrecognized type is recorded as skipped
// rather than failing the case.
type RuleType string

const (
	RuleMustNotContain          RuleType = "must_not_contain"
	RuleMustContain             RuleType = "must_contain"
	RuleMustCallTool            RuleType = "must_call_tool"
	RuleMustNotCallTool         RuleType = "must_not_call_tool"
	RuleRegexMustMatch          RuleType = "regex_must_match"
	RuleRegexMustNotMatch       RuleType = "regex_must_not_match"
	RuleMaxHallucinationRisk    RuleType = "max_hallucination_risk"
	RuleMustRefuse              RuleType = "must_refuse"
	RuleCustom                  RuleType = "custom"
	RuleMustReturnLabel         RuleType = "must_return_label"
	RuleMaxLatencyMs            RuleType = "max_latency_ms"
	RuleMustNotContainPII       RuleType = "must_not_contain_pii"
	RuleJSONSchemaValid         RuleType = "json_schema_valid"
	RuleMaxTokenCount           RuleType = "max_token_count"
	RuleMustCiteSource          RuleType = "must_cite_source"
	RuleSemanticSimilarityAbove RuleType = "semantic_similarity_above"
)

// Rule is one declarative failure rule attached to a test case. Only the
// fields relevant to its type are set.
type Rule struct {
	Type       RuleType       `json:"type"`
	Value      string         `json:"value,omitempty"`
	Tool       string         `json:"tool,omitempty"`
	Pattern    string         `json:"pattern,omitempty"`
	Threshold  *float64       `json:"threshold,omitempty"`
	Labels     []string       `json:"labels,omitempty"`
	Schema     map[string]any `json:"schema,omitempty"`
	MaxTokens  *int           `json:"max_tokens,omitempty"`
	Expected   string         `json:"expected,omitempty"`
	Identifier string         `json:"identifier,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
}

// RuleDetail records the outcome of one rule check.
type RuleDetail struct {
	Rule   Rule   `json:"rule"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// RuleOutcome is the result of evaluating a case's full rule list.
// Details is non-nil even when the rule list is empty.
type RuleOutcome struct {
	Passed  bool         `json:"passed"`
	Details []RuleDetail `json:"details"`
}
