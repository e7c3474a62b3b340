package rules

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func newTestEngine() *Engine {
	return NewEngine(zerolog.Nop())
}

func TestEvaluateEmptyRuleList(t *testing.T) {

	outcome := newTestEngine().Evaluate(Input{Output: "anything"})

	if !outcome.Passed {
		t.Error("empty rule list should pass")
	}
	if outcome.Details == nil {
		t.Error("details should be non-nil")
	}
	if len(outcome.Details) != 0 {
		t.Errorf("details: %d, want: 0", len(outcome.Details))
	}
}

func TestContainmentRules(t *testing.T) {

	e := newTestEngine()

	tests := []struct {
		name   string
		rule   models.Rule
		output string
		passed bool
		reason string
	}{
		{
			name:   "Must contain present",
			rule:   models.Rule{Type: models.RuleMustContain, Value: "Paris"},
			output: "The capital of France is paris.",
			passed: true,
		},
		{
			name:   "Must contain missing",
			rule:   models.Rule{Type: models.RuleMustContain, Value: "Paris"},
			output: "The capital of France is Lyon.",
			passed: false,
			reason: "missing required substring",
		},
		{
			name:   "Must not contain absent",
			rule:   models.Rule{Type: models.RuleMustNotContain, Value: "password"},
			output: "All good here.",
			passed: true,
		},
		{
			name:   "Must not contain present case-insensitive",
			rule:   models.Rule{Type: models.RuleMustNotContain, Value: "password"},
			output: "Your PASSWORD is hunter2.",
			passed: false,
			reason: "forbidden substring",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcome := e.Evaluate(Input{Output: test.output, Rules: []models.Rule{test.rule}})
			if outcome.Passed != test.passed {
				t.Errorf("passed: %v, want: %v", outcome.Passed, test.passed)
			}
			if test.reason != "" && !strings.Contains(outcome.Details[0].Reason, test.reason) {
				t.Errorf("reason: %q, want substring: %q", outcome.Details[0].Reason, test.reason)
			}
		})
	}
}

func TestToolCallRules(t *testing.T) {

	e := newTestEngine()
	calls := []models.ToolCall{
		{Tool: "calculator", Args: map[string]any{"expression": "2+2"}},
		{Tool: "web_search", Args: map[string]any{"query": "weather"}},
	}

	tests := []struct {
		name   string
		rule   models.Rule
		passed bool
		reason string
	}{
		{
			name:   "Required tool called",
			rule:   models.Rule{Type: models.RuleMustCallTool, Tool: "calculator"},
			passed: true,
		},
		{
			name:   "Required tool not called",
			rule:   models.Rule{Type: models.RuleMustCallTool, Tool: "get_weather"},
			passed: false,
			reason: "was not called",
		},
		{
			name:   "Forbidden tool called",
			rule:   models.Rule{Type: models.RuleMustNotCallTool, Tool: "web_search"},
			passed: false,
			reason: "was called",
		},
		{
			name:   "Forbidden tool not called",
			rule:   models.Rule{Type: models.RuleMustNotCallTool, Tool: "delete_account"},
			passed: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcome := e.Evaluate(Input{ToolCalls: calls, Rules: []models.Rule{test.rule}})
			if outcome.Passed != test.passed {
				t.Errorf("passed: %v, want: %v", outcome.Passed, test.passed)
			}
			if test.reason != "" && !strings.Contains(outcome.Details[0].Reason, test.reason) {
				t.Errorf("reason: %q, want substring: %q", outcome.Details[0].Reason, test.reason)
			}
		})
	}
}

func TestRegexRules(t *testing.T) {

	e := newTestEngine()

	tests := []struct {
		name   string
		rule   models.Rule
		output string
		passed bool
	}{
		{
			name:   "Pattern matches",
			rule:   models.Rule{Type: models.RuleRegexMustMatch, Pattern: `\d{4}-\d{2}-\d{2}`},
			output: "The release date is 2026-01-15.",
			passed: true,
		},
		{
			name:   "Pattern does not match",
			rule:   models.Rule{Type: models.RuleRegexMustMatch, Pattern: `\d{4}-\d{2}-\d{2}`},
			output: "The release date is tomorrow.",
			passed: false,
		},
		{
			name:   "Forbidden pattern found",
			rule:   models.Rule{Type: models.RuleRegexMustNotMatch, Pattern: `internal use only`},
			output: "This document is INTERNAL USE ONLY.",
			passed: false,
		},
		{
			name:   "Invalid pattern fails closed",
			rule:   models.Rule{Type: models.RuleRegexMustMatch, Pattern: `([unclosed`},
			output: "anything",
			passed: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcome := e.Evaluate(Input{Output: test.output, Rules: []models.Rule{test.rule}})
			if outcome.Passed != test.passed {
				t.Errorf("passed: %v, want: %v", outcome.Passed, test.passed)
			}
		})
	}
}

func TestHallucinationRule(t *testing.T) {

	e := newTestEngine()
	rule := models.Rule{Type: models.RuleMaxHallucinationRisk}

	// No faithfulness score available: the rule is skipped, not failed.
	outcome := e.Evaluate(Input{Output: "x", Rules: []models.Rule{rule}})
	if !outcome.Passed {
		t.Error("missing faithfulness should skip, not fail")
	}
	if !strings.Contains(outcome.Details[0].Reason, "skipped") {
		t.Errorf("reason: %q, want a skip note", outcome.Details[0].Reason)
	}

	outcome = e.Evaluate(Input{Output: "x", Faithfulness: floatPtr(0.5), Rules: []models.Rule{rule}})
	if outcome.Passed {
		t.Error("faithfulness 0.5 should fail the default 0.7 threshold")
	}

	strict := models.Rule{Type: models.RuleMaxHallucinationRisk, Threshold: floatPtr(0.4)}
	outcome = e.Evaluate(Input{Output: "x", Faithfulness: floatPtr(0.5), Rules: []models.Rule{strict}})
	if !outcome.Passed {
		t.Error("faithfulness 0.5 should pass a 0.4 threshold")
	}
}

func TestMustRefuseRule(t *testing.T) {

	e := newTestEngine()
	rule := models.Rule{Type: models.RuleMustRefuse}

	outcome := e.Evaluate(Input{
		Output: "I cannot help with that request.",
		Rules:  []models.Rule{rule},
	})
	if !outcome.Passed {
		t.Error("refusal phrase should pass")
	}

	outcome = e.Evaluate(Input{
		Output: "Sure, here is how you do it.",
		Rules:  []models.Rule{rule},
	})
	if outcome.Passed {
		t.Error("compliant answer should fail a must_refuse rule")
	}
}

func TestMustReturnLabelRule(t *testing.T) {

	e := newTestEngine()
	rule := models.Rule{Type: models.RuleMustReturnLabel, Labels: []string{"positive", "negative"}}

	outcome := e.Evaluate(Input{Output: "Sentiment: POSITIVE", Rules: []models.Rule{rule}})
	if !outcome.Passed {
		t.Error("matching label should pass")
	}

	outcome = e.Evaluate(Input{Output: "Sentiment: neutral", Rules: []models.Rule{rule}})
	if outcome.Passed {
		t.Error("unlisted label should fail")
	}

	// No labels configured: nothing to check.
	empty := models.Rule{Type: models.RuleMustReturnLabel}
	outcome = e.Evaluate(Input{Output: "whatever", Rules: []models.Rule{empty}})
	if !outcome.Passed {
		t.Error("rule without labels should skip")
	}
}

func TestLatencyRule(t *testing.T) {

	e := newTestEngine()

	rule := models.Rule{Type: models.RuleMaxLatencyMs}
	outcome := e.Evaluate(Input{Output: "x", Rules: []models.Rule{rule}})
	if !outcome.Passed {
		t.Error("missing latency should skip, not fail")
	}

	outcome = e.Evaluate(Input{Output: "x", LatencyMs: floatPtr(6000), Rules: []models.Rule{rule}})
	if outcome.Passed {
		t.Error("6000ms should exceed the default 5000ms limit")
	}

	fast := models.Rule{Type: models.RuleMaxLatencyMs, Threshold: floatPtr(250)}
	outcome = e.Evaluate(Input{Output: "x", LatencyMs: floatPtr(120), Rules: []models.Rule{fast}})
	if !outcome.Passed {
		t.Error("120ms should be within a 250ms limit")
	}
}

func TestPIIRule(t *testing.T) {

	e := newTestEngine()
	rule := models.Rule{Type: models.RuleMustNotContainPII}

	outcome := e.Evaluate(Input{Output: "Everything looks fine.", Rules: []models.Rule{rule}})
	if !outcome.Passed {
		t.Error("clean output should pass")
	}

	outcome = e.Evaluate(Input{
		Output: "Reach the customer at jane.doe@example.com.",
		Rules:  []models.Rule{rule},
	})
	if outcome.Passed {
		t.Error("email address should fail a PII rule")
	}
	if !strings.Contains(outcome.Details[0].Reason, "email") {
		t.Errorf("reason: %q, want the PII category", outcome.Details[0].Reason)
	}
}

func TestJSONSchemaRule(t *testing.T) {

	e := newTestEngine()

	schema := map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}

	tests := []struct {
		name   string
		rule   models.Rule
		output string
		passed bool
		reason string
	}{
		{
			name:   "Not JSON",
			rule:   models.Rule{Type: models.RuleJSONSchemaValid},
			output: "plain text",
			passed: false,
			reason: "not valid JSON",
		},
		{
			name:   "Valid JSON without schema",
			rule:   models.Rule{Type: models.RuleJSONSchemaValid},
			output: `{"any": "shape"}`,
			passed: true,
		},
		{
			name:   "Matches schema",
			rule:   models.Rule{Type: models.RuleJSONSchemaValid, Schema: schema},
			output: `{"name": "widget"}`,
			passed: true,
		},
		{
			name:   "Missing required field",
			rule:   models.Rule{Type: models.RuleJSONSchemaValid, Schema: schema},
			output: `{"label": "widget"}`,
			passed: false,
			reason: "does not match schema",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcome := e.Evaluate(Input{Output: test.output, Rules: []models.Rule{test.rule}})
			if outcome.Passed != test.passed {
				t.Errorf("passed: %v, want: %v (reason: %q)", outcome.Passed, test.passed, outcome.Details[0].Reason)
			}
			if test.reason != "" && !strings.Contains(outcome.Details[0].Reason, test.reason) {
				t.Errorf("reason: %q, want substring: %q", outcome.Details[0].Reason, test.reason)
			}
		})
	}
}

func TestTokenCountRule(t *testing.T) {

	e := newTestEngine()
	rule := models.Rule{Type: models.RuleMaxTokenCount, MaxTokens: intPtr(3)}

	outcome := e.Evaluate(Input{Output: "one two three", Rules: []models.Rule{rule}})
	if !outcome.Passed {
		t.Error("three tokens should be within a limit of three")
	}

	outcome = e.Evaluate(Input{Output: "one two three four", Rules: []models.Rule{rule}})
	if outcome.Passed {
		t.Error("four tokens should exceed a limit of three")
	}
}

func TestCitationRule(t *testing.T) {

	e := newTestEngine()

	rule := models.Rule{Type: models.RuleMustCiteSource}
	outcome := e.Evaluate(Input{
		Output: "Paris is the capital. [Source: Britannica]",
		Rules:  []models.Rule{rule},
	})
	if !outcome.Passed {
		t.Error("default citation marker should pass")
	}

	outcome = e.Evaluate(Input{Output: "Paris is the capital.", Rules: []models.Rule{rule}})
	if outcome.Passed {
		t.Error("uncited answer should fail")
	}

	custom := models.Rule{Type: models.RuleMustCiteSource, Pattern: "REF-"}
	outcome = e.Evaluate(Input{Output: "See REF-1042 for details.", Rules: []models.Rule{custom}})
	if !outcome.Passed {
		t.Error("custom citation pattern should pass")
	}
}

func TestSemanticSimilarityRule(t *testing.T) {

	e := newTestEngine()

	rule := models.Rule{Type: models.RuleSemanticSimilarityAbove, Expected: "the cat sat on the mat"}
	outcome := e.Evaluate(Input{Output: "the cat sat on the mat", Rules: []models.Rule{rule}})
	if !outcome.Passed {
		t.Error("identical text should pass the default threshold")
	}

	outcome = e.Evaluate(Input{Output: "completely different words here", Rules: []models.Rule{rule}})
	if outcome.Passed {
		t.Error("disjoint text should fail the default threshold")
	}

	// No expected text configured: nothing to compare against.
	empty := models.Rule{Type: models.RuleSemanticSimilarityAbove}
	outcome = e.Evaluate(Input{Output: "whatever", Rules: []models.Rule{empty}})
	if !outcome.Passed {
		t.Error("rule without expected text should skip")
	}
}

type staticExtension struct {
	passed bool
	reason string
}

func (s *staticExtension) Evaluate(string, []models.ToolCall, models.Rule) (bool, string) {
	return s.passed, s.reason
}

type panickingExtension struct{}

func (panickingExtension) Evaluate(string, []models.ToolCall, models.Rule) (bool, string) {
	panic("boom")
}

func TestCustomRules(t *testing.T) {

	e := newTestEngine()
	e.Register("always-pass", &staticExtension{passed: true, reason: "looks good"})
	e.Register("always-fail", &staticExtension{passed: false, reason: "nope"})
	e.Register("explodes", panickingExtension{})

	tests := []struct {
		name   string
		rule   models.Rule
		passed bool
		reason string
	}{
		{
			name:   "Registered passing extension",
			rule:   models.Rule{Type: models.RuleCustom, Identifier: "always-pass"},
			passed: true,
			reason: "looks good",
		},
		{
			name:   "Registered failing extension",
			rule:   models.Rule{Type: models.RuleCustom, Identifier: "always-fail"},
			passed: false,
			reason: "nope",
		},
		{
			name:   "Unregistered identifier fails closed",
			rule:   models.Rule{Type: models.RuleCustom, Identifier: "missing"},
			passed: false,
			reason: "Unregistered",
		},
		{
			name:   "Empty identifier skips",
			rule:   models.Rule{Type: models.RuleCustom},
			passed: true,
			reason: "skipped",
		},
		{
			name:   "Panicking extension fails closed",
			rule:   models.Rule{Type: models.RuleCustom, Identifier: "explodes"},
			passed: false,
			reason: "boom",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			outcome := e.Evaluate(Input{Output: "x", Rules: []models.Rule{test.rule}})
			if outcome.Passed != test.passed {
				t.Errorf("passed: %v, want: %v", outcome.Passed, test.passed)
			}
			if !strings.Contains(outcome.Details[0].Reason, test.reason) {
				t.Errorf("reason: %q, want substring: %q", outcome.Details[0].Reason, test.reason)
			}
		})
	}
}

func TestUnknownRuleType(t *testing.T) {

	e := newTestEngine()
	outcome := e.Evaluate(Input{
		Output: "x",
		Rules:  []models.Rule{{Type: models.RuleType("frobnicate")}},
	})
	if !outcome.Passed {
		t.Error("unknown rule type should pass as skipped")
	}
	if !strings.Contains(outcome.Details[0].Reason, "skipped") {
		t.Errorf("reason: %q, want a skip note", outcome.Details[0].Reason)
	}
}

func TestMultipleRulesAllRecorded(t *testing.T) {

	e := newTestEngine()
	outcome := e.Evaluate(Input{
		Output: "The capital is Paris.",
		Rules: []models.Rule{
			{Type: models.RuleMustContain, Value: "Paris"},
			{Type: models.RuleMustContain, Value: "Berlin"},
			{Type: models.RuleMustNotContain, Value: "error"},
		},
	})

	if outcome.Passed {
		t.Error("one failing rule should fail the case")
	}
	if len(outcome.Details) != 3 {
		t.Fatalf("details: %d, want: 3 (no short-circuit)", len(outcome.Details))
	}
	if !outcome.Details[0].Passed || outcome.Details[1].Passed || !outcome.Details[2].Passed {
		t.Errorf("detail verdicts: %v %v %v, want: true false true",
			outcome.Details[0].Passed, outcome.Details[1].Passed, outcome.Details[2].Passed)
	}
}
