package metrics

import (
	"math"
	"testing"
)

func TestPassAtK(t *testing.T) {

	c := Code{}

	tests := []struct {
		name    string
		results []bool
		k       int
		want    float64
	}{
		{"All failing", []bool{false, false, false, false, false}, 1, 0.0},
		{"One of three", []bool{true, false, false}, 1, 1.0 / 3.0},
		{"All passing", []bool{true, true, true}, 1, 1.0},
		{"Fewer samples than k", []bool{true}, 2, 0.0},
		{"All but one pass at k=2", []bool{true, true, false}, 2, 1.0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := c.EvaluatePassAtK(test.results, test.k)
			if math.Abs(got-test.want) > 1e-9 {
				t.Errorf("pass@%d: %f, want: %f", test.k, got, test.want)
			}
		})
	}
}

func TestCodeEvaluate(t *testing.T) {

	c := Code{}

	tests := []struct {
		name          string
		output        string
		hasCodeBlock  float64
		syntaxValid   float64
		securityScore float64
	}{
		{
			name:          "Valid fenced Go code",
			output:        "Here you go:\n```go\nfunc add(a, b int) int {\n\treturn a + b\n}\n```",
			hasCodeBlock:  1.0,
			syntaxValid:   1.0,
			securityScore: 1.0,
		},
		{
			name:          "Broken fenced Go code",
			output:        "```go\nfunc add(a, b int) int {\n\treturn a + b\n```",
			hasCodeBlock:  1.0,
			syntaxValid:   0.0,
			securityScore: 1.0,
		},
		{
			name:          "No fence falls back to raw text",
			output:        "def add(a, b):\n    return a + b",
			hasCodeBlock:  0.0,
			syntaxValid:   1.0,
			securityScore: 1.0,
		},
		{
			name:          "One dangerous pattern",
			output:        "```python\nresult = eval(user_input)\n```",
			hasCodeBlock:  1.0,
			syntaxValid:   1.0,
			securityScore: 0.7,
		},
		{
			name:          "Two dangerous patterns",
			output:        "```python\nimport subprocess\nos.system(cmd)\n```",
			hasCodeBlock:  1.0,
			syntaxValid:   1.0,
			securityScore: 0.4,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := c.Evaluate(test.output, nil)

			if math.Abs(result["has_code_block"]-test.hasCodeBlock) > 1e-9 {
				t.Errorf("has_code_block: %f, want: %f", result["has_code_block"], test.hasCodeBlock)
			}
			if math.Abs(result["syntax_valid"]-test.syntaxValid) > 1e-9 {
				t.Errorf("syntax_valid: %f, want: %f", result["syntax_valid"], test.syntaxValid)
			}
			if math.Abs(result["security_score"]-test.securityScore) > 1e-9 {
				t.Errorf("security_score: %f, want: %f", result["security_score"], test.securityScore)
			}
			if _, ok := result["pass_at_k"]; ok {
				t.Error("pass_at_k should be absent without test results")
			}
		})
	}
}

func TestCodeEvaluateWithTestResults(t *testing.T) {

	c := Code{}
	result := c.Evaluate("```go\npackage main\n```", []bool{true, false})
	if math.Abs(result["pass_at_k"]-0.5) > 1e-9 {
		t.Errorf("pass_at_k: %f, want: 0.5", result["pass_at_k"])
	}
}

func TestSecurityIssues(t *testing.T) {

	c := Code{}
	issues := c.SecurityIssues("```python\npickle.loads(data)\n```")
	if len(issues) != 1 {
		t.Fatalf("issues: %d, want: 1", len(issues))
	}
}
