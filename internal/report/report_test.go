package report

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/evalgate/evalgate/internal/models"
)

func metric(v float64) *float64 { return &v }

func TestWriteRun(t *testing.T) {

	caseID := uuid.New()
	completed := time.Now().UTC()
	run := &models.EvaluationRun{
		ID:              uuid.New(),
		TestSetID:       uuid.New(),
		PipelineVersion: "demo_rag/k3",
		Status:          models.RunStatusGateBlocked,
		CompletedAt:     &completed,
		SummaryMetrics: models.Summary{
			"avg_faithfulness": metric(0.85),
			"avg_ndcg_at_k":    metric(0.6),
			"pass_rate":        metric(0.5),
			"total_cases":      metric(2),
			"passed_cases":     metric(1),
			"failed_cases":     metric(1),
		},
	}

	var sb strings.Builder
	WriteRun(&sb, Run{
		Run: run,
		Results: []models.EvaluationResult{
			{TestCaseID: caseID, Passed: false, FailureReason: "Rule must_contain failed: Output is missing required substring: \"Paris\""},
		},
		Queries: map[string]string{caseID.String(): "What is the capital of France?"},
		Gate: &models.GateDecision{
			Passed: false,
			MetricFailures: []models.MetricFailure{
				{Metric: "pass_rate", Actual: 0.5, Threshold: 0.9, Delta: -0.4},
			},
		},
	})
	out := sb.String()

	for _, want := range []string{
		"GATE_BLOCKED",
		"demo_rag/k3",
		"Faithfulness",
		"ndcg_at_k",
		"1/2 passed",
		"What is the capital of France?",
		"RELEASE GATE : BLOCKED",
		"pass_rate: 0.500 < 0.900",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteDiff(t *testing.T) {

	baseline := uuid.New()
	delta := -0.3
	diff := &models.RegressionDiff{
		RunID:         uuid.New(),
		BaselineRunID: &baseline,
		Regressions: []models.RegressionItem{
			{
				TestCaseID:     uuid.New(),
				Query:          "What is the capital of France?",
				FailureReason:  "Composite score 0.200 below 0.5",
				CurrentScores:  map[string]*float64{"faithfulness": metric(0.4)},
				BaselineScores: map[string]*float64{"faithfulness": metric(0.9)},
			},
		},
		Improvements: []models.RegressionItem{},
		MetricDeltas: map[string]*float64{"avg_faithfulness": &delta, "avg_context_recall": nil},
		GateBlocked:  true,
	}

	var sb strings.Builder
	WriteDiff(&sb, diff)
	out := sb.String()

	for _, want := range []string{
		baseline.String(),
		"NEW FAILURES (1)",
		"Composite score 0.200 below 0.5",
		"0.900 -> 0.400",
		"avg_faithfulness",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("diff report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteDiffNoBaseline(t *testing.T) {

	var sb strings.Builder
	WriteDiff(&sb, &models.RegressionDiff{
		RunID:        uuid.New(),
		Regressions:  []models.RegressionItem{},
		Improvements: []models.RegressionItem{},
		MetricDeltas: map[string]*float64{},
	})

	if !strings.Contains(sb.String(), "Baseline Run : none") {
		t.Errorf("missing none baseline:\n%s", sb.String())
	}
	if !strings.Contains(sb.String(), "No regressions detected") {
		t.Errorf("missing no-regressions line:\n%s", sb.String())
	}
}
