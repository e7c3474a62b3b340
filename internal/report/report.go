// Package report renders terminal-friendly run and diff reports for
// the batch CLI.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/evalgate/evalgate/internal/models"
)

// Run is everything the run report needs in one place.
type Run struct {
	Run     *models.EvaluationRun
	Results []models.EvaluationResult
	Queries map[string]string // test case ID -> query
	Gate    *models.GateDecision
}

var summaryRows = []struct {
	label string
	key   string
}{
	{"Faithfulness", "avg_faithfulness"},
	{"Answer Relevancy", "avg_answer_relevancy"},
	{"Context Precision", "avg_context_precision"},
	{"Context Recall", "avg_context_recall"},
	{"Pass Rate", "pass_rate"},
}

// WriteRun prints the run report.
func WriteRun(w io.Writer, r Run) {
	run := r.Run
	summary := run.SummaryMetrics

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 70))
	fmt.Fprintln(w, "  EVALGATE  Run Report")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "  Run ID        : %s\n", run.ID)
	fmt.Fprintf(w, "  Test Set      : %s\n", run.TestSetID)
	fmt.Fprintf(w, "  Pipeline Ver  : %s\n", orNA(run.PipelineVersion))
	fmt.Fprintf(w, "  Git Commit    : %s\n", orNA(run.GitCommitSHA))
	fmt.Fprintf(w, "  Branch        : %s\n", orNA(run.GitBranch))
	fmt.Fprintf(w, "  Status        : %s\n\n", strings.ToUpper(run.Status.String()))

	fmt.Fprintln(w, "  METRICS SUMMARY")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 50))
	for _, row := range summaryRows {
		value, ok := summary[row.key]
		if !ok || value == nil {
			continue
		}
		icon := "x"
		if *value >= 0.7 {
			icon = "ok"
		}
		fmt.Fprintf(w, "  %-2s %-22s %.3f  %s\n", icon, row.label, *value, bar(*value))
	}
	// Remaining avg_ metrics, alphabetically, so non-RAG families show
	// up too.
	for _, name := range sortedExtraMetrics(summary) {
		if v := summary[name]; v != nil {
			fmt.Fprintf(w, "     %-22s %.3f  %s\n", strings.TrimPrefix(name, "avg_"), *v, bar(*v))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  TEST CASES  (%s/%s passed)\n", intMetric(summary, "passed_cases"), intMetric(summary, "total_cases"))
	fmt.Fprintln(w, "  "+strings.Repeat("-", 50))
	for _, result := range r.Results {
		icon := "ok"
		reason := ""
		if !result.Passed {
			icon = "x"
			reason = "  -> " + result.FailureReason
		}
		query := r.Queries[result.TestCaseID.String()]
		if query == "" {
			query = result.TestCaseID.String()
		}
		fmt.Fprintf(w, "  %-2s %s%s\n", icon, truncate(query, 55), reason)
	}
	fmt.Fprintln(w)

	if r.Gate != nil {
		label := "BLOCKED"
		if r.Gate.Passed {
			label = "APPROVED"
		}
		fmt.Fprintf(w, "  RELEASE GATE : %s\n", label)
		for _, failure := range r.Gate.MetricFailures {
			fmt.Fprintf(w, "    - %s: %.3f < %.3f (delta %.3f)\n", failure.Metric, failure.Actual, failure.Threshold, failure.Delta)
		}
		for _, failure := range r.Gate.RuleFailures {
			fmt.Fprintf(w, "    - Rule failure on test_case_id=%s\n", failure.TestCaseID)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// WriteDiff prints the regression diff report.
func WriteDiff(w io.Writer, diff *models.RegressionDiff) {
	fmt.Fprintf(w, "\n-- REGRESSION DIFF %s\n", strings.Repeat("-", 51))
	baseline := "none"
	if diff.BaselineRunID != nil {
		baseline = diff.BaselineRunID.String()
	}
	fmt.Fprintf(w, "  Baseline Run : %s\n", baseline)
	fmt.Fprintf(w, "  Current Run  : %s\n\n", diff.RunID)

	if len(diff.MetricDeltas) > 0 {
		fmt.Fprintln(w, "  Metric Deltas (current - baseline):")
		for _, metric := range sortedKeys(diff.MetricDeltas) {
			delta := diff.MetricDeltas[metric]
			if delta == nil {
				continue
			}
			fmt.Fprintf(w, "    %-30s %+.3f\n", metric, *delta)
		}
		fmt.Fprintln(w)
	}

	if len(diff.Regressions) > 0 {
		fmt.Fprintf(w, "  NEW FAILURES (%d) - previously passing, now failing:\n", len(diff.Regressions))
		for _, reg := range diff.Regressions {
			fmt.Fprintf(w, "    x %s\n", truncate(reg.Query, 60))
			reason := reg.FailureReason
			if reason == "" {
				reason = "metric threshold breach"
			}
			fmt.Fprintf(w, "      Reason : %s\n", reason)
			for _, metric := range sortedKeys(reg.CurrentScores) {
				cur := reg.CurrentScores[metric]
				base := reg.BaselineScores[metric]
				if cur == nil || base == nil {
					continue
				}
				fmt.Fprintf(w, "      %-24s %.3f -> %.3f  (%+.3f)\n", metric, *base, *cur, *cur-*base)
			}
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "  No regressions detected")
		fmt.Fprintln(w)
	}

	if len(diff.Improvements) > 0 {
		fmt.Fprintf(w, "  IMPROVEMENTS (%d) - previously failing, now passing:\n", len(diff.Improvements))
		for _, imp := range diff.Improvements {
			fmt.Fprintf(w, "    + %s\n", truncate(imp.Query, 60))
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 70))
}

func bar(value float64) string {
	const width = 20
	filled := int(value * width)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func intMetric(summary models.Summary, key string) string {
	if v := summary[key]; v != nil {
		return fmt.Sprintf("%.0f", *v)
	}
	return "0"
}

func sortedKeys(m map[string]*float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedExtraMetrics lists avg_ metrics not already shown in the fixed
// summary rows.
func sortedExtraMetrics(summary models.Summary) []string {
	shown := map[string]struct{}{}
	for _, row := range summaryRows {
		shown[row.key] = struct{}{}
	}
	var names []string
	for name := range summary {
		if !strings.HasPrefix(name, "avg_") {
			continue
		}
		if _, ok := shown[name]; ok {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
