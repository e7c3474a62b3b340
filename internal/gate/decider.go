package gate

import (
	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/models"
)

// Decider applies a run's frozen threshold snapshot to its summary
// metrics. The decision is a pure function of snapshot, summary, and
// the run's rule outcomes, so re-deciding a run is always safe.
type Decider struct {
	logger zerolog.Logger
}

func NewDecider(logger zerolog.Logger) *Decider {
	return &Decider{logger: logger}
}

// Decide checks every threshold in the snapshot against the run's
// summary and collects rule-failing cases. A threshold whose metric was
// never computed does not block; neither does a metric without a
// threshold. Any rule failure blocks regardless of metric values.
func (d *Decider) Decide(run *models.EvaluationRun, results []models.EvaluationResult) models.GateDecision {
	decision := models.GateDecision{
		RunID:          run.ID,
		Passed:         true,
		MetricFailures: []models.MetricFailure{},
		RuleFailures:   []models.RuleFailure{},
	}

	for metric, threshold := range run.GateThresholdSnapshot {
		actual, ok := summaryValue(run.SummaryMetrics, metric)
		if !ok {
			continue
		}
		if actual < threshold {
			decision.MetricFailures = append(decision.MetricFailures, models.MetricFailure{
				Metric:    metric,
				Actual:    actual,
				Threshold: threshold,
				Delta:     actual - threshold,
			})
		}
	}

	for i := range results {
		r := &results[i]
		if r.RulesPassed != nil && !*r.RulesPassed {
			decision.RuleFailures = append(decision.RuleFailures, models.RuleFailure{
				ResultID:    r.ID,
				TestCaseID:  r.TestCaseID,
				RulesDetail: r.RulesDetail,
			})
		}
	}

	decision.Passed = len(decision.MetricFailures) == 0 && len(decision.RuleFailures) == 0

	d.logger.Info().
		Str("run_id", run.ID.String()).
		Bool("passed", decision.Passed).
		Int("metric_failures", len(decision.MetricFailures)).
		Int("rule_failures", len(decision.RuleFailures)).
		Msg("gate decided")

	return decision
}

// summaryValue resolves a threshold name against the summary. Threshold
// snapshots use bare metric names; summaries prefix averaged metrics
// with avg_ while counters like pass_rate keep their own names.
func summaryValue(summary models.Summary, metric string) (float64, bool) {
	if v, ok := summary[metric]; ok && v != nil {
		return *v, true
	}
	if v, ok := summary["avg_"+metric]; ok && v != nil {
		return *v, true
	}
	return 0, false
}
