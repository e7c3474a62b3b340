package aggregator

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/models"
)

// Aggregator folds a run's case results into run-level summary metrics.
type Aggregator struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate averages every computed metric across the run's cases,
// skipping null and non-finite observations. A metric that was observed
// somewhere but never finitely gets a null average, not zero. pass_rate
// is always present and is 1.0 for an empty run.
func (a *Aggregator) Aggregate(results []models.EvaluationResult) models.Summary {
	summary := models.Summary{}

	type acc struct {
		sum float64
		n   int
	}
	accs := map[string]*acc{}

	observe := func(name string, v float64) {
		entry := accs[name]
		if entry == nil {
			entry = &acc{}
			accs[name] = entry
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}
		entry.sum += v
		entry.n++
	}

	passed := 0
	for i := range results {
		r := &results[i]
		if r.Passed {
			passed++
		}
		if r.Faithfulness != nil {
			observe("faithfulness", *r.Faithfulness)
		}
		if r.AnswerRelevancy != nil {
			observe("answer_relevancy", *r.AnswerRelevancy)
		}
		if r.ContextPrecision != nil {
			observe("context_precision", *r.ContextPrecision)
		}
		if r.ContextRecall != nil {
			observe("context_recall", *r.ContextRecall)
		}
		for name, v := range r.ExtendedMetrics {
			observe(name, v)
		}
	}

	for name, entry := range accs {
		if entry.n == 0 {
			summary["avg_"+name] = nil
			continue
		}
		avg := entry.sum / float64(entry.n)
		summary["avg_"+name] = &avg
	}

	total := len(results)
	passRate := 1.0
	if total > 0 {
		passRate = float64(passed) / float64(total)
	}

	summary["total_cases"] = floatPtr(float64(total))
	summary["passed_cases"] = floatPtr(float64(passed))
	summary["failed_cases"] = floatPtr(float64(total - passed))
	summary["pass_rate"] = &passRate

	a.logger.Info().
		Int("total_cases", total).
		Int("passed_cases", passed).
		Float64("pass_rate", passRate).
		Msg("aggregation complete")

	return summary
}

func floatPtr(v float64) *float64 { return &v }
