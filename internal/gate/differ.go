package gate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/store"
)

// Differ compares a run against the latest passing run of the same test
// set. Baselines are immutable once a run completes, so reads need no
// coordination.
type Differ struct {
	store  store.Store
	logger zerolog.Logger
}

func NewDiffer(s store.Store, logger zerolog.Logger) *Differ {
	return &Differ{store: s, logger: logger}
}

// Diff classifies per-case pass/fail flips against the baseline. With
// no baseline the diff is empty and gate_blocked mirrors the run's own
// verdict. With a baseline, gate_blocked is true iff any regression
// exists, independent of the run's own gate status.
func (d *Differ) Diff(ctx context.Context, run *models.EvaluationRun) (*models.RegressionDiff, error) {
	diff := &models.RegressionDiff{
		RunID:        run.ID,
		Regressions:  []models.RegressionItem{},
		Improvements: []models.RegressionItem{},
		MetricDeltas: map[string]*float64{},
	}

	baseline, err := d.store.LatestPassingRun(ctx, run.TestSetID, run.ID)
	if errors.Is(err, store.ErrNotFound) {
		diff.GateBlocked = run.OverallPassed == nil || !*run.OverallPassed
		return diff, nil
	}
	if err != nil {
		return nil, fmt.Errorf("baseline lookup failed: %w", err)
	}
	diff.BaselineRunID = &baseline.ID

	currentResults, err := d.store.ListResults(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("loading current results failed: %w", err)
	}
	baselineResults, err := d.store.ListResults(ctx, baseline.ID)
	if err != nil {
		return nil, fmt.Errorf("loading baseline results failed: %w", err)
	}

	queries, err := d.caseQueries(ctx, run.TestSetID)
	if err != nil {
		return nil, err
	}

	baselineByCase := make(map[uuid.UUID]*models.EvaluationResult, len(baselineResults))
	for i := range baselineResults {
		baselineByCase[baselineResults[i].TestCaseID] = &baselineResults[i]
	}

	for i := range currentResults {
		current := &currentResults[i]
		base, ok := baselineByCase[current.TestCaseID]
		if !ok {
			continue
		}

		item := models.RegressionItem{
			TestCaseID:     current.TestCaseID,
			Query:          queries[current.TestCaseID],
			FailureReason:  current.FailureReason,
			CurrentScores:  caseScores(current),
			BaselineScores: caseScores(base),
		}
		switch {
		case base.Passed && !current.Passed:
			diff.Regressions = append(diff.Regressions, item)
		case !base.Passed && current.Passed:
			diff.Improvements = append(diff.Improvements, item)
		}
	}

	diff.MetricDeltas = summaryDeltas(run.SummaryMetrics, baseline.SummaryMetrics)
	diff.GateBlocked = len(diff.Regressions) > 0

	d.logger.Info().
		Str("run_id", run.ID.String()).
		Str("baseline_run_id", baseline.ID.String()).
		Int("regressions", len(diff.Regressions)).
		Int("improvements", len(diff.Improvements)).
		Bool("gate_blocked", diff.GateBlocked).
		Msg("regression diff computed")

	return diff, nil
}

func (d *Differ) caseQueries(ctx context.Context, testSetID uuid.UUID) (map[uuid.UUID]string, error) {
	testCases, err := d.store.ListTestCases(ctx, testSetID)
	if err != nil {
		return nil, fmt.Errorf("loading test cases failed: %w", err)
	}
	queries := make(map[uuid.UUID]string, len(testCases))
	for _, tc := range testCases {
		queries[tc.ID] = tc.Query
	}
	return queries, nil
}

// caseScores flattens a result's metric values into one map for diff
// reporting.
func caseScores(r *models.EvaluationResult) map[string]*float64 {
	scores := map[string]*float64{
		"faithfulness":      r.Faithfulness,
		"answer_relevancy":  r.AnswerRelevancy,
		"context_precision": r.ContextPrecision,
		"context_recall":    r.ContextRecall,
	}
	for name, v := range r.ExtendedMetrics {
		value := v
		scores[name] = &value
	}
	return scores
}

// summaryDeltas computes current minus baseline per summary metric,
// null when either side is missing.
func summaryDeltas(current, baseline models.Summary) map[string]*float64 {
	deltas := map[string]*float64{}
	names := map[string]struct{}{}
	for name := range current {
		names[name] = struct{}{}
	}
	for name := range baseline {
		names[name] = struct{}{}
	}

	for name := range names {
		cur, curOK := current[name]
		base, baseOK := baseline[name]
		if !curOK || !baseOK || cur == nil || base == nil {
			deltas[name] = nil
			continue
		}
		delta := *cur - *base
		deltas[name] = &delta
	}
	return deltas
}
