package runner

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/adapter"
	"github.com/evalgate/evalgate/internal/aggregator"
	"github.com/evalgate/evalgate/internal/gate"
	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/scorer"
	"github.com/evalgate/evalgate/internal/store"
)

// Runner drives one evaluation run from PENDING to a terminal state:
// adapter setup, sequential case scoring, aggregation, gate decision.
type Runner struct {
	store      store.Store
	scorer     *scorer.Scorer
	aggregator *aggregator.Aggregator
	gate       *gate.Decider
	registry   *adapter.Registry
	logger     zerolog.Logger
}

func New(
	s store.Store,
	sc *scorer.Scorer,
	agg *aggregator.Aggregator,
	decider *gate.Decider,
	registry *adapter.Registry,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		store:      s,
		scorer:     sc,
		aggregator: agg,
		gate:       decider,
		registry:   registry,
		logger:     logger,
	}
}

// Process executes the run with the given ID. Terminal runs are left
// untouched, so redelivered messages are harmless. Errors from Process
// mean the run could not be loaded or persisted; evaluation failures
// end in the run's own FAILED status instead.
func (r *Runner) Process(ctx context.Context, runID uuid.UUID) error {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("loading run %s failed: %w", runID, err)
	}
	if run.Status.Terminal() {
		r.logger.Info().
			Str("run_id", runID.String()).
			Str("status", run.Status.String()).
			Msg("run already terminal, skipping")
		return nil
	}

	run.Status = models.RunStatusRunning
	if err := r.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("marking run %s running failed: %w", runID, err)
	}
	r.logger.Info().Str("run_id", runID.String()).Msg("run started")

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Any("panic", rec).
				Str("run_id", runID.String()).
				Msg("run panicked")
			r.fail(ctx, run, fmt.Sprintf("run panicked: %v", rec))
		}
	}()

	testSet, err := r.store.GetTestSet(ctx, run.TestSetID)
	if err != nil {
		r.fail(ctx, run, fmt.Sprintf("test set %s not found: %v", run.TestSetID, err))
		return nil
	}

	pipeline, teardown, err := r.buildPipeline(ctx, run)
	if err != nil {
		r.fail(ctx, run, err.Error())
		return nil
	}
	defer teardown()

	if run.PipelineVersion == "" {
		run.PipelineVersion = pipelineVersionFromConfig(run.PipelineConfig)
	}

	testCases, err := r.store.ListTestCases(ctx, run.TestSetID)
	if err != nil {
		r.fail(ctx, run, fmt.Sprintf("loading test cases failed: %v", err))
		return nil
	}

	results := make([]models.EvaluationResult, 0, len(testCases))
	for _, tc := range testCases {
		if ctx.Err() != nil {
			r.fail(context.WithoutCancel(ctx), run, fmt.Sprintf("run cancelled after %d of %d cases", len(results), len(testCases)))
			return nil
		}
		// Cancellation requests land as a terminal status written by the
		// API; honor them at case boundaries.
		if stopped, err := r.reachedTerminalState(ctx, runID); err != nil {
			r.fail(ctx, run, fmt.Sprintf("re-reading run status failed: %v", err))
			return nil
		} else if stopped {
			return nil
		}

		result := r.scorer.Score(ctx, run, testSet.SystemType, tc, pipeline)
		if err := r.store.SaveResult(ctx, &result); err != nil {
			r.fail(ctx, run, fmt.Sprintf("saving result for case %s failed: %v", tc.ID, err))
			return nil
		}
		results = append(results, result)
	}

	run.SummaryMetrics = r.aggregator.Aggregate(results)

	decision := r.gate.Decide(run, results)
	passed := decision.Passed
	run.OverallPassed = &passed
	if passed {
		run.Status = models.RunStatusCompleted
	} else {
		run.Status = models.RunStatusGateBlocked
	}
	now := time.Now().UTC()
	run.CompletedAt = &now

	// Terminal states are immutable: if a cancellation landed while the
	// last case was scoring, the stored FAILED status wins.
	if stopped, err := r.reachedTerminalState(ctx, runID); err != nil {
		return fmt.Errorf("re-reading run %s failed: %w", runID, err)
	} else if stopped {
		return nil
	}

	if err := r.store.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("persisting run %s failed: %w", runID, err)
	}

	if err := r.recordHistory(ctx, run); err != nil {
		// History is for trend queries; a write failure must not undo a
		// finished run.
		r.logger.Warn().Err(err).Str("run_id", runID.String()).Msg("recording metrics history failed")
	}

	r.logger.Info().
		Str("run_id", runID.String()).
		Str("status", run.Status.String()).
		Int("cases", len(results)).
		Bool("passed", passed).
		Msg("run finished")
	return nil
}

// buildPipeline resolves the adapter named in the run config. A missing
// identifier means the run scores stored expected text only. An unknown
// identifier is a configuration error and fails the run. A Setup
// failure degrades to stored text, matching how per-case adapter errors
// are handled.
func (r *Runner) buildPipeline(ctx context.Context, run *models.EvaluationRun) (scorer.Pipeline, func(), error) {
	noop := func() {}

	name, _ := run.PipelineConfig["adapter"].(string)
	if name == "" {
		return nil, noop, nil
	}

	a, err := r.registry.Create(name, run.PipelineConfig)
	if err != nil {
		return nil, noop, fmt.Errorf("adapter %q cannot be constructed: %v", name, err)
	}

	if err := a.Setup(ctx); err != nil {
		r.logger.Warn().
			Err(err).
			Str("adapter", name).
			Str("run_id", run.ID.String()).
			Msg("adapter setup failed, scoring against stored text")
		return nil, noop, nil
	}

	teardown := func() {
		if err := a.Teardown(); err != nil {
			r.logger.Warn().Err(err).Str("adapter", name).Msg("adapter teardown failed")
		}
	}
	return a, teardown, nil
}

// reachedTerminalState reports whether the stored run has moved to a
// terminal status behind the worker's back.
func (r *Runner) reachedTerminalState(ctx context.Context, runID uuid.UUID) (bool, error) {
	stored, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return false, err
	}
	if stored.Status.Terminal() {
		r.logger.Info().
			Str("run_id", runID.String()).
			Str("status", stored.Status.String()).
			Msg("run reached a terminal state elsewhere, stopping")
		return true, nil
	}
	return false, nil
}

func (r *Runner) fail(ctx context.Context, run *models.EvaluationRun, reason string) {
	if stored, err := r.store.GetRun(ctx, run.ID); err == nil && stored.Status.Terminal() {
		r.logger.Info().
			Str("run_id", run.ID.String()).
			Str("status", stored.Status.String()).
			Str("reason", reason).
			Msg("run already terminal, not overwriting")
		return
	}

	run.Status = models.RunStatusFailed
	now := time.Now().UTC()
	run.CompletedAt = &now
	if run.Notes == "" {
		run.Notes = reason
	}

	r.logger.Error().
		Str("run_id", run.ID.String()).
		Str("reason", reason).
		Msg("run failed")

	if err := r.store.UpdateRun(ctx, run); err != nil {
		r.logger.Error().Err(err).Str("run_id", run.ID.String()).Msg("persisting failed run")
	}
}

// recordHistory writes one row per finite summary metric for trend
// queries.
func (r *Runner) recordHistory(ctx context.Context, run *models.EvaluationRun) error {
	now := time.Now().UTC()
	rows := make([]models.MetricsHistory, 0, len(run.SummaryMetrics))
	for name, value := range run.SummaryMetrics {
		if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
			continue
		}
		rows = append(rows, models.MetricsHistory{
			ID:              uuid.New(),
			TestSetID:       run.TestSetID,
			RunID:           run.ID,
			MetricName:      name,
			MetricValue:     *value,
			PipelineVersion: run.PipelineVersion,
			GitCommitSHA:    run.GitCommitSHA,
			RecordedAt:      now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return r.store.SaveMetricsHistory(ctx, rows)
}

// pipelineVersionFromConfig derives a stable version label when the
// trigger did not provide one.
func pipelineVersionFromConfig(config map[string]any) string {
	if config == nil {
		return ""
	}
	var parts []string
	if adapterName, _ := config["adapter"].(string); adapterName != "" {
		parts = append(parts, adapterName)
	}
	if model, _ := config["model"].(string); model != "" {
		parts = append(parts, model)
	}
	switch k := config["top_k"].(type) {
	case int:
		parts = append(parts, fmt.Sprintf("k%d", k))
	case float64:
		parts = append(parts, fmt.Sprintf("k%d", int(k)))
	}
	return strings.Join(parts, "/")
}
