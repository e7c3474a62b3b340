package scorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/metrics"
	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/rules"
)

//go:generate mockgen -source=scorer.go -destination=mocks/pipeline_mock.go -package=mocks

// Pipeline produces a system-under-test response for one query.
// Adapters may fail; the scorer treats that as non-fatal.
type Pipeline interface {
	Run(ctx context.Context, query string) (*models.PipelineOutput, error)
}

// compositeThreshold is the per-case pass bar: the mean of a case's
// non-null primary metrics must reach it. Run-level gate thresholds are
// calibrated for aggregates; the per-case bar stays forgiving of
// single-metric noise.
const compositeThreshold = 0.5

const defaultPipelineTimeout = 60 * time.Second

// Scorer evaluates one test case end to end: pipeline call, metric
// family dispatch, rule evaluation, composite verdict.
type Scorer struct {
	rules          *rules.Engine
	ranking        *metrics.Ranking
	rag            metrics.RAG
	agent          metrics.Agent
	classification metrics.Classification
	conversation   metrics.Conversation
	code           metrics.Code
	similarity     *metrics.Similarity
	translation    *metrics.Translation

	pipelineTimeout time.Duration
	logger          zerolog.Logger
}

type Config struct {
	// PipelineTimeout bounds each adapter call. A timeout is treated
	// exactly like an adapter error: stored-text fallback.
	PipelineTimeout time.Duration

	// RankingK is the cutoff for search-family metrics.
	RankingK int
}

func New(
	ruleEngine *rules.Engine,
	similarity *metrics.Similarity,
	translation *metrics.Translation,
	cfg Config,
	logger zerolog.Logger,
) *Scorer {
	timeout := cfg.PipelineTimeout
	if timeout <= 0 {
		timeout = defaultPipelineTimeout
	}

	return &Scorer{
		rules:           ruleEngine,
		ranking:         metrics.NewRanking(cfg.RankingK),
		agent:           metrics.Agent{},
		similarity:      similarity,
		translation:     translation,
		pipelineTimeout: timeout,
		logger:          logger,
	}
}

// Score evaluates one (test case, run) pair. It never returns an error:
// pipeline and metric failures degrade into recorded failure reasons so
// the run keeps moving. Re-scoring the same pair with unchanged inputs
// yields the same verdict.
func (s *Scorer) Score(
	ctx context.Context,
	run *models.EvaluationRun,
	systemType models.SystemType,
	tc models.TestCase,
	pipeline Pipeline,
) models.EvaluationResult {
	start := time.Now()

	result := models.EvaluationResult{
		ID:          uuid.New(),
		RunID:       run.ID,
		TestCaseID:  tc.ID,
		EvaluatedAt: start.UTC(),
	}

	output, latencyMs := s.collectOutput(ctx, pipeline, tc, &result)
	result.RawOutput = output.Answer
	result.RawContexts = output.RetrievedContexts
	result.ToolCalls = output.ToolCalls

	primaries := s.computeMetrics(ctx, systemType, tc, output, &result)

	if len(tc.FailureRules) > 0 {
		outcome := s.rules.Evaluate(rules.Input{
			Query:        tc.Query,
			Output:       output.Answer,
			ToolCalls:    output.ToolCalls,
			Rules:        tc.FailureRules,
			Faithfulness: result.Faithfulness,
			LatencyMs:    latencyMs,
		})
		result.RulesPassed = &outcome.Passed
		result.RulesDetail = outcome.Details
	}

	s.decide(primaries, &result)
	result.DurationMs = time.Since(start).Milliseconds()

	s.logger.Debug().
		Str("test_case_id", tc.ID.String()).
		Str("run_id", run.ID.String()).
		Bool("passed", result.Passed).
		Int64("duration_ms", result.DurationMs).
		Msg("case scored")

	return result
}

// collectOutput invokes the adapter under a timeout. On any failure the
// case's stored expected text stands in so metrics still compute, and
// the failure is recorded.
func (s *Scorer) collectOutput(
	ctx context.Context,
	pipeline Pipeline,
	tc models.TestCase,
	result *models.EvaluationResult,
) (*models.PipelineOutput, *float64) {
	if pipeline != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.pipelineTimeout)
		defer cancel()

		callStart := time.Now()
		output, err := pipeline.Run(callCtx, tc.Query)
		latency := float64(time.Since(callStart).Milliseconds())

		if err == nil && output != nil {
			return output, &latency
		}
		if err == nil {
			err = fmt.Errorf("adapter returned no output")
		}
		s.logger.Warn().
			Err(err).
			Str("test_case_id", tc.ID.String()).
			Msg("pipeline call failed, falling back to stored text")
		result.FailureReason = fmt.Sprintf("Pipeline error: %v", err)
	}

	answer := tc.ExpectedOutput
	if answer == "" {
		answer = tc.GroundTruth
	}
	return &models.PipelineOutput{
		Answer:            answer,
		RetrievedContexts: tc.Context,
	}, nil
}

// computeMetrics dispatches to exactly one metric family and returns
// the primary values feeding the composite decision. A panicking metric
// leaves its values null instead of killing the run.
func (s *Scorer) computeMetrics(
	ctx context.Context,
	systemType models.SystemType,
	tc models.TestCase,
	output *models.PipelineOutput,
	result *models.EvaluationResult,
) (primaries []float64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Any("panic", r).
				Str("system_type", systemType.String()).
				Str("test_case_id", tc.ID.String()).
				Msg("metric computation panicked")
			if result.FailureReason == "" {
				result.FailureReason = fmt.Sprintf("Metric computation error: %v", r)
			}
			primaries = nil
		}
	}()

	switch systemType {
	case models.SystemTypeRAG:
		scores := s.rag.Evaluate(metrics.RAGInput{
			Query:       tc.Query,
			Answer:      output.Answer,
			Contexts:    output.RetrievedContexts,
			GroundTruth: tc.GroundTruth,
		})
		result.Faithfulness = metricValue(scores, "faithfulness")
		result.AnswerRelevancy = metricValue(scores, "answer_relevancy")
		result.ContextPrecision = metricValue(scores, "context_precision")
		result.ContextRecall = metricValue(scores, "context_recall")
		for _, v := range []*float64{
			result.Faithfulness, result.AnswerRelevancy,
			result.ContextPrecision, result.ContextRecall,
		} {
			if v != nil {
				primaries = append(primaries, *v)
			}
		}
		return primaries

	case models.SystemTypeSearch:
		predicted := metadataStrings(output.Metadata, "ranked_ids")
		result.ExtendedMetrics = s.ranking.Evaluate(predicted, tc.ExpectedRanking)

	case models.SystemTypeAgent:
		result.ExtendedMetrics = s.agent.Evaluate(agentTrace(tc, output))

	case models.SystemTypeChatbot:
		turns := output.TurnHistory
		if len(turns) == 0 {
			turns = tc.ConversationTurns
		}
		result.ExtendedMetrics = s.conversation.Evaluate(metrics.Dialogue{
			Turns:                 turns,
			ExpectedFinalResponse: tc.ExpectedOutput,
			EntitiesToRetain:      tc.EntitiesToRetain,
		})

	case models.SystemTypeCodeGen:
		result.ExtendedMetrics = s.code.Evaluate(output.Answer, nil)

	case models.SystemTypeClassification:
		predicted := metadataStrings(output.Metadata, "labels")
		if len(predicted) == 0 && output.Answer != "" {
			predicted = []string{output.Answer}
		}
		result.ExtendedMetrics = s.classification.Evaluate(predicted, tc.ExpectedLabels)

	case models.SystemTypeTranslation:
		result.ExtendedMetrics = s.translation.Evaluate(ctx, metrics.TranslationInput{
			Hypothesis: output.Answer,
			Reference:  referenceText(tc),
			Source:     tc.Query,
		})

	default:
		// summarization and custom score on text similarity.
		result.ExtendedMetrics = s.similarity.Evaluate(ctx, output.Answer, referenceText(tc))
	}

	for _, v := range result.ExtendedMetrics {
		primaries = append(primaries, v)
	}
	return primaries
}

// decide applies the composite policy: the mean of the non-null primary
// metrics must reach the bar, and any rule failure vetoes the case.
func (s *Scorer) decide(primaries []float64, result *models.EvaluationResult) {
	result.Passed = true

	if len(primaries) > 0 {
		var sum float64
		for _, v := range primaries {
			sum += v
		}
		mean := sum / float64(len(primaries))
		if mean < compositeThreshold {
			result.Passed = false
			if result.FailureReason == "" {
				result.FailureReason = fmt.Sprintf("Composite score %.3f below %.1f", mean, compositeThreshold)
			}
		}
	}

	if result.RulesPassed != nil && !*result.RulesPassed {
		result.Passed = false
		if reason := firstRuleFailure(result.RulesDetail); reason != "" {
			result.FailureReason = reason
		}
	}
}

func firstRuleFailure(details []models.RuleDetail) string {
	for _, d := range details {
		if !d.Passed {
			return fmt.Sprintf("Rule %s failed: %s", string(d.Rule.Type), d.Reason)
		}
	}
	return ""
}

func agentTrace(tc models.TestCase, output *models.PipelineOutput) metrics.Trace {
	predicted := make([]metrics.ToolCall, len(output.ToolCalls))
	for i, call := range output.ToolCalls {
		predicted[i] = metrics.ToolCall{Name: call.Tool, Arguments: call.Args}
	}
	expected := make([]metrics.ToolCall, len(tc.ExpectedToolCalls))
	for i, call := range tc.ExpectedToolCalls {
		expected[i] = metrics.ToolCall{Name: call.Tool, Arguments: call.Args}
	}

	actualSteps := len(output.ToolCalls)
	return metrics.Trace{
		Predicted:      predicted,
		Expected:       expected,
		FinalAnswer:    output.Answer,
		ExpectedAnswer: tc.ExpectedOutput,
		MinSteps:       tc.MinSteps,
		ActualSteps:    &actualSteps,
	}
}

func referenceText(tc models.TestCase) string {
	if tc.ExpectedOutput != "" {
		return tc.ExpectedOutput
	}
	return tc.GroundTruth
}

func metricValue(scores map[string]float64, name string) *float64 {
	v, ok := scores[name]
	if !ok {
		return nil
	}
	return &v
}

// metadataStrings reads a string list out of adapter metadata, which
// arrives as []any after a JSON round trip.
func metadataStrings(metadata map[string]any, key string) []string {
	if metadata == nil {
		return nil
	}
	switch raw := metadata[key].(type) {
	case []string:
		return raw
	case []any:
		values := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				values = append(values, s)
			}
		}
		return values
	default:
		return nil
	}
}
