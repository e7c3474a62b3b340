package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/api/middleware"
	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/gate"
	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/store"
	"github.com/evalgate/evalgate/internal/stream"
)

const defaultRunListLimit = 20

type Handler struct {
	store     store.Store
	publisher stream.Publisher
	decider   *gate.Decider
	differ    *gate.Differ
	cfg       *config.Config
	logger    zerolog.Logger
}

func NewHandler(
	s store.Store,
	publisher stream.Publisher,
	decider *gate.Decider,
	differ *gate.Differ,
	cfg *config.Config,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		store:     s,
		publisher: publisher,
		decider:   decider,
		differ:    differ,
		cfg:       cfg,
		logger:    logger,
	}
}

// Health handler GET /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}

// POST /api/v1/test-sets
func (h *Handler) CreateTestSet(req *restful.Request, resp *restful.Response) {
	var body CreateTestSetRequest
	if err := req.ReadEntity(&body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		middleware.HandleError(resp, errors.New("name is required"), http.StatusBadRequest)
		return
	}

	ctx := req.Request.Context()
	now := time.Now().UTC()
	set := &models.TestSet{
		ID:          uuid.New(),
		Name:        body.Name,
		Description: body.Description,
		SystemType:  body.SystemType,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.SaveTestSet(ctx, set); err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	for _, c := range body.Cases {
		tc := &models.TestCase{
			ID:                uuid.New(),
			TestSetID:         set.ID,
			Query:             c.Query,
			ExpectedOutput:    c.ExpectedOutput,
			GroundTruth:       c.GroundTruth,
			Context:           c.Context,
			FailureRules:      c.FailureRules,
			Tags:              c.Tags,
			ExpectedLabels:    c.ExpectedLabels,
			ExpectedRanking:   c.ExpectedRanking,
			ConversationTurns: c.ConversationTurns,
			ExpectedToolCalls: c.ExpectedToolCalls,
			MinSteps:          c.MinSteps,
			EntitiesToRetain:  c.EntitiesToRetain,
			CreatedAt:         now,
		}
		if err := h.store.SaveTestCase(ctx, tc); err != nil {
			middleware.HandleError(resp, err, http.StatusInternalServerError)
			return
		}
	}

	h.logger.Info().
		Str("test_set_id", set.ID.String()).
		Str("name", set.Name).
		Int("cases", len(body.Cases)).
		Msg("Test set created")
	resp.WriteHeaderAndEntity(http.StatusCreated, set)
}

// GET /api/v1/test-sets
func (h *Handler) ListTestSets(req *restful.Request, resp *restful.Response) {
	sets, err := h.store.ListTestSets(req.Request.Context())
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, sets)
}

// GET /api/v1/test-sets/{test_set_id}/cases
func (h *Handler) ListTestCases(req *restful.Request, resp *restful.Response) {
	id, ok := h.pathID(req, resp, "test_set_id")
	if !ok {
		return
	}
	cases, err := h.store.ListTestCases(req.Request.Context(), id)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, cases)
}

// GET /api/v1/test-sets/{test_set_id}/metrics/{metric}
func (h *Handler) MetricsHistory(req *restful.Request, resp *restful.Response) {
	id, ok := h.pathID(req, resp, "test_set_id")
	if !ok {
		return
	}
	history, err := h.store.ListMetricsHistory(req.Request.Context(), id, req.PathParameter("metric"))
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, history)
}

// POST /api/v1/runs
//
// Creates the run in PENDING with its threshold snapshot, then hands it
// to the worker stream. The snapshot is the configured defaults for the
// test set's system type, overridden metric by metric from the request.
func (h *Handler) TriggerRun(req *restful.Request, resp *restful.Response) {
	var body TriggerRunRequest
	if err := req.ReadEntity(&body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	ctx := req.Request.Context()
	set, err := h.store.GetTestSet(ctx, body.TestSetID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.HandleError(resp, fmt.Errorf("test set %s not found", body.TestSetID), http.StatusNotFound)
		return
	}
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	thresholds := h.cfg.ThresholdsFor(set.SystemType)
	for metric, threshold := range body.Thresholds {
		thresholds[metric] = threshold
	}

	run := &models.EvaluationRun{
		ID:                    uuid.New(),
		TestSetID:             set.ID,
		PipelineVersion:       body.PipelineVersion,
		GitCommitSHA:          body.GitCommitSHA,
		GitBranch:             body.GitBranch,
		TriggeredBy:           body.TriggeredBy,
		Status:                models.RunStatusPending,
		StartedAt:             time.Now().UTC(),
		GateThresholdSnapshot: thresholds,
		PipelineConfig:        body.PipelineConfig,
		Notes:                 body.Notes,
	}
	if err := h.store.CreateRun(ctx, run); err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	if _, err := h.publisher.Publish(ctx, run.ID); err != nil {
		h.logger.Error().Err(err).Str("run_id", run.ID.String()).Msg("Failed to enqueue run")
		middleware.HandleError(resp, fmt.Errorf("run created but not enqueued: %w", err), http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Str("run_id", run.ID.String()).
		Str("test_set_id", set.ID.String()).
		Str("triggered_by", run.TriggeredBy).
		Msg("Run triggered")
	resp.WriteHeaderAndEntity(http.StatusAccepted, run)
}

// GET /api/v1/runs
func (h *Handler) ListRuns(req *restful.Request, resp *restful.Response) {
	testSetID := uuid.Nil
	if raw := req.QueryParameter("test_set_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			middleware.HandleError(resp, fmt.Errorf("invalid test_set_id: %w", err), http.StatusBadRequest)
			return
		}
		testSetID = parsed
	}

	limit := defaultRunListLimit
	if raw := req.QueryParameter("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.store.ListRuns(req.Request.Context(), testSetID, limit)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, runs)
}

// GET /api/v1/runs/{run_id}
func (h *Handler) GetRun(req *restful.Request, resp *restful.Response) {
	run, ok := h.loadRun(req, resp)
	if !ok {
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, run)
}

// GET /api/v1/runs/{run_id}/results
func (h *Handler) ListResults(req *restful.Request, resp *restful.Response) {
	id, ok := h.pathID(req, resp, "run_id")
	if !ok {
		return
	}
	results, err := h.store.ListResults(req.Request.Context(), id)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, results)
}

// GET /api/v1/runs/{run_id}/gate
func (h *Handler) GateDecision(req *restful.Request, resp *restful.Response) {
	run, ok := h.loadRun(req, resp)
	if !ok {
		return
	}
	if !run.Status.Terminal() {
		middleware.HandleError(resp, fmt.Errorf("run %s is %s, gate undecided", run.ID, run.Status), http.StatusConflict)
		return
	}

	results, err := h.store.ListResults(req.Request.Context(), run.ID)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, h.decider.Decide(run, results))
}

// GET /api/v1/runs/{run_id}/diff
func (h *Handler) RegressionDiff(req *restful.Request, resp *restful.Response) {
	run, ok := h.loadRun(req, resp)
	if !ok {
		return
	}

	diff, err := h.differ.Diff(req.Request.Context(), run)
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	resp.WriteHeaderAndEntity(http.StatusOK, diff)
}

// POST /api/v1/runs/{run_id}/cancel
//
// Cancellation is a request: the worker honors it at case boundaries,
// and terminal runs are immutable.
func (h *Handler) CancelRun(req *restful.Request, resp *restful.Response) {
	run, ok := h.loadRun(req, resp)
	if !ok {
		return
	}
	if run.Status.Terminal() {
		middleware.HandleError(resp, fmt.Errorf("run %s is already %s", run.ID, run.Status), http.StatusConflict)
		return
	}

	run.Status = models.RunStatusFailed
	now := time.Now().UTC()
	run.CompletedAt = &now
	if run.Notes == "" {
		run.Notes = "cancelled by request"
	}
	if err := h.store.UpdateRun(req.Request.Context(), run); err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("run_id", run.ID.String()).Msg("Run cancelled")
	resp.WriteHeaderAndEntity(http.StatusOK, run)
}

func (h *Handler) pathID(req *restful.Request, resp *restful.Response, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(req.PathParameter(name))
	if err != nil {
		middleware.HandleError(resp, fmt.Errorf("invalid %s: %w", name, err), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) loadRun(req *restful.Request, resp *restful.Response) (*models.EvaluationRun, bool) {
	id, ok := h.pathID(req, resp, "run_id")
	if !ok {
		return nil, false
	}

	run, err := h.store.GetRun(req.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		middleware.HandleError(resp, fmt.Errorf("run %s not found", id), http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}
