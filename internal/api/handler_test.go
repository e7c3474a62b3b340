package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/api"
	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/gate"
	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/store"
)

type fakePublisher struct {
	published []uuid.UUID
}

func (f *fakePublisher) Publish(ctx context.Context, runID uuid.UUID) (string, error) {
	f.published = append(f.published, runID)
	return "stream-msg-1", nil
}

type testAPI struct {
	container *restful.Container
	store     *store.MemoryStore
	publisher *fakePublisher
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	nop := zerolog.Nop()

	memory := store.NewMemory()
	publisher := &fakePublisher{}
	handler := api.NewHandler(
		memory,
		publisher,
		gate.NewDecider(nop),
		gate.NewDiffer(memory, nop),
		config.Default(),
		nop,
	)

	container := restful.NewContainer()
	api.RegisterRoutes(container, handler)
	return &testAPI{container: container, store: memory, publisher: publisher}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	a.container.ServeHTTP(recorder, req)
	return recorder
}

func TestAPI_Health(t *testing.T) {

	a := setupTestAPI(t)

	recorder := a.do(t, http.MethodGet, "/api/v1/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d, want: 200", recorder.Code)
	}

	var response api.HealthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("status: %q, want: ok", response.Status)
	}
}

func TestAPI_CreateTestSetWithCases(t *testing.T) {

	a := setupTestAPI(t)

	recorder := a.do(t, http.MethodPost, "/api/v1/test-sets", api.CreateTestSetRequest{
		Name:       "Demo RAG",
		SystemType: models.SystemTypeRAG,
		Cases: []api.CreateCase{
			{
				Query:        "What is the capital of France?",
				GroundTruth:  "Paris is the capital of France.",
				FailureRules: []models.Rule{{Type: models.RuleMustContain, Value: "Paris"}},
			},
		},
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d, want: 201. Body: %s", recorder.Code, recorder.Body.String())
	}

	var set models.TestSet
	if err := json.Unmarshal(recorder.Body.Bytes(), &set); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if set.Name != "Demo RAG" || set.SystemType != models.SystemTypeRAG {
		t.Errorf("set: %+v", set)
	}

	recorder = a.do(t, http.MethodGet, "/api/v1/test-sets/"+set.ID.String()+"/cases", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list cases status: %d", recorder.Code)
	}
	var cases []models.TestCase
	if err := json.Unmarshal(recorder.Body.Bytes(), &cases); err != nil {
		t.Fatalf("parse cases: %v", err)
	}
	if len(cases) != 1 || len(cases[0].FailureRules) != 1 {
		t.Errorf("cases: %+v, want one case with one rule", cases)
	}
}

func TestAPI_CreateTestSetRequiresName(t *testing.T) {

	a := setupTestAPI(t)

	recorder := a.do(t, http.MethodPost, "/api/v1/test-sets", api.CreateTestSetRequest{
		SystemType: models.SystemTypeRAG,
	})
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status: %d, want: 400", recorder.Code)
	}
}

func TestAPI_TriggerRun(t *testing.T) {

	a := setupTestAPI(t)
	ctx := context.Background()

	set := &models.TestSet{
		ID:         uuid.New(),
		Name:       "rag set",
		SystemType: models.SystemTypeRAG,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.SaveTestSet(ctx, set); err != nil {
		t.Fatalf("save test set: %v", err)
	}

	recorder := a.do(t, http.MethodPost, "/api/v1/runs", api.TriggerRunRequest{
		TestSetID:      set.ID,
		TriggeredBy:    "ci",
		PipelineConfig: map[string]any{"adapter": "demo_rag"},
		Thresholds:     map[string]float64{"pass_rate": 0.95},
	})
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("status: %d, want: 202. Body: %s", recorder.Code, recorder.Body.String())
	}

	var run models.EvaluationRun
	if err := json.Unmarshal(recorder.Body.Bytes(), &run); err != nil {
		t.Fatalf("parse run: %v", err)
	}
	if run.Status != models.RunStatusPending {
		t.Errorf("status: %s, want: pending", run.Status)
	}
	// Request overrides win; untouched defaults survive.
	if run.GateThresholdSnapshot["pass_rate"] != 0.95 {
		t.Errorf("pass_rate threshold: %v, want: 0.95", run.GateThresholdSnapshot["pass_rate"])
	}
	if run.GateThresholdSnapshot["faithfulness"] != 0.7 {
		t.Errorf("faithfulness threshold: %v, want default 0.7", run.GateThresholdSnapshot["faithfulness"])
	}

	if len(a.publisher.published) != 1 || a.publisher.published[0] != run.ID {
		t.Errorf("published: %v, want the new run", a.publisher.published)
	}
}

func TestAPI_TriggerRunUnknownTestSet(t *testing.T) {

	a := setupTestAPI(t)

	recorder := a.do(t, http.MethodPost, "/api/v1/runs", api.TriggerRunRequest{
		TestSetID: uuid.New(),
	})
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status: %d, want: 404", recorder.Code)
	}
}

func TestAPI_GateRequiresTerminalRun(t *testing.T) {

	a := setupTestAPI(t)
	ctx := context.Background()

	run := &models.EvaluationRun{
		ID:        uuid.New(),
		TestSetID: uuid.New(),
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := a.store.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	recorder := a.do(t, http.MethodGet, "/api/v1/runs/"+run.ID.String()+"/gate", nil)
	if recorder.Code != http.StatusConflict {
		t.Errorf("status: %d, want: 409 while running", recorder.Code)
	}
}

func TestAPI_CancelRun(t *testing.T) {

	a := setupTestAPI(t)
	ctx := context.Background()

	run := &models.EvaluationRun{
		ID:        uuid.New(),
		TestSetID: uuid.New(),
		Status:    models.RunStatusPending,
		StartedAt: time.Now().UTC(),
	}
	if err := a.store.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	recorder := a.do(t, http.MethodPost, "/api/v1/runs/"+run.ID.String()+"/cancel", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d, want: 200. Body: %s", recorder.Code, recorder.Body.String())
	}

	var cancelled models.EvaluationRun
	if err := json.Unmarshal(recorder.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("parse run: %v", err)
	}
	if cancelled.Status != models.RunStatusFailed {
		t.Errorf("status: %s, want: failed", cancelled.Status)
	}

	// A second cancel hits a terminal run.
	recorder = a.do(t, http.MethodPost, "/api/v1/runs/"+run.ID.String()+"/cancel", nil)
	if recorder.Code != http.StatusConflict {
		t.Errorf("status: %d, want: 409", recorder.Code)
	}
}

func TestAPI_GetRunErrors(t *testing.T) {

	a := setupTestAPI(t)

	recorder := a.do(t, http.MethodGet, "/api/v1/runs/not-a-uuid", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status: %d, want: 400 for a bad UUID", recorder.Code)
	}

	recorder = a.do(t, http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil)
	if recorder.Code != http.StatusNotFound {
		t.Errorf("status: %d, want: 404 for an unknown run", recorder.Code)
	}
}
