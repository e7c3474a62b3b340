package gate

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/evalgate/evalgate/internal/models"
	"github.com/evalgate/evalgate/internal/store"
)

type diffFixture struct {
	store     *store.MemoryStore
	testSetID uuid.UUID
	caseA     uuid.UUID
	caseB     uuid.UUID
}

func newDiffFixture(t *testing.T) *diffFixture {
	t.Helper()
	ctx := context.Background()

	f := &diffFixture{
		store:     store.NewMemory(),
		testSetID: uuid.New(),
		caseA:     uuid.New(),
		caseB:     uuid.New(),
	}

	cases := []struct {
		id    uuid.UUID
		query string
	}{
		{f.caseA, "What is the capital of France?"},
		{f.caseB, "What is the capital of Japan?"},
	}
	for _, c := range cases {
		err := f.store.SaveTestCase(ctx, &models.TestCase{
			ID:        c.id,
			TestSetID: f.testSetID,
			Query:     c.query,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("save test case: %v", err)
		}
	}
	return f
}

func (f *diffFixture) addRun(t *testing.T, completed time.Time, passed bool, summary models.Summary, casePassed map[uuid.UUID]bool) *models.EvaluationRun {
	t.Helper()
	ctx := context.Background()

	status := models.RunStatusCompleted
	if !passed {
		status = models.RunStatusGateBlocked
	}
	run := &models.EvaluationRun{
		ID:             uuid.New(),
		TestSetID:      f.testSetID,
		Status:         status,
		StartedAt:      completed.Add(-time.Minute),
		CompletedAt:    &completed,
		OverallPassed:  &passed,
		SummaryMetrics: summary,
	}
	if err := f.store.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	for caseID, ok := range casePassed {
		result := &models.EvaluationResult{
			ID:          uuid.New(),
			RunID:       run.ID,
			TestCaseID:  caseID,
			Passed:      ok,
			EvaluatedAt: completed,
		}
		if !ok {
			result.FailureReason = "Composite score 0.200 below 0.5"
		}
		if err := f.store.SaveResult(ctx, result); err != nil {
			t.Fatalf("save result: %v", err)
		}
	}
	return run
}

func TestDiffNoBaseline(t *testing.T) {

	f := newDiffFixture(t)
	d := NewDiffer(f.store, zerolog.Nop())

	failed := false
	run := &models.EvaluationRun{
		ID:            uuid.New(),
		TestSetID:     f.testSetID,
		Status:        models.RunStatusGateBlocked,
		OverallPassed: &failed,
	}

	diff, err := d.Diff(context.Background(), run)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	if diff.BaselineRunID != nil {
		t.Errorf("baseline_run_id: %v, want: nil", diff.BaselineRunID)
	}
	if len(diff.Regressions) != 0 || len(diff.Improvements) != 0 {
		t.Error("no baseline means an empty diff")
	}
	// Without a baseline, gate_blocked mirrors the run's own verdict.
	if !diff.GateBlocked {
		t.Error("a failing run without baseline should report gate_blocked")
	}
}

func TestDiffClassifiesFlips(t *testing.T) {

	f := newDiffFixture(t)
	d := NewDiffer(f.store, zerolog.Nop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f.addRun(t, base, true,
		models.Summary{"pass_rate": metric(1.0), "avg_faithfulness": metric(0.9)},
		map[uuid.UUID]bool{f.caseA: true, f.caseB: false},
	)

	current := f.addRun(t, base.Add(time.Hour), true,
		models.Summary{"pass_rate": metric(0.5), "avg_faithfulness": metric(0.6)},
		map[uuid.UUID]bool{f.caseA: false, f.caseB: true},
	)

	diff, err := d.Diff(context.Background(), current)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	if len(diff.Regressions) != 1 || diff.Regressions[0].TestCaseID != f.caseA {
		t.Errorf("regressions: %+v, want only case A", diff.Regressions)
	}
	if diff.Regressions[0].Query != "What is the capital of France?" {
		t.Errorf("regression query: %q", diff.Regressions[0].Query)
	}
	if len(diff.Improvements) != 1 || diff.Improvements[0].TestCaseID != f.caseB {
		t.Errorf("improvements: %+v, want only case B", diff.Improvements)
	}
	// Any regression flags the diff, even though the run itself passed.
	if !diff.GateBlocked {
		t.Error("a regression must set gate_blocked")
	}

	if got := diff.MetricDeltas["avg_faithfulness"]; got == nil || math.Abs(*got-(-0.3)) > 1e-9 {
		t.Errorf("avg_faithfulness delta: %v, want: -0.3", got)
	}
	if got := diff.MetricDeltas["pass_rate"]; got == nil || math.Abs(*got-(-0.5)) > 1e-9 {
		t.Errorf("pass_rate delta: %v, want: -0.5", got)
	}
}

func TestDiffPicksLatestPassingBaseline(t *testing.T) {

	f := newDiffFixture(t)
	d := NewDiffer(f.store, zerolog.Nop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f.addRun(t, base, true,
		models.Summary{"pass_rate": metric(1.0)},
		map[uuid.UUID]bool{f.caseA: true})
	latestPassing := f.addRun(t, base.Add(time.Hour), true,
		models.Summary{"pass_rate": metric(1.0)},
		map[uuid.UUID]bool{f.caseA: true})
	// A newer blocked run never becomes the baseline.
	f.addRun(t, base.Add(2*time.Hour), false,
		models.Summary{"pass_rate": metric(0.0)},
		map[uuid.UUID]bool{f.caseA: false})

	current := f.addRun(t, base.Add(3*time.Hour), true,
		models.Summary{"pass_rate": metric(1.0)},
		map[uuid.UUID]bool{f.caseA: true})

	diff, err := d.Diff(context.Background(), current)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}

	if diff.BaselineRunID == nil || *diff.BaselineRunID != latestPassing.ID {
		t.Errorf("baseline: %v, want: %s", diff.BaselineRunID, latestPassing.ID)
	}
	if diff.GateBlocked {
		t.Error("no flips, no block")
	}

	want := &models.RegressionDiff{
		RunID:         current.ID,
		BaselineRunID: &latestPassing.ID,
		Regressions:   []models.RegressionItem{},
		Improvements:  []models.RegressionItem{},
		MetricDeltas:  map[string]*float64{"pass_rate": metric(0.0)},
		GateBlocked:   false,
	}
	if !cmp.Equal(want, diff) {
		t.Errorf("diff mismatch:\n%s", cmp.Diff(want, diff))
	}
}

func TestDiffIgnoresCasesMissingFromBaseline(t *testing.T) {

	f := newDiffFixture(t)
	d := NewDiffer(f.store, zerolog.Nop())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f.addRun(t, base, true,
		models.Summary{"pass_rate": metric(1.0)},
		map[uuid.UUID]bool{f.caseA: true})

	// Case B is new; it has no baseline verdict to flip from.
	current := f.addRun(t, base.Add(time.Hour), true,
		models.Summary{"pass_rate": metric(0.5)},
		map[uuid.UUID]bool{f.caseA: true, f.caseB: false})

	diff, err := d.Diff(context.Background(), current)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(diff.Regressions) != 0 || len(diff.Improvements) != 0 {
		t.Errorf("diff should omit cases absent from the baseline: %+v", diff.Regressions)
	}
}
