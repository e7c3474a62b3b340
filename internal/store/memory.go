package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/evalgate/evalgate/internal/models"
)

// resultKey identifies a result row: one per (run, test case) pair.
type resultKey struct {
	runID      uuid.UUID
	testCaseID uuid.UUID
}

// MemoryStore is an in-memory Store for tests and local experiments.
type MemoryStore struct {
	mu        sync.RWMutex
	testSets  map[uuid.UUID]models.TestSet
	testCases map[uuid.UUID]models.TestCase
	runs      map[uuid.UUID]models.EvaluationRun
	results   map[resultKey]models.EvaluationResult
	history   []models.MetricsHistory
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		testSets:  make(map[uuid.UUID]models.TestSet),
		testCases: make(map[uuid.UUID]models.TestCase),
		runs:      make(map[uuid.UUID]models.EvaluationRun),
		results:   make(map[resultKey]models.EvaluationResult),
	}
}

func (m *MemoryStore) SaveTestSet(_ context.Context, testSet *models.TestSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.testSets[testSet.ID] = *testSet
	return nil
}

func (m *MemoryStore) GetTestSet(_ context.Context, id uuid.UUID) (*models.TestSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	testSet, ok := m.testSets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &testSet, nil
}

func (m *MemoryStore) ListTestSets(_ context.Context) ([]models.TestSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	testSets := make([]models.TestSet, 0, len(m.testSets))
	for _, ts := range m.testSets {
		testSets = append(testSets, ts)
	}
	sort.Slice(testSets, func(i, j int) bool {
		return testSets[i].CreatedAt.After(testSets[j].CreatedAt)
	})
	return testSets, nil
}

func (m *MemoryStore) SaveTestCase(_ context.Context, testCase *models.TestCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.testCases[testCase.ID] = *testCase
	return nil
}

func (m *MemoryStore) ListTestCases(_ context.Context, testSetID uuid.UUID) ([]models.TestCase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var testCases []models.TestCase
	for _, tc := range m.testCases {
		if tc.TestSetID == testSetID {
			testCases = append(testCases, tc)
		}
	}
	sort.Slice(testCases, func(i, j int) bool {
		return testCases[i].CreatedAt.Before(testCases[j].CreatedAt)
	})
	return testCases, nil
}

func (m *MemoryStore) CreateRun(_ context.Context, run *models.EvaluationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryStore) UpdateRun(_ context.Context, run *models.EvaluationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*models.EvaluationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &run, nil
}

func (m *MemoryStore) ListRuns(_ context.Context, testSetID uuid.UUID, limit int) ([]models.EvaluationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var runs []models.EvaluationRun
	for _, run := range m.runs {
		if testSetID != uuid.Nil && run.TestSetID != testSetID {
			continue
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID.String() > runs[j].ID.String()
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MemoryStore) LatestPassingRun(_ context.Context, testSetID uuid.UUID, exclude uuid.UUID) (*models.EvaluationRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []models.EvaluationRun
	for _, run := range m.runs {
		if run.TestSetID != testSetID || run.ID == exclude {
			continue
		}
		if run.Status != models.RunStatusCompleted {
			continue
		}
		if run.OverallPassed == nil || !*run.OverallPassed || run.CompletedAt == nil {
			continue
		}
		candidates = append(candidates, run)
	}
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CompletedAt.Equal(*candidates[j].CompletedAt) {
			return candidates[i].CompletedAt.After(*candidates[j].CompletedAt)
		}
		return candidates[i].ID.String() > candidates[j].ID.String()
	})
	return &candidates[0], nil
}

// SaveResult upserts on (run, test case), so redelivered runs rewrite
// their rows instead of duplicating them.
func (m *MemoryStore) SaveResult(_ context.Context, result *models.EvaluationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[resultKey{runID: result.RunID, testCaseID: result.TestCaseID}] = *result
	return nil
}

func (m *MemoryStore) ListResults(_ context.Context, runID uuid.UUID) ([]models.EvaluationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []models.EvaluationResult
	for _, r := range m.results {
		if r.RunID == runID {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].EvaluatedAt.Equal(results[j].EvaluatedAt) {
			return results[i].EvaluatedAt.Before(results[j].EvaluatedAt)
		}
		return results[i].ID.String() < results[j].ID.String()
	})
	return results, nil
}

func (m *MemoryStore) SaveMetricsHistory(_ context.Context, entries []models.MetricsHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entries...)
	return nil
}

func (m *MemoryStore) ListMetricsHistory(_ context.Context, testSetID uuid.UUID, metricName string) ([]models.MetricsHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []models.MetricsHistory
	for _, e := range m.history {
		if e.TestSetID != testSetID {
			continue
		}
		if metricName != "" && e.MetricName != metricName {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
