package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/evalgate/evalgate/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence boundary for the engine. Implementations
// must be safe for concurrent use.
type Store interface {
	SaveTestSet(ctx context.Context, testSet *models.TestSet) error
	GetTestSet(ctx context.Context, id uuid.UUID) (*models.TestSet, error)
	ListTestSets(ctx context.Context) ([]models.TestSet, error)

	SaveTestCase(ctx context.Context, testCase *models.TestCase) error
	ListTestCases(ctx context.Context, testSetID uuid.UUID) ([]models.TestCase, error)

	CreateRun(ctx context.Context, run *models.EvaluationRun) error
	UpdateRun(ctx context.Context, run *models.EvaluationRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.EvaluationRun, error)
	ListRuns(ctx context.Context, testSetID uuid.UUID, limit int) ([]models.EvaluationRun, error)

	// LatestPassingRun returns the most recent completed run of the test
	// set whose gate passed, excluding the given run. Recency is by
	// completion time, with run ID as the tie-break. Returns ErrNotFound
	// when no such run exists.
	LatestPassingRun(ctx context.Context, testSetID uuid.UUID, exclude uuid.UUID) (*models.EvaluationRun, error)

	SaveResult(ctx context.Context, result *models.EvaluationResult) error
	ListResults(ctx context.Context, runID uuid.UUID) ([]models.EvaluationResult, error)

	SaveMetricsHistory(ctx context.Context, entries []models.MetricsHistory) error
	ListMetricsHistory(ctx context.Context, testSetID uuid.UUID, metricName string) ([]models.MetricsHistory, error)
}
