package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/evalgate/evalgate/internal/models"
)

// SQLiteStore persists engine state in a SQLite database through GORM.
// The glebarez driver is pure Go, so no cgo toolchain is needed.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database %s: %w", path, err)
	}

	err = db.AutoMigrate(
		&models.TestSet{},
		&models.TestCase{},
		&models.EvaluationRun{},
		&models.EvaluationResult{},
		&models.MetricsHistory{},
	)
	if err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveTestSet(ctx context.Context, testSet *models.TestSet) error {
	return s.db.WithContext(ctx).Save(testSet).Error
}

func (s *SQLiteStore) GetTestSet(ctx context.Context, id uuid.UUID) (*models.TestSet, error) {
	var testSet models.TestSet
	err := s.db.WithContext(ctx).First(&testSet, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &testSet, nil
}

func (s *SQLiteStore) ListTestSets(ctx context.Context) ([]models.TestSet, error) {
	var testSets []models.TestSet
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&testSets).Error
	return testSets, err
}

func (s *SQLiteStore) SaveTestCase(ctx context.Context, testCase *models.TestCase) error {
	return s.db.WithContext(ctx).Save(testCase).Error
}

func (s *SQLiteStore) ListTestCases(ctx context.Context, testSetID uuid.UUID) ([]models.TestCase, error) {
	var testCases []models.TestCase
	err := s.db.WithContext(ctx).
		Where("test_set_id = ?", testSetID).
		Order("created_at ASC").
		Find(&testCases).Error
	return testCases, err
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.EvaluationRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.EvaluationRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*models.EvaluationRun, error) {
	var run models.EvaluationRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, testSetID uuid.UUID, limit int) ([]models.EvaluationRun, error) {
	var runs []models.EvaluationRun
	query := s.db.WithContext(ctx).Order("started_at DESC, id DESC")
	if testSetID != uuid.Nil {
		query = query.Where("test_set_id = ?", testSetID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

func (s *SQLiteStore) LatestPassingRun(ctx context.Context, testSetID uuid.UUID, exclude uuid.UUID) (*models.EvaluationRun, error) {
	var run models.EvaluationRun
	err := s.db.WithContext(ctx).
		Where("test_set_id = ? AND id <> ? AND status = ? AND overall_passed = ?",
			testSetID, exclude, models.RunStatusCompleted, true).
		Order("completed_at DESC, id DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveResult upserts on (run_id, test_case_id), so redelivering a run
// whose results were already persisted rewrites rows instead of
// duplicating them.
func (s *SQLiteStore) SaveResult(ctx context.Context, result *models.EvaluationResult) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "test_case_id"}},
			UpdateAll: true,
		}).
		Create(result).Error
}

func (s *SQLiteStore) ListResults(ctx context.Context, runID uuid.UUID) ([]models.EvaluationResult, error) {
	var results []models.EvaluationResult
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("evaluated_at ASC").
		Find(&results).Error
	return results, err
}

func (s *SQLiteStore) SaveMetricsHistory(ctx context.Context, entries []models.MetricsHistory) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&entries).Error
}

func (s *SQLiteStore) ListMetricsHistory(ctx context.Context, testSetID uuid.UUID, metricName string) ([]models.MetricsHistory, error) {
	var entries []models.MetricsHistory
	query := s.db.WithContext(ctx).Where("test_set_id = ?", testSetID)
	if metricName != "" {
		query = query.Where("metric_name = ?", metricName)
	}
	err := query.Order("recorded_at ASC").Find(&entries).Error
	return entries, err
}
