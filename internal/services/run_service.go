package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AlexPunches/1x-fit/internal/etl"
	"github.com/AlexPunches/1x-fit/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("run not found")

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// RunService records pipeline executions in etl_runs.
type RunService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRunService(db *gorm.DB) *RunService {
	return &RunService{db: db, now: time.Now}
}

// Start inserts a running entry and returns its id.
func (s *RunService) Start(ctx context.Context, pipeline, trigger string) (uuid.UUID, error) {
	run := models.EtlRun{
		ID:        uuid.New(),
		Pipeline:  pipeline,
		Trigger:   trigger,
		Status:    models.RunStatusRunning,
		StartedAt: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

// Finish stores the outcome of a run started with Start.
func (s *RunService) Finish(ctx context.Context, id uuid.UUID, stats etl.RunStats, runErr error) error {
	var run models.EtlRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRunNotFound
		}
		return err
	}

	finished := s.now().UTC()
	updates := map[string]any{
		"status":      models.RunStatusSucceeded,
		"finished_at": finished,
		"duration_ms": finished.Sub(run.StartedAt).Milliseconds(),
		"error":       "",
	}
	if b, err := json.Marshal(stats); err == nil {
		updates["stats"] = datatypes.JSON(b)
	}
	if runErr != nil {
		updates["status"] = models.RunStatusFailed
		updates["error"] = runErr.Error()
	}

	return s.db.WithContext(ctx).Model(&models.EtlRun{}).Where("id = ?", id).Updates(updates).Error
}

// Recent lists the latest runs, newest first, optionally for one pipeline.
func (s *RunService) Recent(ctx context.Context, pipeline string, limit int) ([]models.EtlRun, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	q := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit)
	if pipeline != "" {
		q = q.Where("pipeline = ?", pipeline)
	}

	var runs []models.EtlRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// LastSuccess returns the most recent successful run of a pipeline.
func (s *RunService) LastSuccess(ctx context.Context, pipeline string) (*models.EtlRun, error) {
	var run models.EtlRun
	err := s.db.WithContext(ctx).
		Where("pipeline = ? AND status = ?", pipeline, models.RunStatusSucceeded).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
