package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/chorushq/chorus/internal/models"
)

type RunStore struct {
	db *gorm.DB
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun records a new pipeline run, normally in the pending status.
func (s *RunStore) CreateRun(ctx context.Context, run *models.PipelineRun) error {
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create pipeline run: %w", err)
	}
	return nil
}

// UpdateRun applies the given field updates to a run.
func (s *RunStore) UpdateRun(ctx context.Context, run *models.PipelineRun, fields map[string]any) error {
	if err := s.db.WithContext(ctx).Model(run).Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update pipeline run %s: %w", run.RunID, err)
	}
	return nil
}

// GetByRunID looks a run up by its public identifier.
func (s *RunStore) GetByRunID(ctx context.Context, runID string) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
