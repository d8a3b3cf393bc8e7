package models

import (
	"time"

	"gorm.io/datatypes"
)

// PipelineRun status constants
const (
	RunStatusPending      = "pending"
	RunStatusProcessing   = "processing"
	RunStatusCompleted    = "completed"
	RunStatusFailed       = "failed"
	RunStatusEmpty        = "empty"
	RunStatusNoneEligible = "no_unprocessed"
)

// PipelineRun tracks a single dispatch of the feedback processing pipeline.
// Runs are short-lived; a failed run is retried whole by the task runner and
// the same row records the eventual outcome. Input snapshots the dispatch
// payload for operator debugging.
type PipelineRun struct {
	ID             uint           `gorm:"primarykey" json:"-"`
	RunID          string         `gorm:"uniqueIndex;not null" json:"run_id"`
	Source         string         `gorm:"not null;index" json:"source"`
	Status         string         `gorm:"not null;default:'pending';index" json:"status"`
	ItemCount      int            `gorm:"not null;default:0" json:"item_count"`
	StoredCount    int            `gorm:"not null;default:0" json:"stored_count"`
	ProcessedCount int            `gorm:"not null;default:0" json:"processed_count"`
	SummaryID      *uint          `json:"summary_id,omitempty"`
	Input          datatypes.JSON `gorm:"type:jsonb" json:"-"`
	ErrorMessage   string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
}
