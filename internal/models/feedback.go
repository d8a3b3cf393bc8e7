package models

import (
	"time"

	"gorm.io/datatypes"
)

// FeedbackRecord is one normalized unit of user feedback from any source.
// Rows are append-only: nothing is ever updated after insert except the
// Processed flag, which flips false -> true at most once and is never
// reverted. CreatedAt is assigned by the store at insert time with
// second resolution.
type FeedbackRecord struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Source    string         `gorm:"not null;index" json:"source"`
	Content   string         `gorm:"not null;type:text" json:"content"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
	Processed bool           `gorm:"not null;default:false;index" json:"processed"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}
