package models

import "time"

// SourceSummary is the generated summary of one batch of feedback records
// from a single source. DateRangeStart/End are the min and max CreatedAt of
// the records it covers (both inclusive); FeedbackCount is the exact batch
// size and is always >= 1; summaries are never written for empty batches.
type SourceSummary struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Source         string    `gorm:"not null;index" json:"source"`
	SummaryText    string    `gorm:"not null;type:text" json:"summary_text"`
	DateRangeStart time.Time `gorm:"not null;index" json:"date_range_start"`
	DateRangeEnd   time.Time `gorm:"not null;index" json:"date_range_end"`
	FeedbackCount  int       `gorm:"not null" json:"feedback_count"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

// AggregatedSummary rolls a window of SourceSummaries up into one
// cross-source executive summary. The date range records the query window
// used to select the inputs, not a range recomputed from them. Repeated or
// overlapping windows produce independent rows; nothing deduplicates them.
type AggregatedSummary struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	SummaryText        string    `gorm:"not null;type:text" json:"summary_text"`
	DateRangeStart     time.Time `gorm:"not null" json:"date_range_start"`
	DateRangeEnd       time.Time `gorm:"not null" json:"date_range_end"`
	SourceCount        int       `gorm:"not null" json:"source_count"`
	TotalFeedbackCount int       `gorm:"not null" json:"total_feedback_count"`
	CreatedAt          time.Time `gorm:"not null;index" json:"created_at"`
}
