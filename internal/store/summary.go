package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chorushq/chorus/internal/models"
)

type SummaryStore struct {
	db *gorm.DB
}

func NewSummaryStore(db *gorm.DB) *SummaryStore {
	return &SummaryStore{db: db}
}

// InsertSourceSummary persists a per-source summary and fills in its id.
func (s *SummaryStore) InsertSourceSummary(ctx context.Context, summary *models.SourceSummary) error {
	if err := s.db.WithContext(ctx).Create(summary).Error; err != nil {
		return fmt.Errorf("failed to insert source summary: %w", err)
	}
	return nil
}

// InsertAggregatedSummary persists a cross-source summary and fills in its id.
func (s *SummaryStore) InsertAggregatedSummary(ctx context.Context, summary *models.AggregatedSummary) error {
	if err := s.db.WithContext(ctx).Create(summary).Error; err != nil {
		return fmt.Errorf("failed to insert aggregated summary: %w", err)
	}
	return nil
}

// QuerySourceSummaries returns summaries fully contained in [start, end]:
// dateRangeStart >= start and dateRangeEnd <= end. A summary straddling a
// window boundary is excluded entirely. Results are ordered by range start
// so prompts built from them are deterministic.
func (s *SummaryStore) QuerySourceSummaries(ctx context.Context, start, end time.Time) ([]models.SourceSummary, error) {
	var summaries []models.SourceSummary
	err := s.db.WithContext(ctx).
		Where("date_range_start >= ? AND date_range_end <= ?", start, end).
		Order("date_range_start ASC, id ASC").
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query source summaries: %w", err)
	}
	return summaries, nil
}

// LatestSourceSummaries returns the newest summaries across all sources.
func (s *SummaryStore) LatestSourceSummaries(ctx context.Context, limit int) ([]models.SourceSummary, error) {
	var summaries []models.SourceSummary
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest source summaries: %w", err)
	}
	return summaries, nil
}

// SourceSummariesBySource returns the newest summaries for one source.
func (s *SummaryStore) SourceSummariesBySource(ctx context.Context, source string, limit int) ([]models.SourceSummary, error) {
	var summaries []models.SourceSummary
	err := s.db.WithContext(ctx).
		Where("source = ?", source).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch summaries for source %s: %w", source, err)
	}
	return summaries, nil
}

// LatestAggregatedSummaries returns the newest aggregated summaries.
func (s *SummaryStore) LatestAggregatedSummaries(ctx context.Context, limit int) ([]models.AggregatedSummary, error) {
	var summaries []models.AggregatedSummary
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest aggregated summaries: %w", err)
	}
	return summaries, nil
}
