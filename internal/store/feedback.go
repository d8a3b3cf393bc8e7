// Package store wraps database access for feedback records, summaries, and
// pipeline runs. The data model is append-only except for the feedback
// processed flag, which flips false to true exactly once.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chorushq/chorus/internal/models"
)

type FeedbackStore struct {
	db *gorm.DB
}

func NewFeedbackStore(db *gorm.DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

// Insert stores one feedback record and returns its assigned id. The creation
// timestamp is set here, UTC at seconds resolution.
func (s *FeedbackStore) Insert(ctx context.Context, source, content string, metadata map[string]any) (uint, error) {
	record := models.FeedbackRecord{
		Source:    source,
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to encode metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, fmt.Errorf("failed to insert feedback record: %w", err)
	}
	return record.ID, nil
}

// FetchByIDs returns the records with the given ids that are still
// unprocessed. Records a concurrent run already finished are silently
// excluded, which is what makes whole-run retries safe.
func (s *FeedbackStore) FetchByIDs(ctx context.Context, ids []uint) ([]models.FeedbackRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []models.FeedbackRecord
	err := s.db.WithContext(ctx).
		Where("id IN ? AND processed = ?", ids, false).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feedback records: %w", err)
	}
	return records, nil
}

// FetchUnprocessed returns up to limit unprocessed records for a source,
// oldest first.
func (s *FeedbackStore) FetchUnprocessed(ctx context.Context, source string, limit int) ([]models.FeedbackRecord, error) {
	var records []models.FeedbackRecord
	err := s.db.WithContext(ctx).
		Where("source = ? AND processed = ?", source, false).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unprocessed feedback: %w", err)
	}
	return records, nil
}

// FetchUnprocessedInWindow returns unprocessed records for a source created
// within [start, end], oldest first.
func (s *FeedbackStore) FetchUnprocessedInWindow(ctx context.Context, source string, start, end time.Time) ([]models.FeedbackRecord, error) {
	var records []models.FeedbackRecord
	err := s.db.WithContext(ctx).
		Where("source = ? AND processed = ? AND created_at >= ? AND created_at <= ?", source, false, start, end).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unprocessed feedback in window: %w", err)
	}
	return records, nil
}

// MarkProcessed flips the processed flag for the given ids and returns the
// number of rows actually flipped. Already-processed ids are no-ops, so
// repeating a mark is safe. An empty id list is a no-op.
func (s *FeedbackStore) MarkProcessed(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Model(&models.FeedbackRecord{}).
		Where("id IN ? AND processed = ?", ids, false).
		Update("processed", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark feedback processed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountsBySource returns the total number of feedback records per source.
func (s *FeedbackStore) CountsBySource(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Source string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.FeedbackRecord{}).
		Select("source, count(*) as count").
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count feedback by source: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Source] = row.Count
	}
	return counts, nil
}
