// Package pipeline implements the two summarization pipelines: per-source
// feedback processing (store, reload, summarize, persist, mark processed)
// and cross-source aggregation (window, fetch, summarize, persist). Store
// failures propagate so the task runner can retry a whole run; summarizer
// failures never do.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chorushq/chorus/internal/adapters"
	"github.com/chorushq/chorus/internal/models"
	"github.com/chorushq/chorus/internal/store"
	"github.com/chorushq/chorus/internal/summarizer"
)

// EventPublisher emits events for newly persisted summaries. Publishing is
// best effort: failures are logged and never fail a run.
type EventPublisher interface {
	PublishSourceSummary(ctx context.Context, summary *models.SourceSummary) (string, error)
	PublishAggregatedSummary(ctx context.Context, summary *models.AggregatedSummary) (string, error)
}

// RunInput is the dispatch payload for one feedback processing run. Exactly
// one of Items or RecordIDs is set: webhook dispatches carry adapted items
// and the run starts by storing them; manual dispatches carry ids of records
// already stored and the run starts at the reload step.
type RunInput struct {
	RunID     string          `json:"run_id"`
	Source    string          `json:"source"`
	Items     []adapters.Item `json:"items,omitempty"`
	RecordIDs []uint          `json:"record_ids,omitempty"`
}

// RunResult reports the outcome of one feedback processing run.
type RunResult struct {
	RunID          string `json:"run_id"`
	Status         string `json:"status"`
	StoredCount    int    `json:"stored_count"`
	ProcessedCount int    `json:"processed_count"`
	SummaryID      *uint  `json:"summary_id,omitempty"`
}

type FeedbackPipeline struct {
	feedback   *store.FeedbackStore
	summaries  *store.SummaryStore
	runs       *store.RunStore
	summarizer *summarizer.Summarizer
	events     EventPublisher
	logger     *slog.Logger
}

func NewFeedbackPipeline(feedback *store.FeedbackStore, summaries *store.SummaryStore, runs *store.RunStore, s *summarizer.Summarizer, events EventPublisher, logger *slog.Logger) *FeedbackPipeline {
	return &FeedbackPipeline{
		feedback:   feedback,
		summaries:  summaries,
		runs:       runs,
		summarizer: s,
		events:     events,
		logger:     logger,
	}
}

// Run executes one feedback processing run. Re-running with the same input
// is safe: the reload step drops records a previous or concurrent run
// already processed, and flag flips are idempotent.
func (p *FeedbackPipeline) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	if input.RunID == "" {
		input.RunID = uuid.New().String()
	}

	run, err := p.loadOrCreateRun(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := p.runs.UpdateRun(ctx, run, map[string]any{
		"status":     models.RunStatusProcessing,
		"started_at": time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	result := &RunResult{RunID: input.RunID}

	// Store: insert adapted items and collect their ids. The ids survive
	// even if a later step fails (at-least-once storage).
	ids := input.RecordIDs
	if len(input.Items) > 0 {
		ids = make([]uint, 0, len(input.Items))
		for _, item := range input.Items {
			id, err := p.feedback.Insert(ctx, input.Source, item.Content, item.Metadata)
			if err != nil {
				return nil, p.failRun(ctx, run, result, fmt.Errorf("store step: %w", err))
			}
			ids = append(ids, id)
		}
		result.StoredCount = len(ids)
	}

	if len(ids) == 0 {
		result.Status = models.RunStatusEmpty
		p.logger.Info("Pipeline run had nothing to process", "run_id", input.RunID, "source", input.Source)
		return result, p.finishRun(ctx, run, result)
	}

	// Reload: the authoritative source of timestamps, filtered to
	// unprocessed. Records a racing run already finished drop out here.
	records, err := p.feedback.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, p.failRun(ctx, run, result, fmt.Errorf("reload step: %w", err))
	}
	if len(records) == 0 {
		result.Status = models.RunStatusNoneEligible
		p.logger.Info("All records already processed", "run_id", input.RunID, "source", input.Source)
		return result, p.finishRun(ctx, run, result)
	}

	// Summarize: never fails; AI errors degrade to fallback text.
	text := p.summarizer.SummarizeFeedback(ctx, input.Source, records)

	// Persist the summary strictly before marking anything processed, so a
	// crash between the two steps can only leave extra unprocessed records,
	// never a processed record without a summary covering it.
	start, end := records[0].CreatedAt, records[0].CreatedAt
	for _, record := range records[1:] {
		if record.CreatedAt.Before(start) {
			start = record.CreatedAt
		}
		if record.CreatedAt.After(end) {
			end = record.CreatedAt
		}
	}
	summary := &models.SourceSummary{
		Source:         input.Source,
		SummaryText:    text,
		DateRangeStart: start,
		DateRangeEnd:   end,
		FeedbackCount:  len(records),
	}
	if err := p.summaries.InsertSourceSummary(ctx, summary); err != nil {
		return nil, p.failRun(ctx, run, result, fmt.Errorf("persist step: %w", err))
	}
	result.SummaryID = &summary.ID

	// Mark processed: the original ids, not the reloaded subset. Flips are
	// no-ops for anything another run got to first.
	flipped, err := p.feedback.MarkProcessed(ctx, ids)
	if err != nil {
		return nil, p.failRun(ctx, run, result, fmt.Errorf("mark step: %w", err))
	}
	result.ProcessedCount = int(flipped)
	result.Status = models.RunStatusCompleted

	p.publishSourceSummary(ctx, summary)

	if err := p.finishRun(ctx, run, result); err != nil {
		return nil, err
	}

	p.logger.Info(
		"Feedback pipeline completed",
		"run_id", input.RunID,
		"source", input.Source,
		"stored", result.StoredCount,
		"processed", result.ProcessedCount,
		"summary_id", summary.ID,
	)
	return result, nil
}

func (p *FeedbackPipeline) loadOrCreateRun(ctx context.Context, input RunInput) (*models.PipelineRun, error) {
	run, err := p.runs.GetByRunID(ctx, input.RunID)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load pipeline run: %w", err)
	}

	snapshot, _ := json.Marshal(input)
	run = &models.PipelineRun{
		RunID:     input.RunID,
		Source:    input.Source,
		Status:    models.RunStatusPending,
		ItemCount: len(input.Items) + len(input.RecordIDs),
		Input:     snapshot,
	}
	if err := p.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (p *FeedbackPipeline) finishRun(ctx context.Context, run *models.PipelineRun, result *RunResult) error {
	fields := map[string]any{
		"status":          result.Status,
		"stored_count":    result.StoredCount,
		"processed_count": result.ProcessedCount,
		"completed_at":    time.Now().UTC(),
	}
	if result.SummaryID != nil {
		fields["summary_id"] = *result.SummaryID
	}
	if err := p.runs.UpdateRun(ctx, run, fields); err != nil {
		return fmt.Errorf("failed to record run outcome: %w", err)
	}
	return nil
}

func (p *FeedbackPipeline) failRun(ctx context.Context, run *models.PipelineRun, result *RunResult, err error) error {
	p.logger.Error("Feedback pipeline failed",
		"run_id", run.RunID,
		"source", run.Source,
		"error", err.Error(),
	)
	updateErr := p.runs.UpdateRun(ctx, run, map[string]any{
		"status":        models.RunStatusFailed,
		"error_message": err.Error(),
		"stored_count":  result.StoredCount,
		"completed_at":  time.Now().UTC(),
	})
	if updateErr != nil {
		p.logger.Error("Failed to record run failure", "run_id", run.RunID, "error", updateErr.Error())
	}
	return err
}

func (p *FeedbackPipeline) publishSourceSummary(ctx context.Context, summary *models.SourceSummary) {
	if p.events == nil {
		return
	}
	if _, err := p.events.PublishSourceSummary(ctx, summary); err != nil {
		p.logger.Warn("Failed to publish summary event", "summary_id", summary.ID, "error", err.Error())
	}
}
