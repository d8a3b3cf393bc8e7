package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chorushq/chorus/internal/models"
	"github.com/chorushq/chorus/internal/store"
	"github.com/chorushq/chorus/internal/summarizer"
)

// DefaultWindowDays is the aggregation window used when none is given.
const DefaultWindowDays = 7

// AggregateResult reports the outcome of one aggregation run. Summary is nil
// when the window contained no source summaries.
type AggregateResult struct {
	Summary            *models.AggregatedSummary `json:"summary,omitempty"`
	WindowStart        time.Time                 `json:"window_start"`
	WindowEnd          time.Time                 `json:"window_end"`
	SourceSummaryCount int                       `json:"source_summary_count"`
}

type AggregationPipeline struct {
	summaries  *store.SummaryStore
	summarizer *summarizer.Summarizer
	events     EventPublisher
	logger     *slog.Logger
}

func NewAggregationPipeline(summaries *store.SummaryStore, s *summarizer.Summarizer, events EventPublisher, logger *slog.Logger) *AggregationPipeline {
	return &AggregationPipeline{
		summaries:  summaries,
		summarizer: s,
		events:     events,
		logger:     logger,
	}
}

// Run aggregates the source summaries fully contained in the trailing
// window of the given number of days. Aggregation only reads source
// summaries, so re-running for overlapping windows is safe; each run writes
// its own row.
func (p *AggregationPipeline) Run(ctx context.Context, days int) (*AggregateResult, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)
	result := &AggregateResult{WindowStart: start, WindowEnd: end}

	summaries, err := p.summaries.QuerySourceSummaries(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch step: %w", err)
	}
	result.SourceSummaryCount = len(summaries)
	if len(summaries) == 0 {
		p.logger.Info("No source summaries in window", "days", days)
		return result, nil
	}

	text := p.summarizer.SummarizeSources(ctx, summaries)

	distinct := make(map[string]struct{}, len(summaries))
	total := 0
	for _, summary := range summaries {
		distinct[summary.Source] = struct{}{}
		total += summary.FeedbackCount
	}

	// The stored date range is the query window, not a range recomputed
	// from the fetched summaries.
	aggregated := &models.AggregatedSummary{
		SummaryText:        text,
		DateRangeStart:     start,
		DateRangeEnd:       end,
		SourceCount:        len(distinct),
		TotalFeedbackCount: total,
	}
	if err := p.summaries.InsertAggregatedSummary(ctx, aggregated); err != nil {
		return nil, fmt.Errorf("persist step: %w", err)
	}
	result.Summary = aggregated

	if p.events != nil {
		if _, err := p.events.PublishAggregatedSummary(ctx, aggregated); err != nil {
			p.logger.Warn("Failed to publish summary event", "summary_id", aggregated.ID, "error", err.Error())
		}
	}

	p.logger.Info(
		"Aggregation completed",
		"days", days,
		"sources", aggregated.SourceCount,
		"total_feedback", total,
		"summary_id", aggregated.ID,
	)
	return result, nil
}
