package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chorushq/chorus/internal/adapters"
	"github.com/chorushq/chorus/internal/models"
	"github.com/chorushq/chorus/internal/pipeline"
	"github.com/chorushq/chorus/internal/store"
)

// WebhookHandler ingests one source payload: adapt, record a pending run,
// and hand the items to the task queue. Responses never block on pipeline
// completion. Unknown sources fall through to the generic adapter, so this
// endpoint never 404s on source.
func WebhookHandler(registry *adapters.Registry, runs *store.RunStore, dispatch DispatchFunc, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := c.Param("source")

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read request body"})
			return
		}

		var payload any
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid JSON payload"})
			return
		}

		items := registry.Lookup(source).Adapt(payload)
		if len(items) == 0 {
			logger.Info("Webhook payload had no feedback items", "source", source)
			c.JSON(http.StatusOK, gin.H{
				"message": "no feedback items in payload",
				"source":  source,
				"items":   0,
			})
			return
		}

		input := pipeline.RunInput{
			RunID:  uuid.New().String(),
			Source: source,
			Items:  items,
		}
		if !createAndDispatch(c, runs, dispatch, logger, input) {
			return
		}

		logger.Info("Webhook accepted", "source", source, "run_id", input.RunID, "items", len(items))
		c.JSON(http.StatusOK, gin.H{
			"message": "feedback received",
			"run_id":  input.RunID,
			"source":  source,
			"items":   len(items),
		})
	}
}

// SummarizeSourceHandler manually dispatches the feedback pipeline over the
// unprocessed records a source accumulated in the trailing window (default
// one day). The dispatched run enters at the reload step; nothing is stored
// twice.
func SummarizeSourceHandler(feedback *store.FeedbackStore, runs *store.RunStore, dispatch DispatchFunc, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := c.Param("source")

		days, err := daysFromBody(c, 1)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		end := time.Now().UTC()
		start := end.Add(-time.Duration(days) * 24 * time.Hour)
		records, err := feedback.FetchUnprocessedInWindow(c.Request.Context(), source, start, end)
		if err != nil {
			logger.Error("Failed to fetch unprocessed feedback", "source", source, "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch unprocessed feedback"})
			return
		}
		if len(records) == 0 {
			c.JSON(http.StatusOK, gin.H{
				"message": "no unprocessed feedback in window",
				"source":  source,
				"days":    days,
				"records": 0,
			})
			return
		}

		ids := make([]uint, 0, len(records))
		for _, record := range records {
			ids = append(ids, record.ID)
		}

		input := pipeline.RunInput{
			RunID:     uuid.New().String(),
			Source:    source,
			RecordIDs: ids,
		}
		if !createAndDispatch(c, runs, dispatch, logger, input) {
			return
		}

		logger.Info("Manual summarize dispatched", "source", source, "run_id", input.RunID, "records", len(ids))
		c.JSON(http.StatusOK, gin.H{
			"message": "summarize dispatched",
			"run_id":  input.RunID,
			"source":  source,
			"records": len(ids),
		})
	}
}

// AggregateHandler runs the aggregation pipeline synchronously for the
// requested window (default seven days) and returns its result.
func AggregateHandler(aggregation *pipeline.AggregationPipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		days, err := daysFromBody(c, pipeline.DefaultWindowDays)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := aggregation.Run(c.Request.Context(), days)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregation failed"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ListSummariesHandler returns the latest source summaries, newest first.
func ListSummariesHandler(summaries *store.SummaryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := limitParam(c, 50, 200)
		found, err := summaries.LatestSourceSummaries(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summaries"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"summaries": found, "count": len(found)})
	}
}

// ListSourceSummariesHandler returns the latest summaries for one source.
func ListSourceSummariesHandler(summaries *store.SummaryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := c.Param("source")
		limit := limitParam(c, 20, 200)
		found, err := summaries.SourceSummariesBySource(c.Request.Context(), source, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summaries"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"source": source, "summaries": found, "count": len(found)})
	}
}

// ListAggregatedHandler returns the latest aggregated summaries.
func ListAggregatedHandler(summaries *store.SummaryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := limitParam(c, 10, 200)
		found, err := summaries.LatestAggregatedSummaries(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch aggregated summaries"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"aggregated": found, "count": len(found)})
	}
}

// StatsHandler returns feedback counts per source, the single latest
// aggregated summary, and the ten most recent source summaries.
func StatsHandler(feedback *store.FeedbackStore, summaries *store.SummaryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		counts, err := feedback.CountsBySource(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count feedback"})
			return
		}

		latest, err := summaries.LatestAggregatedSummaries(ctx, 1)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch aggregated summaries"})
			return
		}
		var latestAggregated *models.AggregatedSummary
		if len(latest) > 0 {
			latestAggregated = &latest[0]
		}

		recent, err := summaries.LatestSourceSummaries(ctx, 10)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch summaries"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"feedback_counts":   counts,
			"latest_aggregated": latestAggregated,
			"recent_summaries":  recent,
		})
	}
}

// GetRunHandler returns one pipeline run by its public identifier.
func GetRunHandler(runs *store.RunStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := runs.GetByRunID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run"})
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

// createAndDispatch records a pending run and enqueues it. It writes the
// error response itself and reports whether the caller should continue.
func createAndDispatch(c *gin.Context, runs *store.RunStore, dispatch DispatchFunc, logger *slog.Logger, input pipeline.RunInput) bool {
	snapshot, _ := json.Marshal(input)
	run := &models.PipelineRun{
		RunID:     input.RunID,
		Source:    input.Source,
		Status:    models.RunStatusPending,
		ItemCount: len(input.Items) + len(input.RecordIDs),
		Input:     snapshot,
	}
	if err := runs.CreateRun(c.Request.Context(), run); err != nil {
		logger.Error("Failed to record pipeline run", "run_id", input.RunID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record pipeline run"})
		return false
	}

	if err := dispatch(input); err != nil {
		logger.Error("Failed to dispatch pipeline run", "run_id", input.RunID, "error", err.Error())
		updateErr := runs.UpdateRun(c.Request.Context(), run, map[string]any{
			"status":        models.RunStatusFailed,
			"error_message": "failed to enqueue processing task",
		})
		if updateErr != nil {
			logger.Error("Failed to record dispatch failure", "run_id", input.RunID, "error", updateErr.Error())
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to dispatch pipeline"})
		return false
	}
	return true
}

// limitParam parses ?limit=N with a default and a hard cap.
func limitParam(c *gin.Context, def, max int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// daysFromBody reads an optional {"days": N} request body. A missing or
// empty body means the default; malformed JSON is an error. Non-positive
// days also fall back to the default.
func daysFromBody(c *gin.Context, def int) (int, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return 0, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return def, nil
	}

	var body struct {
		Days int `json:"days"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, err
	}
	if body.Days <= 0 {
		return def, nil
	}
	return body.Days, nil
}
