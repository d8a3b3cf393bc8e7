package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/chorushq/chorus/internal/config"
	"github.com/chorushq/chorus/internal/pipeline"
	"github.com/chorushq/chorus/internal/store"
	"github.com/chorushq/chorus/internal/streams"
	"github.com/chorushq/chorus/internal/summarizer"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

// Implement asynq.Logger interface methods
func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, db *gorm.DB, publisher *streams.Publisher) error {
	srv, mux, err := newServer(cfg, db, publisher)
	if err != nil {
		return err
	}

	// Run blocks and handles its own signal interception
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, db *gorm.DB, publisher *streams.Publisher) (stop func(), err error) {
	srv, mux, err := newServer(cfg, db, publisher)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, db *gorm.DB, publisher *streams.Publisher) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, "worker")

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     cfg.WorkerConcurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	// The worker builds its own pipeline stack; handlers share it through
	// closures.
	sum := summarizer.New(summarizer.NewGenerator(cfg, logger), logger)
	var events pipeline.EventPublisher
	if publisher != nil {
		events = publisher
	}
	feedbackPipeline := pipeline.NewFeedbackPipeline(
		store.NewFeedbackStore(db),
		store.NewSummaryStore(db),
		store.NewRunStore(db),
		sum,
		events,
		logger,
	)
	aggregationPipeline := pipeline.NewAggregationPipeline(store.NewSummaryStore(db), sum, events, logger)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskProcessFeedback, handleProcessFeedback(logger, feedbackPipeline))
	mux.HandleFunc(TaskAggregateSummaries, handleAggregateSummaries(logger, aggregationPipeline, cfg.AggregateWindowDays))

	logger.Info("Worker starting", "concurrency", cfg.WorkerConcurrency, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handleProcessFeedback runs the feedback processing pipeline for one
// dispatched batch.
func handleProcessFeedback(logger *slog.Logger, feedbackPipeline *pipeline.FeedbackPipeline) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var input pipeline.RunInput
		if err := json.Unmarshal(task.Payload(), &input); err != nil {
			// Invalid payload - don't retry
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		logger.Info(
			"Processing feedback:process task",
			"run_id", input.RunID,
			"source", input.Source,
			"items", len(input.Items),
			"record_ids", len(input.RecordIDs),
		)

		result, err := feedbackPipeline.Run(ctx, input)
		if err != nil {
			// Store errors are retryable; reruns skip already-processed records
			return fmt.Errorf("feedback pipeline: %w", err)
		}

		logger.Info(
			"Feedback task finished",
			"run_id", result.RunID,
			"status", result.Status,
			"processed", result.ProcessedCount,
		)
		return nil
	}
}

// handleAggregateSummaries runs the aggregation pipeline. Scheduled triggers
// enqueue this task with an empty payload, which means the default window.
func handleAggregateSummaries(logger *slog.Logger, aggregationPipeline *pipeline.AggregationPipeline, defaultDays int) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		days := defaultDays
		if len(task.Payload()) > 0 {
			var payload struct {
				Days int `json:"days"`
			}
			if err := json.Unmarshal(task.Payload(), &payload); err != nil {
				return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
			}
			if payload.Days > 0 {
				days = payload.Days
			}
		}

		logger.Info("Processing summary:aggregate task", "days", days)

		result, err := aggregationPipeline.Run(ctx, days)
		if err != nil {
			return fmt.Errorf("aggregation pipeline: %w", err)
		}
		if result.Summary == nil {
			logger.Info("Aggregation window was empty", "days", days)
			return nil
		}

		logger.Info(
			"Aggregation task finished",
			"summary_id", result.Summary.ID,
			"sources", result.Summary.SourceCount,
			"total_feedback", result.Summary.TotalFeedbackCount,
		)
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		// Check if this is the final failure (task will move to dead letter queue)
		if retried >= maxRetry {
			logger.Error(
				"Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
