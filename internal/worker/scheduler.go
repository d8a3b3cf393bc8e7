package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/chorushq/chorus/internal/config"
)

// StartScheduler creates and starts an Asynq Scheduler that enqueues the
// recurring aggregation task. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Parse timezone from config
	location, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", cfg.ScheduleTimezone, "error", err)
		location = time.UTC
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, "scheduler")

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	// Empty payload means the worker aggregates over the configured default
	// window. Failures stay inside the worker; there is no caller to notify.
	task := asynq.NewTask(
		TaskAggregateSummaries,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(24*time.Hour), // Prevent duplicate if scheduler runs twice
	)

	entryID, err := scheduler.Register(cfg.AggregateSchedule, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register aggregation schedule: %w", err)
	}

	// Start scheduler (non-blocking)
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info(
		"Scheduler started",
		"schedule", cfg.AggregateSchedule,
		"timezone", cfg.ScheduleTimezone,
		"window_days", cfg.AggregateWindowDays,
		"entry_id", entryID,
	)

	// Return shutdown function
	return func() { scheduler.Shutdown() }, nil
}
