package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/chorushq/chorus/internal/pipeline"
)

// Task type constants
const (
	TaskProcessFeedback    = "feedback:process"
	TaskAggregateSummaries = "summary:aggregate"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueueProcessFeedback enqueues one feedback processing run. Retries rerun
// the whole pipeline, which is safe: the reload step skips anything an
// earlier attempt already processed.
func EnqueueProcessFeedback(input pipeline.RunInput) error {
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskProcessFeedback,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}

// EnqueueAggregateSummaries enqueues an aggregation run over the trailing
// window of the given number of days. days <= 0 means the worker's default.
func EnqueueAggregateSummaries(days int) error {
	payload, err := json.Marshal(map[string]int{"days": days})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskAggregateSummaries,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}
