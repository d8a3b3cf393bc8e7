package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chorushq/chorus/internal/models"
)

// Publisher publishes summary events to Redis Streams
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher instance
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	return &Publisher{rdb: client}, nil
}

// PublishSourceSummary announces a newly persisted per-source summary.
func (p *Publisher) PublishSourceSummary(ctx context.Context, summary *models.SourceSummary) (string, error) {
	return p.publish(ctx, SummaryEvent{
		Event:          EventSourceSummaryCreated,
		SummaryID:      summary.ID,
		Source:         summary.Source,
		FeedbackCount:  summary.FeedbackCount,
		DateRangeStart: summary.DateRangeStart.Format(time.RFC3339),
		DateRangeEnd:   summary.DateRangeEnd.Format(time.RFC3339),
	})
}

// PublishAggregatedSummary announces a newly persisted aggregated summary.
func (p *Publisher) PublishAggregatedSummary(ctx context.Context, summary *models.AggregatedSummary) (string, error) {
	return p.publish(ctx, SummaryEvent{
		Event:              EventAggregatedSummaryCreated,
		SummaryID:          summary.ID,
		SourceCount:        summary.SourceCount,
		TotalFeedbackCount: summary.TotalFeedbackCount,
		DateRangeStart:     summary.DateRangeStart.Format(time.RFC3339),
		DateRangeEnd:       summary.DateRangeEnd.Format(time.RFC3339),
	})
}

func (p *Publisher) publish(ctx context.Context, event SummaryEvent) (string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamSummaryEvents,
		MaxLen: 10000,
		Approx: true,
		ID:     "*", // auto-generate ID
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})

	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	return result.Val(), nil
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
