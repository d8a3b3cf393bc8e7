package streams

// Stream name constants
const (
	StreamSummaryEvents = "chorus:summary-events"
)

// Event type constants
const (
	EventSourceSummaryCreated     = "source_summary.created"
	EventAggregatedSummaryCreated = "aggregated_summary.created"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// SummaryEvent announces a newly persisted summary to downstream consumers
// (dashboards, notifiers). Source and FeedbackCount are set for per-source
// summaries; SourceCount and TotalFeedbackCount for aggregated ones.
type SummaryEvent struct {
	Event              string `json:"event"`
	SummaryID          uint   `json:"summary_id"`
	Source             string `json:"source,omitempty"`
	FeedbackCount      int    `json:"feedback_count,omitempty"`
	SourceCount        int    `json:"source_count,omitempty"`
	TotalFeedbackCount int    `json:"total_feedback_count,omitempty"`
	DateRangeStart     string `json:"date_range_start"`
	DateRangeEnd       string `json:"date_range_end"`
}
