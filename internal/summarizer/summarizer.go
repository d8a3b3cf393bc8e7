// Package summarizer turns batches of feedback into summary text. AI failures
// never propagate: every path returns usable text so the pipelines can always
// persist a result and move on.
package summarizer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"

	"github.com/chorushq/chorus/internal/models"
)

var (
	//go:embed prompts/feedback.md
	feedbackInstructions string
	//go:embed prompts/sources.md
	sourcesInstructions string
)

// entryDelimiter separates serialized entries inside a prompt.
const entryDelimiter = "\n---\n"

// emptyBatchText is returned for empty input without invoking the generator.
const emptyBatchText = "Nothing to summarize."

// TextGenerator is the text-generation collaborator. Implementations may
// return a plain string, a map carrying a "response" field, or any other
// JSON-serializable value; the summarizer normalizes all three.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (any, error)
}

type Summarizer struct {
	generator TextGenerator
	logger    *slog.Logger
}

func New(generator TextGenerator, logger *slog.Logger) *Summarizer {
	return &Summarizer{generator: generator, logger: logger}
}

// SummarizeFeedback produces summary text for one source's feedback batch.
func (s *Summarizer) SummarizeFeedback(ctx context.Context, source string, records []models.FeedbackRecord) string {
	if len(records) == 0 {
		return emptyBatchText
	}

	entries := make([]string, 0, len(records))
	for i, record := range records {
		entry := fmt.Sprintf("%d. %s", i+1, record.Content)
		if author := authorOf(record.Metadata); author != "" {
			entry += fmt.Sprintf(" (from %s)", author)
		}
		entries = append(entries, entry)
	}

	result, err := s.generator.Generate(ctx, buildPrompt(feedbackInstructions, entries))
	if err != nil {
		s.logger.Warn("Text generation failed, using fallback summary",
			"source", source, "items", len(records), "error", err)
		return fallbackText(len(records), "feedback items", err)
	}
	return unwrap(result)
}

// SummarizeSources produces combined summary text over per-source summaries.
func (s *Summarizer) SummarizeSources(ctx context.Context, summaries []models.SourceSummary) string {
	if len(summaries) == 0 {
		return emptyBatchText
	}

	entries := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		entries = append(entries, fmt.Sprintf("[%s] %d items, %s to %s:\n%s",
			summary.Source,
			summary.FeedbackCount,
			summary.DateRangeStart.Format("Jan 2, 2006"),
			summary.DateRangeEnd.Format("Jan 2, 2006"),
			summary.SummaryText))
	}

	result, err := s.generator.Generate(ctx, buildPrompt(sourcesInstructions, entries))
	if err != nil {
		s.logger.Warn("Text generation failed, using fallback summary",
			"sources", len(summaries), "error", err)
		return fallbackText(len(summaries), "source summaries", err)
	}
	return unwrap(result)
}

func buildPrompt(instructions string, entries []string) string {
	return instructions + "\n" + strings.Join(entries, entryDelimiter)
}

// fallbackText is the deterministic stand-in summary used when generation
// fails. It states what was being summarized and why no AI text is available.
func fallbackText(count int, noun string, err error) string {
	return fmt.Sprintf("Automatic summary unavailable for %d %s: %v", count, noun, err)
}

// unwrap normalizes a generator result to text: a designated "response"
// field wins, then a raw string, then serialization of the whole value.
func unwrap(result any) string {
	if m, ok := result.(map[string]any); ok {
		if text, ok := m["response"].(string); ok && text != "" {
			return text
		}
	}
	if text, ok := result.(string); ok {
		return text
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(raw)
}

func authorOf(metadata datatypes.JSON) string {
	if len(metadata) == 0 {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(metadata, &m); err != nil {
		return ""
	}
	author, _ := m["author"].(string)
	return author
}
