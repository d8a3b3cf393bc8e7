package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chorushq/chorus/internal/config"
)

// StubGenerator stands in for the OpenAI client during local development
// without an API key. It returns deterministic canned text derived from the
// prompt so the pipelines behave exactly as in production.
type StubGenerator struct{}

func (StubGenerator) Generate(_ context.Context, prompt string) (any, error) {
	entries := strings.Count(prompt, entryDelimiter) + 1
	return fmt.Sprintf("[stub] Summary of %d entries. Configure OPENAI_API_KEY for real summaries.", entries), nil
}

// NewGenerator returns the production OpenAI generator, or the stub when no
// API key is configured.
func NewGenerator(cfg *config.Config, logger *slog.Logger) TextGenerator {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, using stub summaries")
		return StubGenerator{}
	}
	return NewOpenAIGenerator(cfg)
}
