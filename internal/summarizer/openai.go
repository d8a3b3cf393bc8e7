package summarizer

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chorushq/chorus/internal/config"
)

// OpenAIGenerator is the production TextGenerator, backed by the OpenAI chat
// completions API with fixed sampling parameters from config.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

func NewOpenAIGenerator(cfg *config.Config) *OpenAIGenerator {
	client := openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey))
	return &OpenAIGenerator{
		client:      &client,
		model:       cfg.OpenAIModel,
		maxTokens:   int64(cfg.SummaryMaxTokens),
		temperature: cfg.SummaryTemperature,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (any, error) {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(g.maxTokens),
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("completion contained no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
