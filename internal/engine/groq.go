package engine

import (
	"context"

	"github.com/kalambet/huddle/internal/groq"
)

// GroqEngine sends chats to Groq's OpenAI-compatible endpoint.
type GroqEngine struct {
	client *groq.Client
	model  string
}

// NewGroqEngine creates a GroqEngine. An empty baseURL or model selects the
// Groq defaults.
func NewGroqEngine(apiKey, baseURL, model string) *GroqEngine {
	if model == "" {
		model = groq.DefaultModel
	}
	return &GroqEngine{client: groq.NewClientWithBaseURL(apiKey, baseURL), model: model}
}

func (e *GroqEngine) Name() string { return ProviderGroq }

func (e *GroqEngine) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	msgs := make([]groq.Message, len(messages))
	for i, m := range messages {
		msgs[i] = groq.Message{Role: m.Role, Content: m.Content}
	}
	return e.client.Complete(ctx, groq.Request{
		Model:       e.model,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSON:        opts.JSON,
	})
}
