package engine

import (
	"context"
	"strings"

	"github.com/kalambet/huddle/internal/gemini"
)

// GeminiEngine sends chats to Gemini generateContent. System messages become
// the system instruction and the remaining turns are joined into one user turn.
type GeminiEngine struct {
	client *gemini.Client
	model  string
}

// NewGeminiEngine creates a GeminiEngine.
func NewGeminiEngine(apiKey, baseURL, model string) *GeminiEngine {
	if model == "" {
		model = gemini.DefaultModel
	}
	return &GeminiEngine{client: gemini.New(apiKey, gemini.WithBaseURL(baseURL)), model: model}
}

func (e *GeminiEngine) Name() string { return ProviderGemini }

func (e *GeminiEngine) Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	var system, user []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
		} else {
			user = append(user, m.Content)
		}
	}
	return e.client.Generate(ctx, gemini.Request{
		Model:       e.model,
		System:      strings.Join(system, "\n\n"),
		User:        strings.Join(user, "\n\n"),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSON:        opts.JSON,
	})
}
