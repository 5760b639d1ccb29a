// Package engine selects a language-model backend and invokes it with a
// bounded reduced-prompt retry.
package engine

import "context"

// Engine abstracts a chat-capable model backend (Groq, Gemini or a local
// Ollama). Pipelines talk to an Invoker wrapping one of these instead of a
// concrete client.
type Engine interface {
	// Name returns the provider name the engine was registered under.
	Name() string

	// Chat sends messages and returns the assistant's text.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// Readiness is implemented by engines backed by a local server that may need
// models pulled before first use.
type Readiness interface {
	IsRunning(ctx context.Context) bool
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
