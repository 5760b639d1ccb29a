package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by Registry.Select.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

const (
	DefaultOllamaModel   = "llama3.1:8b"
	DefaultOllamaBaseURL = "http://localhost:11434"
	defaultTimeout       = 60 * time.Second
)

// ErrUnknownProvider is returned for a provider name no backend answers to.
var ErrUnknownProvider = errors.New("unknown model provider")

// Config holds the parameters needed to build every backend.
type Config struct {
	Provider    string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	OllamaBaseURL string
	OllamaModel   string
}

// Registry maps provider names to engines and hands out Invokers.
type Registry struct {
	fallback string
	opts     ChatOptions
	timeout  time.Duration
	engines  map[string]Engine
}

// NewRegistry builds the backends described by cfg. Hosted providers without
// an API key are left unregistered; selecting them yields ErrModelUnavailable.
func NewRegistry(cfg Config) *Registry {
	opts := DefaultChatOptions
	if cfg.Temperature > 0 {
		opts.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		opts.MaxTokens = cfg.MaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	fallback := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if fallback == "" {
		fallback = ProviderGroq
	}

	r := &Registry{
		fallback: fallback,
		opts:     opts,
		timeout:  timeout,
		engines:  make(map[string]Engine),
	}
	if cfg.GroqAPIKey != "" {
		r.Register(NewGroqEngine(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel))
	}
	if cfg.GeminiAPIKey != "" {
		r.Register(NewGeminiEngine(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel))
	}
	ollamaURL := cfg.OllamaBaseURL
	if ollamaURL == "" {
		ollamaURL = DefaultOllamaBaseURL
	}
	r.Register(NewOllamaEngine(ollamaURL, cfg.OllamaModel))
	return r
}

// Register adds or replaces the engine under e.Name().
func (r *Registry) Register(e Engine) {
	r.engines[e.Name()] = e
}

// Engine resolves a provider name. The empty string selects the configured
// default provider.
func (r *Registry) Engine(provider string) (Engine, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		name = r.fallback
	}
	switch name {
	case ProviderGroq, ProviderGemini, ProviderOllama:
	default:
		if e, ok := r.engines[name]; ok {
			return e, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configured (missing API key)", ErrModelUnavailable, name)
	}
	return e, nil
}

// Select returns an Invoker for the named provider.
func (r *Registry) Select(provider string) (*Invoker, error) {
	e, err := r.Engine(provider)
	if err != nil {
		return nil, err
	}
	return NewInvoker(e, r.opts, r.timeout), nil
}
