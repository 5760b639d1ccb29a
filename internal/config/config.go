package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/huddle/internal/engine"
	"github.com/kalambet/huddle/internal/gemini"
	"github.com/kalambet/huddle/internal/groq"
)

type Config struct {
	Server  ServerConfig
	Model   ModelConfig
	Groq    HostedConfig
	Gemini  HostedConfig
	Ollama  OllamaConfig
	Storage StorageConfig
	Log     LogConfig
	Digest  DigestConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type ModelConfig struct {
	Provider    string
	Temperature float64
	MaxTokens   int
	Timeout     string
}

// HostedConfig describes an API-key authenticated provider.
type HostedConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// DigestConfig drives the daily precompute. Teams is a comma-separated list;
// an empty list disables the schedule.
type DigestConfig struct {
	Time     string
	Timezone string
	Teams    string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 4000},
		Model: ModelConfig{
			Provider:    engine.ProviderGroq,
			Temperature: engine.DefaultChatOptions.Temperature,
			MaxTokens:   engine.DefaultChatOptions.MaxTokens,
			Timeout:     "60s",
		},
		Groq:    HostedConfig{BaseURL: groq.DefaultBaseURL, Model: groq.DefaultModel},
		Gemini:  HostedConfig{BaseURL: gemini.DefaultBaseURL, Model: gemini.DefaultModel},
		Ollama:  OllamaConfig{BaseURL: engine.DefaultOllamaBaseURL, Model: engine.DefaultOllamaModel},
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Log:     LogConfig{Level: "info"},
		Digest:  DigestConfig{Time: "09:30", Timezone: "Asia/Kolkata"},
	}
}

// Load reads configuration from the JSON file at ConfigFilePath, then
// applies HUDDLE_* environment overrides, then fills API keys that are still
// empty from the secrets file.
func Load() (Config, error) {
	return loadWith(newFileBackend(ConfigFilePath()), fileSecrets{path: SecretsFilePath()})
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	for _, s := range specs {
		if !s.secret || s.extract(cfg) != "" {
			continue
		}
		if v, err := secrets.Get(secretsService, s.key); err == nil && v != "" {
			s.apply(&cfg, v)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.Model.Provider) {
	case engine.ProviderGroq, engine.ProviderGemini, engine.ProviderOllama:
	default:
		return fmt.Errorf("invalid model.provider %q: want groq, gemini or ollama", c.Model.Provider)
	}
	if _, err := c.ModelTimeout(); err != nil {
		return err
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("invalid model.temperature %v: want 0..2", c.Model.Temperature)
	}
	return nil
}

// ModelTimeout parses model.timeout.
func (c Config) ModelTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Model.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid model.timeout %q: want a positive duration like 60s", c.Model.Timeout)
	}
	return d, nil
}

// DigestTeams splits digest.teams into trimmed, non-empty team IDs.
func (c Config) DigestTeams() []string {
	var teams []string
	for _, t := range strings.Split(c.Digest.Teams, ",") {
		if t = strings.TrimSpace(t); t != "" {
			teams = append(teams, t)
		}
	}
	return teams
}

// Engine converts the model settings into a registry configuration.
func (c Config) Engine() engine.Config {
	timeout, _ := c.ModelTimeout()
	return engine.Config{
		Provider:      c.Model.Provider,
		Temperature:   c.Model.Temperature,
		MaxTokens:     c.Model.MaxTokens,
		Timeout:       timeout,
		GroqAPIKey:    c.Groq.APIKey,
		GroqBaseURL:   c.Groq.BaseURL,
		GroqModel:     c.Groq.Model,
		GeminiAPIKey:  c.Gemini.APIKey,
		GeminiBaseURL: c.Gemini.BaseURL,
		GeminiModel:   c.Gemini.Model,
		OllamaBaseURL: c.Ollama.BaseURL,
		OllamaModel:   c.Ollama.Model,
	}
}
